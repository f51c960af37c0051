package gateway

import (
	"sort"
	"strings"
)

const (
	TemplateBookingsByWorkOrder = "bookings_by_work_order"

	ParamWorkOrderID = "workorderid"
)

// Templates are extended JSON filters. Parameters are written as {name} and
// replaced literally, with no quoting or escaping of the substituted value.
var defaultTemplates = map[string]string{
	TemplateBookingsByWorkOrder: `{"work_order_id": "{workorderid}"}`,
}

func placeholder(name string) string {
	return "{" + name + "}"
}

// substitute replaces each {name} token with its value. Parameters are
// applied in name order so the result is deterministic.
func substitute(template string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	query := template
	for _, name := range names {
		query = strings.ReplaceAll(query, placeholder(name), params[name])
	}
	return query
}
