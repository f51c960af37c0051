package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	bookingserrors "bookingguard/internal/bookings/errors"
	"bookingguard/pkg/logger"
	"bookingguard/pkg/metrics"
	"bookingguard/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	opQuery  = "query"
	opInsert = "insert"
)

// lock serializes every gateway call in the process, across all Gateway
// values.
var lock sync.Mutex

// RecordStore is the external record store the gateway delegates to.
type RecordStore interface {
	RetrieveMultiple(ctx context.Context, filter bson.D) ([]*model.Booking, error)
	Insert(ctx context.Context, booking *model.Booking) (string, error)
}

type Gateway struct {
	store     RecordStore
	log       *logger.Logger
	metrics   *metrics.Metrics
	templates map[string]string
	newID     func() string
}

func New(store RecordStore, log *logger.Logger, m *metrics.Metrics) *Gateway {
	templates := make(map[string]string, len(defaultTemplates))
	for key, tmpl := range defaultTemplates {
		templates[key] = tmpl
	}

	return &Gateway{
		store:     store,
		log:       log,
		metrics:   m,
		templates: templates,
		newID:     uuid.NewString,
	}
}

// RegisterTemplate adds or replaces a named query template. It is meant for
// startup wiring and is not safe to call concurrently with queries.
func (g *Gateway) RegisterTemplate(key, template string) {
	g.templates[key] = template
}

func (g *Gateway) FindBookingsByWorkOrder(ctx context.Context, workOrderID string) ([]*model.Booking, error) {
	return g.Query(ctx, TemplateBookingsByWorkOrder, map[string]string{
		ParamWorkOrderID: workOrderID,
	})
}

// Query renders the named template with params and returns every matching
// record. Store failures and malformed rendered queries come back as a
// *GatewayFault wrapping the original error.
func (g *Gateway) Query(ctx context.Context, key string, params map[string]string) ([]*model.Booking, error) {
	template, ok := g.templates[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrUnknownTemplate, key)
	}

	started := time.Now()
	lock.Lock()
	defer lock.Unlock()

	bookings, err := g.query(ctx, template, params)
	g.observe(opQuery, started, err)
	if err != nil {
		g.log.Error("Gateway query failed",
			"template", key,
			"error", err,
		)
		return nil, err
	}

	return bookings, nil
}

func (g *Gateway) query(ctx context.Context, template string, params map[string]string) ([]*model.Booking, error) {
	rendered := substitute(template, params)

	var filter bson.D
	if err := bson.UnmarshalExtJSON([]byte(rendered), false, &filter); err != nil {
		return nil, &bookingserrors.GatewayFault{Op: opQuery, Err: err}
	}

	bookings, err := g.store.RetrieveMultiple(ctx, filter)
	if err != nil {
		return nil, &bookingserrors.GatewayFault{Op: opQuery, Err: err}
	}
	return bookings, nil
}

// Insert persists a copy of booking and returns it with its identifier set.
func (g *Gateway) Insert(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	record := *booking
	if record.ID == "" {
		record.ID = g.newID()
	}

	started := time.Now()
	lock.Lock()
	defer lock.Unlock()

	id, err := g.store.Insert(ctx, &record)
	if err != nil {
		err = &bookingserrors.GatewayFault{Op: opInsert, Err: err}
	}
	g.observe(opInsert, started, err)
	if err != nil {
		g.log.Error("Gateway insert failed",
			"work_order_id", record.WorkOrderID,
			"error", err,
		)
		return nil, err
	}

	if id != "" {
		record.ID = id
	}
	return &record, nil
}

func (g *Gateway) observe(op string, started time.Time, err error) {
	if g.metrics == nil {
		return
	}
	g.metrics.ObserveGatewayCall(op, started, err)
}
