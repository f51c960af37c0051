package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	bookingserrors "bookingguard/internal/bookings/errors"
	"bookingguard/pkg/logger"
	"bookingguard/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details flattens the errors into a field to message map for API responses.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}

// Validate checks the struct rules of an effective booking. A booking that
// carries a work order must also carry a start time.
func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.structErrors(booking); err != nil {
		return err
	}

	if booking.WorkOrderID != "" && booking.StartTime.IsZero() {
		return ValidationErrors{
			ValidationError{
				Field:   "start_time",
				Message: bookingserrors.ErrMissingStartTime.Error(),
			},
		}
	}

	return nil
}

func (v *BookingValidator) ValidateChange(change *model.BookingChange) error {
	if err := v.structErrors(change); err != nil {
		return err
	}

	if change.StartTime != nil && change.EndTime != nil {
		if !change.EndTime.After(*change.StartTime) {
			return ValidationErrors{
				ValidationError{
					Field:   "end_time",
					Message: "end_time must be after start_time",
				},
			}
		}
	}

	return nil
}

func (v *BookingValidator) ValidateRequest(req *model.ValidationRequest) error {
	if err := v.structErrors(req); err != nil {
		return err
	}
	return v.ValidateChange(&req.Candidate)
}

func (v *BookingValidator) structErrors(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_if":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), "start_time")
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

// CheckSameDay rejects the candidate when any existing booking starts on the
// same calendar day. Time of day and duration are ignored. The check is pure
// and the existing slice is never modified.
func CheckSameDay(candidate *model.Booking, existing []*model.Booking) error {
	for _, b := range existing {
		if b == nil {
			continue
		}
		if SameCalendarDay(candidate.StartTime, b.StartTime) {
			return &bookingserrors.DuplicateBookingConflict{
				WorkOrderID:          candidate.WorkOrderID,
				Date:                 candidate.StartTime.UTC(),
				ConflictingBookingID: b.ID,
			}
		}
	}
	return nil
}

// SameCalendarDay compares year, month and day of both timestamps in UTC,
// the location bookings are read back from the store in.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
