package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrDuplicateBooking = errors.New("work order already has a booking on this day")

	ErrMissingStartTime = errors.New("start time is required when a work order is set")

	ErrUnknownTemplate = errors.New("unknown query template")
)

// DuplicateBookingConflict is raised when a candidate booking lands on a
// calendar day already taken by another booking of the same work order.
type DuplicateBookingConflict struct {
	WorkOrderID          string
	Date                 time.Time
	ConflictingBookingID string
}

func (e *DuplicateBookingConflict) Error() string {
	return fmt.Sprintf("work order %s already has a booking on %s", e.WorkOrderID, e.Date.Format(time.DateOnly))
}

func (e *DuplicateBookingConflict) Unwrap() error {
	return ErrDuplicateBooking
}

// GatewayFault wraps a record store failure without altering it.
type GatewayFault struct {
	Op  string
	Err error
}

func (e *GatewayFault) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayFault) Unwrap() error {
	return e.Err
}

func IsGatewayFault(err error) bool {
	var fault *GatewayFault
	return errors.As(err, &fault)
}

func AsDuplicateBookingConflict(err error) (*DuplicateBookingConflict, bool) {
	var conflict *DuplicateBookingConflict
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
