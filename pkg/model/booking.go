package model

import (
	"time"
)

// Booking is a scheduled assignment of a bookable resource to a work order.
type Booking struct {
	ID          string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,max=64"`
	Name        string     `json:"name,omitempty" bson:"name,omitempty" validate:"omitempty,max=200"`
	ResourceID  string     `json:"resource_id,omitempty" bson:"resource_id,omitempty" validate:"omitempty,max=64"`
	WorkOrderID string     `json:"work_order_id,omitempty" bson:"work_order_id,omitempty" validate:"omitempty,max=64"`
	StartTime   time.Time  `json:"start_time" bson:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty" bson:"end_time,omitempty" validate:"omitempty,gtfield=StartTime"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
}

// BookingChange is a partial change set. A nil field was not supplied and
// keeps whatever value the stored record already has.
type BookingChange struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,max=200"`
	ResourceID  *string    `json:"resource_id,omitempty" validate:"omitempty,max=64"`
	WorkOrderID *string    `json:"work_order_id,omitempty" validate:"omitempty,max=64"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

// ValidationRequest is the inbound shape of a standalone validation call.
type ValidationRequest struct {
	ID         string        `json:"id,omitempty" validate:"omitempty,max=64"`
	Candidate  BookingChange `json:"candidate"`
	IsUpdate   bool          `json:"is_update"`
	PriorState *Booking      `json:"prior_state,omitempty" validate:"required_if=IsUpdate true"`
}

type Verdict struct {
	Accepted    bool   `json:"accepted"`
	Reason      string `json:"reason,omitempty"`
	WorkOrderID string `json:"work_order_id,omitempty"`
}

func Accept(workOrderID string) *Verdict {
	return &Verdict{Accepted: true, WorkOrderID: workOrderID}
}

func Reject(workOrderID, reason string) *Verdict {
	return &Verdict{Accepted: false, Reason: reason, WorkOrderID: workOrderID}
}

// Merge overlays the fields present in change onto a copy of prior. A nil
// prior starts from an empty booking, which is the create case.
func Merge(prior *Booking, change *BookingChange) *Booking {
	var merged Booking
	if prior != nil {
		merged = *prior
	}
	if change == nil {
		return &merged
	}

	if change.Name != nil {
		merged.Name = *change.Name
	}
	if change.ResourceID != nil {
		merged.ResourceID = *change.ResourceID
	}
	if change.WorkOrderID != nil {
		merged.WorkOrderID = *change.WorkOrderID
	}
	if change.StartTime != nil {
		merged.StartTime = *change.StartTime
	}
	if change.EndTime != nil {
		end := *change.EndTime
		merged.EndTime = &end
	}

	return &merged
}

// ChangeFrom builds a change set that supplies every field of b.
func ChangeFrom(b *Booking) BookingChange {
	name, resourceID, workOrderID, start := b.Name, b.ResourceID, b.WorkOrderID, b.StartTime
	change := BookingChange{
		Name:        &name,
		ResourceID:  &resourceID,
		WorkOrderID: &workOrderID,
		StartTime:   &start,
	}
	if b.EndTime != nil {
		end := *b.EndTime
		change.EndTime = &end
	}
	return change
}
