package events

import (
	"context"
	"fmt"

	"bookingguard/pkg/kafka"
	"bookingguard/pkg/model"
)

const (
	EventTypeAccepted = "booking.accepted"
	EventTypeRejected = "booking.rejected"

	verdictSchemaVersion = "1"
	verdictSource        = "bookingguard"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type VerdictPublisher struct {
	publisher Publisher
}

func NewVerdictPublisher(p Publisher) *VerdictPublisher {
	return &VerdictPublisher{publisher: p}
}

// VerdictMessage is the payload written to the verdict topic.
type VerdictMessage struct {
	BookingID   string      `json:"booking_id,omitempty"`
	Message     MessageName `json:"message"`
	WorkOrderID string      `json:"work_order_id,omitempty"`
	Accepted    bool        `json:"accepted"`
	Reason      string      `json:"reason,omitempty"`
}

func (p *VerdictPublisher) Publish(ctx context.Context, evt *Event, verdict *model.Verdict) error {
	eventType := EventTypeAccepted
	if !verdict.Accepted {
		eventType = EventTypeRejected
	}

	key := verdict.WorkOrderID
	if key == "" {
		key = evt.ID
	}
	if key == "" {
		key = evt.CorrelationID
	}

	msg, err := kafka.NewMessage().
		WithKey(key).
		WithValue(VerdictMessage{
			BookingID:   evt.ID,
			Message:     evt.Message,
			WorkOrderID: verdict.WorkOrderID,
			Accepted:    verdict.Accepted,
			Reason:      verdict.Reason,
		}).
		WithEventType(eventType).
		WithCorrelationID(evt.CorrelationID).
		WithSchemaVersion(verdictSchemaVersion).
		WithSource(verdictSource).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build verdict message: %w", err)
	}

	return p.publisher.Publish(ctx, msg)
}
