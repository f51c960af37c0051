package events

import (
	"context"
	"fmt"

	"bookingguard/internal/bookings/service"
	"bookingguard/pkg/logger"
	"bookingguard/pkg/model"
)

// Stage is the point in the upstream save where an event was raised.
type Stage int

const (
	StagePreValidation Stage = 10
	StagePreOperation  Stage = 20
	StagePostOperation Stage = 40
)

func (s Stage) String() string {
	switch s {
	case StagePreValidation:
		return "pre_validation"
	case StagePreOperation:
		return "pre_operation"
	case StagePostOperation:
		return "post_operation"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

type MessageName string

const (
	MessageCreate MessageName = "Create"
	MessageUpdate MessageName = "Update"
)

const EntityBooking = "bookableresourcebooking"

// Event is one booking change raised by the upstream CRM. Target holds only
// the fields the change supplies. PreImage is the stored record before an
// update and is empty on create.
type Event struct {
	ID            string              `json:"id,omitempty"`
	Stage         Stage               `json:"stage"`
	Message       MessageName         `json:"message"`
	Entity        string              `json:"entity"`
	Target        model.BookingChange `json:"target"`
	PreImage      *model.Booking      `json:"pre_image,omitempty"`
	CorrelationID string              `json:"correlation_id,omitempty"`
}

// Handler reacts to a matched event with a verdict.
type Handler func(ctx context.Context, evt *Event) (*model.Verdict, error)

// Registration pairs a guard on the event descriptors with its handler.
type Registration struct {
	Stage   Stage
	Message MessageName
	Entity  string
	Handler Handler
}

func (r Registration) Matches(evt *Event) bool {
	return evt != nil &&
		r.Stage == evt.Stage &&
		r.Message == evt.Message &&
		r.Entity == evt.Entity
}

type Pipeline struct {
	registrations []Registration
	log           *logger.Logger
}

func NewPipeline(log *logger.Logger, registrations ...Registration) *Pipeline {
	return &Pipeline{
		registrations: registrations,
		log:           log,
	}
}

func (p *Pipeline) Register(reg Registration) {
	p.registrations = append(p.registrations, reg)
}

// Dispatch runs every matching handler in registration order and collects
// their verdicts. The first handler error stops the dispatch.
func (p *Pipeline) Dispatch(ctx context.Context, evt *Event) ([]*model.Verdict, error) {
	if evt == nil {
		return nil, nil
	}

	var verdicts []*model.Verdict
	matched := false
	for _, reg := range p.registrations {
		if !reg.Matches(evt) {
			continue
		}
		matched = true
		verdict, err := reg.Handler(ctx, evt)
		if err != nil {
			return verdicts, err
		}
		if verdict != nil {
			verdicts = append(verdicts, verdict)
		}
	}

	if !matched {
		p.log.Debug("No registration matched booking event",
			"stage", evt.Stage.String(),
			"message", evt.Message,
			"entity", evt.Entity,
			"correlation_id", evt.CorrelationID,
		)
	}
	return verdicts, nil
}

// BookingRegistrations wires the same-day guard to the create and update
// pre-operation events.
func BookingRegistrations(svc service.BookingService) []Registration {
	handler := validateHandler(svc)
	return []Registration{
		{Stage: StagePreOperation, Message: MessageCreate, Entity: EntityBooking, Handler: handler},
		{Stage: StagePreOperation, Message: MessageUpdate, Entity: EntityBooking, Handler: handler},
	}
}

func validateHandler(svc service.BookingService) Handler {
	return func(ctx context.Context, evt *Event) (*model.Verdict, error) {
		req := &model.ValidationRequest{
			ID:        evt.ID,
			Candidate: evt.Target,
			IsUpdate:  evt.Message == MessageUpdate,
		}
		if req.IsUpdate {
			req.PriorState = evt.PreImage
			if req.ID == "" && evt.PreImage != nil {
				req.ID = evt.PreImage.ID
			}
		}
		return svc.ValidateBooking(ctx, req)
	}
}
