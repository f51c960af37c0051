package events

import (
	"context"
	"errors"

	apperrors "bookingguard/pkg/errors"
	"bookingguard/pkg/kafka"
	"bookingguard/pkg/logger"
)

// ConsumerHandler turns booking event records into pipeline dispatches and
// publishes each resulting verdict.
type ConsumerHandler struct {
	pipeline *Pipeline
	verdicts *VerdictPublisher
	log      *logger.Logger
}

func NewConsumerHandler(pipeline *Pipeline, verdicts *VerdictPublisher, log *logger.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		pipeline: pipeline,
		verdicts: verdicts,
		log:      log,
	}
}

// Handle is a kafka.MessageHandler. Undecodable records and rejected input
// are permanent. Record store faults and publish failures are transient so
// the consumer retries them.
func (h *ConsumerHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var evt Event
	if err := msg.DecodeValue(&evt); err != nil {
		return kafka.NewPermanentError("malformed booking event", err)
	}
	if evt.CorrelationID == "" {
		evt.CorrelationID = msg.GetCorrelationID()
	}
	if evt.CorrelationID == "" {
		evt.CorrelationID = msg.GetEventID()
	}

	verdicts, err := h.pipeline.Dispatch(ctx, &evt)
	if err != nil {
		return classify(err)
	}

	for _, verdict := range verdicts {
		if err := h.verdicts.Publish(ctx, &evt, verdict); err != nil {
			return kafka.NewTransientError("failed to publish booking verdict", err)
		}
		h.log.Info("Booking verdict published",
			"booking_id", evt.ID,
			"work_order_id", verdict.WorkOrderID,
			"accepted", verdict.Accepted,
			"correlation_id", evt.CorrelationID,
		)
	}
	return nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return kafka.NewTransientError("booking validation timed out", err)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.CodeGatewayFault, apperrors.CodeTimeout, apperrors.CodeUnavailable:
			return kafka.NewTransientError("booking validation unavailable", err)
		}
	}

	return kafka.NewPermanentError("booking event rejected", err)
}
