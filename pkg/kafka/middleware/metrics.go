package kafka_middleware

import (
	"context"
	"time"

	"bookingguard/pkg/kafka"
	"bookingguard/pkg/metrics"
)

const (
	DirectionPublish = "publish"
	DirectionConsume = "consume"
)

func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return observe(m, DirectionPublish)
}

func MetricsConsumerMiddleware(m *metrics.Metrics) kafka.ConsumerMiddleware {
	return observe(m, DirectionConsume)
}

func observe(m *metrics.Metrics, direction string) kafka.Middleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.ObserveKafka(direction, start, err)
		return err
	}
}
