package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookingguard"

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
)

// Metrics groups the collectors the service exports. Each instance owns its
// registry so tests can build isolated copies.
type Metrics struct {
	Registry *prometheus.Registry

	Validations     *prometheus.CounterVec
	GatewayCalls    *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
	KafkaMessages   *prometheus.CounterVec
	KafkaDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Booking validations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		GatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Record store calls issued by the query gateway.",
		}, []string{"operation", "outcome"}),
		GatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "Latency of query gateway calls, lock wait included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		KafkaMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_total",
			Help:      "Kafka messages handled by direction and outcome.",
		}, []string{"direction", "outcome"}),
		KafkaDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_message_duration_seconds",
			Help:      "Time spent publishing or consuming a Kafka message.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
	}

	m.Registry.MustRegister(
		m.Validations,
		m.GatewayCalls,
		m.GatewayDuration,
		m.KafkaMessages,
		m.KafkaDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObserveValidation(operation, outcome string) {
	m.Validations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveGatewayCall(operation string, started time.Time, err error) {
	m.GatewayDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	m.GatewayCalls.WithLabelValues(operation, outcomeOf(err)).Inc()
}

func (m *Metrics) ObserveKafka(direction string, started time.Time, err error) {
	m.KafkaDuration.WithLabelValues(direction).Observe(time.Since(started).Seconds())
	m.KafkaMessages.WithLabelValues(direction, outcomeOf(err)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
