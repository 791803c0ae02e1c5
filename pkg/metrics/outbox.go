package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks how domain events leave the outbox table.
type OutboxMetrics struct {
	events *prometheus.CounterVec
	lag    prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox rows handled by event type and outcome (published, retry, parked).",
		}, []string{"event_type", "outcome"}),
		lag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "outbox_publish_lag_seconds",
			Help:    "Delay between a domain event being recorded and reaching Pub/Sub.",
			Buckets: []float64{.1, .5, 1, 5, 30, 120, 600, 3600},
		}),
	}
	reg.MustRegister(m.events, m.lag)
	return m
}

func (m *OutboxMetrics) ObserveEvent(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
}

// ObserveLag records publish delay for a row created at recordedAt.
func (m *OutboxMetrics) ObserveLag(recordedAt, publishedAt time.Time) {
	if m == nil || m.lag == nil || recordedAt.IsZero() {
		return
	}
	lag := publishedAt.Sub(recordedAt)
	if lag < 0 {
		lag = 0
	}
	m.lag.Observe(lag.Seconds())
}
