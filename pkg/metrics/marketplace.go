package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MarketplaceMetrics counts reservation, checkout and webhook outcomes.
type MarketplaceMetrics struct {
	reservations *prometheus.CounterVec
	rollbacks    prometheus.Counter
	webhooks     *prometheus.CounterVec
	offers       *prometheus.CounterVec
}

// NewMarketplaceMetrics registers the marketplace counters on reg. A nil
// registerer yields a no-op recorder.
func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_reservations_total",
		Help: "Checkout reservation attempts by outcome.",
	}, []string{"outcome"})
	rollbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_rollbacks_total",
		Help: "Reservations reverted after a failed checkout step.",
	})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	offers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offer_transitions_total",
		Help: "Offer actions by action and outcome.",
	}, []string{"action", "outcome"})
	reg.MustRegister(reservations, rollbacks, webhooks, offers)
	return &MarketplaceMetrics{
		reservations: reservations,
		rollbacks:    rollbacks,
		webhooks:     webhooks,
		offers:       offers,
	}
}

func (m *MarketplaceMetrics) ObserveReservation(outcome string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *MarketplaceMetrics) IncRollback() {
	if m == nil || m.rollbacks == nil {
		return
	}
	m.rollbacks.Inc()
}

func (m *MarketplaceMetrics) ObserveWebhook(eventType, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *MarketplaceMetrics) ObserveOfferAction(action, outcome string) {
	if m == nil || m.offers == nil {
		return
	}
	m.offers.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}
