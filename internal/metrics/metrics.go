package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketplace"

// Метки исходов для счетчиков.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

type Metrics struct {
	registry *prometheus.Registry

	OrdersCreated         prometheus.Counter
	PaymentPushes         *prometheus.CounterVec
	PaymentCallbacks      *prometheus.CounterVec
	ReelViews             prometheus.Counter
	IdentityVerifications *prometheus.CounterVec
	RateLimited           *prometheus.CounterVec
}

// New создает собственный реестр, чтобы тесты не конфликтовали с глобальным.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders committed to the database.",
		}),
		PaymentPushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_pushes_total",
			Help:      "Mobile-money push requests by outcome.",
		}, []string{"outcome"}),
		PaymentCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callbacks_total",
			Help:      "Payment state updates received from the provider, by resulting state.",
		}, []string{"state"}),
		ReelViews: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reel_views_total",
			Help:      "Reel view increments.",
		}),
		IdentityVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_verifications_total",
			Help:      "Third-party identity verifications by endpoint that accepted the token.",
		}, []string{"outcome"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.OrdersCreated,
		m.PaymentPushes,
		m.PaymentCallbacks,
		m.ReelViews,
		m.IdentityVerifications,
		m.RateLimited,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
