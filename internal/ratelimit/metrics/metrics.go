package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"provenant/internal/ratelimit/models"
)

type Metrics struct {
	Decisions     *prometheus.CounterVec
	StoreFailures prometheus.Counter
	Degraded      prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_ratelimit_decisions_total",
			Help: "Rate limit decisions by endpoint class and outcome",
		}, []string{"class", "outcome"}),
		StoreFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_ratelimit_store_failures_total",
			Help: "Failed checks against the primary bucket store",
		}),
		Degraded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "provenant_ratelimit_degraded",
			Help: "1 while checks are served by the in-process fallback",
		}),
	}
}

func (m *Metrics) ObserveDecision(class models.Class, allowed bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.Decisions.WithLabelValues(string(class), outcome).Inc()
}

func (m *Metrics) IncrementStoreFailures() {
	if m == nil {
		return
	}
	m.StoreFailures.Inc()
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.Degraded.Set(1)
		return
	}
	m.Degraded.Set(0)
}
