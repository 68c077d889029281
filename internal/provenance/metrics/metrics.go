package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts provenance appends.
type Metrics struct {
	Appended *prometheus.CounterVec
	Rejected *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Appended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_provenance_appended_total",
			Help: "Total number of provenance records appended, by kind",
		}, []string{"kind"}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_provenance_rejected_total",
			Help: "Provenance appends that failed, by kind and error code",
		}, []string{"kind", "code"}),
	}
}
