package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "provenant/pkg/domain-errors"
)

// Metrics provides observability for the passport module.
type Metrics struct {
	Created   prometheus.Counter
	Finalized *prometheus.CounterVec
	Rejected  *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
}

// New registers passport metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_passports_created_total",
			Help: "Total number of passports created",
		}),
		Finalized: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_passports_finalized_total",
			Help: "Total number of passports finalized, by grade",
		}, []string{"grade"}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_passport_operations_rejected_total",
			Help: "Passport operations that failed, by operation and error code",
		}, []string{"operation", "code"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provenant_passport_operation_duration_seconds",
			Help:    "Duration of passport operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// IncrementCreated records a successful creation.
func (m *Metrics) IncrementCreated() {
	m.Created.Inc()
}

// IncrementFinalized records a successful finalization.
func (m *Metrics) IncrementFinalized(grade string) {
	m.Finalized.WithLabelValues(grade).Inc()
}

// Observe records the duration of an operation and, on failure, its code.
// Call with time.Now() at the start of the operation.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	m.Duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.Rejected.WithLabelValues(operation, string(dErrors.CodeOf(err))).Inc()
	}
}
