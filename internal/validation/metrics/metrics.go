package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks validator submissions and lab reviews.
type Metrics struct {
	Submissions      *prometheus.CounterVec
	ConsensusReached prometheus.Counter
	TestResults      *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_validation_submissions_total",
			Help: "Total number of validator submissions, by result",
		}, []string{"result"}),
		ConsensusReached: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_validation_consensus_reached_total",
			Help: "Number of times a passport reached the validation threshold",
		}),
		TestResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_test_results_total",
			Help: "Lab test result transitions, by resulting status",
		}, []string{"status"}),
	}
}

// IncrementSubmission records one accepted submission.
func (m *Metrics) IncrementSubmission(passed bool) {
	result := "failed"
	if passed {
		result = "passed"
	}
	m.Submissions.WithLabelValues(result).Inc()
}
