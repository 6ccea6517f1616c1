package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RecognitionMetrics tracks provider calls and reconciliation outcomes.
type RecognitionMetrics struct {
	operationMetrics
	outcomesTotal *prometheus.CounterVec
}

// NewRecognitionMetrics creates and registers recognition metrics.
func NewRecognitionMetrics(registry prometheus.Registerer) (*RecognitionMetrics, error) {
	m := &RecognitionMetrics{
		operationMetrics: newOperationMetrics("recognition", "recognition provider"),
		outcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shamzam",
				Subsystem: "recognition",
				Name:      "outcomes_total",
				Help:      "Recognition requests by final outcome",
			},
			[]string{"outcome"},
		),
	}
	if err := registerAll(registry, append(m.collectors(), m.outcomesTotal)...); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOutcome counts a finished recognition by outcome kind
// ("unrecognized", "cataloged", "absent", "failed").
func (m *RecognitionMetrics) RecordOutcome(outcome string) {
	m.outcomesTotal.WithLabelValues(outcome).Inc()
}
