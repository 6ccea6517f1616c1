package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// operationMetrics is the counter/histogram/error triple every component
// records through the Recorder interface.
type operationMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
}

func newOperationMetrics(subsystem, help string) operationMetrics {
	return operationMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shamzam",
				Subsystem: subsystem,
				Name:      "operations_total",
				Help:      "Total number of " + help + " operations",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "shamzam",
				Subsystem: subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Time taken by " + help + " operations",
				Buckets:   prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
			},
			[]string{"operation"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shamzam",
				Subsystem: subsystem,
				Name:      "errors_total",
				Help:      "Total number of failed " + help + " operations by error kind",
			},
			[]string{"operation", "error_type"},
		),
	}
}

func (m *operationMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.operationsTotal, m.operationDuration, m.errorsTotal}
}

// RecordOperation implements Recorder.
func (m *operationMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *operationMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *operationMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

func registerAll(registry prometheus.Registerer, collectors ...prometheus.Collector) error {
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}
