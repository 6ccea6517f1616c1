package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics contains Prometheus metrics for catalog store operations.
type CatalogMetrics struct {
	operationMetrics
	tracksGauge prometheus.Gauge
}

// NewCatalogMetrics creates and registers catalog metrics.
func NewCatalogMetrics(registry prometheus.Registerer) (*CatalogMetrics, error) {
	m := &CatalogMetrics{
		operationMetrics: newOperationMetrics("catalog", "catalog"),
		tracksGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shamzam",
			Subsystem: "catalog",
			Name:      "tracks",
			Help:      "Number of tracks in the catalog at the last count",
		}),
	}
	if err := registerAll(registry, append(m.collectors(), m.tracksGauge)...); err != nil {
		return nil, err
	}
	return m, nil
}

// SetTrackCount records the current catalog size.
func (m *CatalogMetrics) SetTrackCount(n int64) {
	m.tracksGauge.Set(float64(n))
}
