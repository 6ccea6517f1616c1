package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics tracks the outcome event publisher.
type MQTTMetrics struct {
	operationMetrics
	connected prometheus.Gauge
}

// NewMQTTMetrics creates and registers MQTT metrics.
func NewMQTTMetrics(registry prometheus.Registerer) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		operationMetrics: newOperationMetrics("mqtt", "MQTT"),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shamzam",
			Subsystem: "mqtt",
			Name:      "connected",
			Help:      "1 when the MQTT client is connected to the broker",
		}),
	}
	if err := registerAll(registry, append(m.collectors(), m.connected)...); err != nil {
		return nil, err
	}
	return m, nil
}

// SetConnected updates the connection gauge.
func (m *MQTTMetrics) SetConnected(connected bool) {
	if connected {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}
