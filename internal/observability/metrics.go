// Package observability wires the Prometheus registry and metric collectors
// for the whole application.
package observability

import (
	"fmt"
	stdlog "log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adamokeah/shamzam/internal/logger"
	"github.com/adamokeah/shamzam/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry    *prometheus.Registry
	Catalog     *metrics.CatalogMetrics
	Recognition *metrics.RecognitionMetrics
	HTTP        *metrics.HTTPMetrics
	MQTT        *metrics.MQTTMetrics
}

// NewMetrics creates a registry with process/Go collectors and all component metrics.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	catalogMetrics, err := metrics.NewCatalogMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog metrics: %w", err)
	}

	recognitionMetrics, err := metrics.NewRecognitionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create recognition metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	return &Metrics{
		registry:    registry,
		Catalog:     catalogMetrics,
		Recognition: recognitionMetrics,
		HTTP:        httpMetrics,
		MQTT:        mqttMetrics,
	}, nil
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler(log logger.Logger) http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      stdlog.New(promErrorWriter{log}, "", 0),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// promErrorWriter forwards promhttp's error log lines to Logger.
type promErrorWriter struct {
	log logger.Logger
}

func (w promErrorWriter) Write(p []byte) (int, error) {
	if w.log != nil {
		w.log.Warn("metrics handler error", logger.String("detail", string(p)))
	}
	return len(p), nil
}
