package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus registry and the HTTP server exposing it.
type Metrics struct {
	// Server serves the /metrics endpoint.
	Server *http.Server

	// Registry is isolated per service to prevent metric name collisions.
	Registry *prometheus.Registry

	registerer prometheus.Registerer
	namespace  string

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationSize     *prometheus.HistogramVec
	reconnectsTotal   *prometheus.CounterVec
}

// NewMetrics creates the registry, the built-in proxy metrics and the HTTP
// server. The server is not started; RegisterMetricsLifecycle does that.
//
// Built-in metrics (all carry the constant label service=<cfg.ServiceName>):
//   - operations_total{component,operation,status}
//   - operation_duration_seconds{component,operation}
//   - operation_size{component,operation}
//   - broker_reconnects_total{outcome}
//
// Example:
//
//	m := metrics.NewMetrics(metrics.DefaultConfig())
//	go m.Server.ListenAndServe()
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	wrappedRegistry := prometheus.WrapRegistererWith(
		prometheus.Labels{"service": cfg.ServiceName},
		registry,
	)

	m := &Metrics{
		Registry:   registry,
		registerer: wrappedRegistry,
		namespace:  cfg.Namespace,
	}

	m.operationsTotal = createCounterVec(cfg.Namespace, "operations_total",
		"Total number of operations issued against the vector and broker services",
		[]string{"component", "operation", "status"})
	m.operationDuration = createHistogramVec(cfg.Namespace, "operation_duration_seconds",
		"Duration of operations against the vector and broker services in seconds",
		[]string{"component", "operation"}, prometheus.DefBuckets)
	m.operationSize = createHistogramVec(cfg.Namespace, "operation_size",
		"Points written or results returned per operation",
		[]string{"component", "operation"}, prometheus.ExponentialBuckets(1, 4, 8))
	m.reconnectsTotal = createCounterVec(cfg.Namespace, "broker_reconnects_total",
		"Broker connection attempts grouped by outcome",
		[]string{"outcome"})

	wrappedRegistry.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.operationSize,
		m.reconnectsTotal,
	)

	if cfg.EnableDefaultCollectors {
		wrappedRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	address := cfg.Address
	if address == "" {
		address = DefaultMetricsAddress
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	m.Server = &http.Server{
		Addr:    address,
		Handler: mux,
	}
	return m
}
