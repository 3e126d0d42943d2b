// Package metrics exposes Prometheus metrics for vector-db-proxy.
//
// *Metrics implements observability.Observer, so the qdrant and rabbit
// packages report every external call here without knowing about
// Prometheus. Each process gets an isolated registry whose metrics all carry
// a constant service label.
//
// # Direct Usage
//
//	m := metrics.NewMetrics(metrics.Config{
//		Address:                 ":9090",
//		EnableDefaultCollectors: true,
//		Namespace:               "vectorproxy",
//		ServiceName:             "vector-db-proxy",
//	})
//	go m.Server.ListenAndServe()
//
//	store := qdrant.NewStore(svc, cfg, log).WithObserver(m)
//
// # FX Module Integration
//
//	app := fx.New(
//		metrics.FXModule, // provides *Metrics, MetricsCollector, observability.Observer
//		fx.Provide(func() metrics.Config { return metrics.DefaultConfig() }),
//	)
//
// Metrics are served at http://<address>/metrics.
package metrics
