// Package logger provides the structured logger used across vector-db-proxy.
//
// It wraps go.uber.org/zap behind a small map-based API so that packages can
// declare a narrow Logger interface and mock it in tests.
//
// # Direct Usage
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:         "info",
//		ServiceName:   "vector-db-proxy",
//		EnableTracing: true,
//	})
//
//	log.Info("collection ready", nil, map[string]interface{}{
//		"collection": "documents",
//	})
//
//	// Adds trace_id and span_id when ctx carries an active span.
//	log.ErrorWithContext(ctx, "recommend failed", err, nil)
//
// # FX Module Integration
//
//	app := fx.New(
//		logger.FXModule, // provides *LoggerClient and logger.Logger
//		fx.Provide(func() logger.Config { return logger.DefaultConfig() }),
//	)
//
// # Configuration
//
// Level accepts "debug", "info", "warning" and "error"; unknown values fall
// back to INFO. The config loader maps VECTORPROXY_LOGGER__LEVEL onto it.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package logger
