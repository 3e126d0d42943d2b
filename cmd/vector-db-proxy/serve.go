package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/Aleph-Alpha/vector-db-proxy/v1/config"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/logger"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/metrics"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/qdrant"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/rabbit"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/tracer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the proxy",
	Long: `Run the proxy until interrupted.

On start the configured collection is created if it does not exist, the
RabbitMQ exchange, stream queue and binding are declared, and the metrics
server starts listening. Lost broker connections are re-established and the
topology is declared again.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := append(appOptions(cfg), fx.WithLogger(func(l *logger.LoggerClient) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: l.Zap}
	}))
	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	app.Run()
	return nil
}

// appOptions assembles every module of the proxy around cfg.
func appOptions(cfg config.Config) []fx.Option {
	return []fx.Option{
		fx.Supply(cfg),
		config.FXModule,
		logger.FXModule,
		fx.Provide(
			func(l *logger.LoggerClient) qdrant.Logger { return l },
			func(l *logger.LoggerClient) rabbit.Logger { return l },
			func(l *logger.LoggerClient) metrics.Logger { return l },
			func(l *logger.LoggerClient) tracer.Logger { return l },
			func(t *tracer.Tracer) rabbit.SpanTracer { return t },
		),
		tracer.FXModule,
		metrics.FXModule,
		qdrant.FXModule,
		rabbit.FXModule,
		fx.Invoke(registerCollectionCheck),
	}
}

// registerCollectionCheck makes sure the configured collection exists before
// the application reports itself started.
func registerCollectionCheck(lc fx.Lifecycle, store *qdrant.Store, mc metrics.MetricsCollector, log *logger.LoggerClient) {
	check := newCollectionCheck(store, mc, log)
	lc.Append(fx.Hook{
		OnStart: check.run,
	})
}

// collectionCheck ensures the store's collection and publishes the outcome as
// the collection_ready gauge.
type collectionCheck struct {
	store *qdrant.Store
	ready *prometheus.GaugeVec
	log   qdrant.Logger
}

func newCollectionCheck(store *qdrant.Store, mc metrics.MetricsCollector, log qdrant.Logger) *collectionCheck {
	return &collectionCheck{
		store: store,
		ready: mc.CreateGauge("collection_ready", "1 when the configured qdrant collection exists.", []string{"collection"}),
		log:   log,
	}
}

func (c *collectionCheck) run(ctx context.Context) error {
	name := c.store.Collection()
	if name == "" {
		c.log.Warn("no qdrant collection configured, skipping collection check", nil)
		return nil
	}

	gauge := c.ready.WithLabelValues(name)
	gauge.Set(0)

	ok, err := c.store.EnsureCollection(ctx, name, qdrant.CreateIfNeeded)
	switch {
	case err != nil && qdrant.IsUnavailable(err):
		return fmt.Errorf("qdrant unreachable while checking collection %q: %w", name, err)
	case err != nil:
		return err
	case !ok:
		return fmt.Errorf("collection %q: %w", name, qdrant.ErrCollectionNotFound)
	}

	gauge.Set(1)
	return nil
}
