package tracer

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// FXModule provides *Tracer and its trace.TracerProvider, and flushes pending
// spans on shutdown.
//
//	app := fx.New(
//	    logger.FXModule,
//	    tracer.FXModule,
//	    fx.Provide(func() tracer.Config { return cfg.Tracer }),
//	)
var FXModule = fx.Module("tracer",
	fx.Provide(
		NewClient,
		func(t *Tracer) trace.TracerProvider { return t.Provider() },
	),
	fx.Invoke(RegisterTracerLifecycle),
)

// RegisterTracerLifecycle shuts the tracer provider down when the app stops.
func RegisterTracerLifecycle(lc fx.Lifecycle, tracer *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if tracer == nil || tracer.tracer == nil {
				return nil
			}
			tracer.logger.Info("shutting down tracer", nil, nil)
			return tracer.tracer.Shutdown(ctx)
		},
	})
}
