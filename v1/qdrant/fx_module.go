package qdrant

import (
	"context"

	"github.com/Aleph-Alpha/vector-db-proxy/v1/observability"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// FXModule provides a connected Service and a Store bound to Config.Collection.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    qdrant.FXModule,
//	    fx.Provide(func() qdrant.Config { return cfg.Qdrant }),
//	)
var FXModule = fx.Module("qdrant",
	fx.Provide(
		NewServiceWithDI,
		NewStoreWithDI,
	),
	fx.Invoke(RegisterQdrantLifecycle),
)

// ServiceParams groups the dependencies needed to dial Qdrant.
type ServiceParams struct {
	fx.In

	Config Config
	Logger Logger
}

// NewServiceWithDI dials Qdrant during construction.
func NewServiceWithDI(p ServiceParams) (Service, error) {
	return Dial(context.Background(), p.Config, p.Logger)
}

// StoreParams groups the dependencies of a Store.
type StoreParams struct {
	fx.In

	Service        Service
	Config         Config
	Logger         Logger
	Observer       observability.Observer `optional:"true"`
	TracerProvider trace.TracerProvider   `optional:"true"`
}

// NewStoreWithDI builds a Store from injected dependencies.
func NewStoreWithDI(p StoreParams) *Store {
	store := NewStore(p.Service, p.Config, p.Logger).WithObserver(p.Observer)
	if p.TracerProvider != nil {
		store = store.WithTracerProvider(p.TracerProvider)
	}
	return store
}

// RegisterQdrantLifecycle closes the store's service handle on shutdown.
func RegisterQdrantLifecycle(lc fx.Lifecycle, store *Store, log Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing qdrant client", nil)
			return store.Close()
		},
	})
}
