package rabbit

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vector-db-proxy/v1/observability"
)

// FXModule provides the broker Supervisor, Session and Binder and keeps the
// ingestion topology bound for the lifetime of the application.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    rabbit.FXModule,
//	    fx.Provide(func() rabbit.Config { return cfg.Rabbit }),
//	)
var FXModule = fx.Module("rabbit",
	fx.Provide(
		NewSupervisorWithDI,
		NewSession,
		NewBinderWithDI,
	),
	fx.Invoke(RegisterRabbitLifecycle),
)

// RabbitParams groups the dependencies needed to create a Supervisor.
type RabbitParams struct {
	fx.In

	Config   Config
	Logger   Logger
	Dialer   Dialer                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewSupervisorWithDI creates a Supervisor from injected dependencies. The
// AMQP dialer is used unless another Dialer is provided.
func NewSupervisorWithDI(p RabbitParams) *Supervisor {
	return NewSupervisor(p.Config, p.Dialer, p.Logger).WithObserver(p.Observer)
}

// BinderParams groups the dependencies of a Binder.
type BinderParams struct {
	fx.In

	Logger   Logger
	Observer observability.Observer `optional:"true"`
	Tracer   SpanTracer             `optional:"true"`
}

// NewBinderWithDI creates a Binder from injected dependencies.
func NewBinderWithDI(p BinderParams) *Binder {
	return NewBinder(p.Logger).WithObserver(p.Observer).WithTracer(p.Tracer)
}

// RabbitLifecycleParams groups the dependencies needed for lifecycle management.
type RabbitLifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Session    *Session
	Binder     *Binder
	Config     Config
	Logger     Logger
}

// RegisterRabbitLifecycle binds the topology on start and then watches the
// connection, rebinding after every reconnect. A rebind that fails at
// declaration time shuts the application down. On stop the watcher is
// cancelled and the session closed.
func RegisterRabbitLifecycle(p RabbitLifecycleParams) {
	var (
		wg     sync.WaitGroup
		cancel context.CancelFunc
	)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Binder.Bind(ctx, p.Session, p.Config.Topology); err != nil {
				return err
			}

			var watchCtx context.Context
			watchCtx, cancel = context.WithCancel(context.Background())
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := p.Binder.Watch(watchCtx, p.Session, p.Config.Topology); err != nil {
					p.Logger.ErrorWithContext(watchCtx, "rabbitmq topology lost, shutting down", err)
					_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			wg.Wait()
			p.Logger.InfoWithContext(ctx, "closing rabbitmq session", nil)
			return p.Session.Close()
		},
	})
}
