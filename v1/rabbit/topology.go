package rabbit

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/vector-db-proxy/v1/observability"
)

// Declaration steps reported in TopologyError.Step.
const (
	StepExchangeDeclare = "exchange_declare"
	StepQos             = "qos"
	StepQueueDeclare    = "queue_declare"
	StepQueueBind       = "queue_bind"
)

// SpanTracer is the span surface Bind reports through. *tracer.Tracer
// satisfies it.
type SpanTracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, trace.Span)
	SetAttributes(span trace.Span, attrs map[string]interface{})
	RecordErrorOnSpan(span trace.Span, err error)
}

// Binder declares the ingestion topology on a session.
type Binder struct {
	logger   Logger
	observer observability.Observer
	tracer   SpanTracer
}

// NewBinder creates a Binder.
func NewBinder(log Logger) *Binder {
	return &Binder{logger: log, observer: observability.Nop}
}

// WithObserver sets the operation observer; nil restores the no-op observer.
func (b *Binder) WithObserver(o observability.Observer) *Binder {
	if o == nil {
		o = observability.Nop
	}
	b.observer = o
	return b
}

// WithTracer wraps every Bind in a "rabbit.bind" span.
func (b *Binder) WithTracer(t SpanTracer) *Binder {
	b.tracer = t
	return b
}

// Bind makes sure session is connected and declares topo on it: the
// exchange, the prefetch limit, the stream queue and finally the binding. A
// closed channel is reopened before binding. Declaration failures are returned
// as *TopologyError and are not retried.
func (b *Binder) Bind(ctx context.Context, session *Session, topo Topology) (err error) {
	start := time.Now()
	defer func() {
		b.observer.ObserveOperation(observability.OperationContext{
			Component:   "rabbit",
			Operation:   "bind",
			Resource:    topo.ExchangeName,
			SubResource: topo.QueueName,
			Duration:    time.Since(start),
			Error:       err,
		})
	}()

	topo = topo.withDefaults()
	fields := map[string]interface{}{
		"exchange":    topo.ExchangeName,
		"queue":       topo.QueueName,
		"routing_key": topo.RoutingKey,
	}

	if b.tracer != nil {
		var span trace.Span
		ctx, span = b.tracer.StartSpan(ctx, "rabbit.bind")
		b.tracer.SetAttributes(span, fields)
		defer func() {
			if err != nil {
				b.tracer.RecordErrorOnSpan(span, err)
			}
			span.End()
		}()
	}

	if session.State() != StateOpen {
		b.logger.InfoWithContext(ctx, "rabbitmq connection not open, reconnecting", nil, fields)
		if err := session.Reconnect(ctx); err != nil {
			return err
		}
	}

	ch := session.Channel()
	if ch == nil {
		return ErrNotConnected
	}

	if err := ch.ExchangeDeclare(
		topo.ExchangeName,
		topo.ExchangeType,
		topo.ExchangeDurable,
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,
	); err != nil {
		return b.fail(ctx, StepExchangeDeclare, err, fields)
	}

	if err := ch.Qos(topo.PrefetchCount, 0, false); err != nil {
		return b.fail(ctx, StepQos, err, fields)
	}

	queue, err := ch.QueueDeclare(
		topo.QueueName,
		true,  // Durable
		false, // AutoDelete
		false, // Exclusive
		false, // NoWait
		amqp.Table{"x-queue-type": topo.QueueType},
	)
	if err != nil {
		return b.fail(ctx, StepQueueDeclare, err, fields)
	}

	if ch.IsClosed() {
		b.logger.WarnWithContext(ctx, "rabbitmq channel closed during setup, reopening", nil, fields)
		if err := session.ReopenChannel(ctx); err != nil {
			return err
		}
		ch = session.Channel()
	}

	if err := ch.QueueBind(queue.Name, topo.RoutingKey, topo.ExchangeName, false, nil); err != nil {
		return b.fail(ctx, StepQueueBind, err, fields)
	}

	b.logger.InfoWithContext(ctx, "rabbitmq topology bound", nil, fields)
	return nil
}

func (b *Binder) fail(ctx context.Context, step string, err error, fields map[string]interface{}) error {
	b.logger.ErrorWithContext(ctx, "rabbitmq topology setup failed", err, fields, map[string]interface{}{
		"step": step,
		"kind": TranslateError(err).Error(),
	})
	return &TopologyError{Step: step, Err: err}
}

// Watch rebinds the session every time its connection or channel closes. It
// binds first if the session is not open. A lost channel on a live connection
// is reopened before binding. It returns nil when ctx is done and the
// TopologyError when a rebind fails at declaration time.
func (b *Binder) Watch(ctx context.Context, session *Session, topo Topology) error {
	channelLost := false
	for {
		if session.State() != StateOpen || channelLost {
			err := b.rebind(ctx, session, topo, channelLost)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, ErrTopologySetup) {
					return err
				}
				b.logger.ErrorWithContext(ctx, "rabbitmq rebind failed, retrying", err)
				if err := session.sup.sleep(ctx, session.sup.cfg.Retry.backOff().NextBackOff()); err != nil {
					return nil
				}
				continue
			}
			channelLost = false
		}

		connClosed := session.Connection().NotifyClose(make(chan *amqp.Error, 1))
		// A nil channel never fires in the select below.
		var chClosed chan *amqp.Error
		if ch := session.Channel(); ch != nil {
			chClosed = ch.NotifyClose(make(chan *amqp.Error, 1))
		}

		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-connClosed:
			if ok && e != nil {
				b.logger.WarnWithContext(ctx, "rabbitmq connection lost, rebinding", e, map[string]interface{}{
					"kind": TranslateError(e).Error(),
				})
			}
		case e, ok := <-chClosed:
			if ok && e != nil {
				b.logger.WarnWithContext(ctx, "rabbitmq channel lost, rebinding", e, map[string]interface{}{
					"kind": TranslateError(e).Error(),
				})
			}
			channelLost = true
		}
	}
}

// rebind reopens the channel when only the channel was lost, then binds.
func (b *Binder) rebind(ctx context.Context, session *Session, topo Topology, channelLost bool) error {
	if channelLost && session.State() == StateOpen {
		if err := session.ReopenChannel(ctx); err != nil {
			return err
		}
	}
	return b.Bind(ctx, session, topo)
}

func (t Topology) withDefaults() Topology {
	d := DefaultTopology()
	if t.ExchangeType == "" {
		t.ExchangeType = d.ExchangeType
	}
	if t.QueueType == "" {
		t.QueueType = d.QueueType
	}
	if t.PrefetchCount == 0 {
		t.PrefetchCount = d.PrefetchCount
	}
	return t
}
