// Package rabbit keeps a RabbitMQ session connected and its ingestion
// topology declared.
//
// # Architecture
//
//   - Supervisor dials the broker through a Dialer, retrying per RetryPolicy,
//     and opens channels. It logs close, blocked and cancel notifications.
//   - Session holds the current connection and channel. Reconnect and
//     ReopenChannel replace them atomically; callers only read them.
//   - Binder declares the direct exchange, the prefetch limit, the durable
//     stream queue and the binding. Watch repeats this after every reconnect.
//
// Connection, Channel and Dialer are narrow interfaces over amqp091-go so the
// state machine can be tested without a broker.
//
// # Direct Usage (Without FX)
//
//	cfg := rabbit.DefaultConfig()
//	cfg.Topology.ExchangeName = "ingest"
//	cfg.Topology.QueueName = "documents"
//	cfg.Topology.RoutingKey = "documents"
//
//	sup := rabbit.NewSupervisor(cfg, rabbit.AMQPDialer{}, log)
//	session := rabbit.NewSession(sup)
//	binder := rabbit.NewBinder(log)
//
//	if err := binder.Bind(ctx, session, cfg.Topology); err != nil {
//		return err
//	}
//	go binder.Watch(ctx, session, cfg.Topology)
//
// # Errors
//
// Connect under the default policy only fails when its context ends. A
// bounded policy yields ErrConnectionUnavailable. Declaration failures are
// *TopologyError values matching ErrTopologySetup and are not retried.
// TranslateError classifies raw broker and network errors.
//
// # FX Module
//
// FXModule provides *Supervisor, *Session and *Binder, binds on start, runs
// Watch in the background and closes the session on stop.
package rabbit
