// Package observability defines the hook that proxy components use to report
// the outcome of every call they make to an external service.
//
// Components never depend on a concrete metrics or tracing backend. They accept
// an optional Observer and emit one OperationContext per operation; the
// metrics package provides the Prometheus-backed implementation.
package observability

import "time"

// OperationContext describes a single completed operation.
type OperationContext struct {
	// Component is the emitting package, e.g. "qdrant" or "rabbit".
	Component string

	// Operation is the logical operation name, e.g. "search" or "connect".
	Operation string

	// Resource is the primary target (collection, exchange, queue).
	Resource string

	// SubResource carries secondary context such as a routing key.
	SubResource string

	// Duration is the wall time the operation took.
	Duration time.Duration

	// Error is the failure, or nil on success.
	Error error

	// Size is an operation-specific magnitude (points written, results returned).
	Size int64

	// Metadata holds optional extra labels.
	Metadata map[string]interface{}
}

// Observer receives operation notifications. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ctx OperationContext)

// ObserveOperation calls f(ctx).
func (f ObserverFunc) ObserveOperation(ctx OperationContext) {
	f(ctx)
}

// Nop is an Observer that discards every notification.
var Nop Observer = ObserverFunc(func(OperationContext) {})
