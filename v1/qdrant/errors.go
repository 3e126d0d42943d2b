package qdrant

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrCollectionNotFound is returned by BulkUpsert when the target
	// collection is missing and could not be created.
	ErrCollectionNotFound = errors.New("collection does not exist")

	// ErrServiceCall wraps any failure reported by the vector service.
	ErrServiceCall = errors.New("qdrant service call failed")

	// ErrClientNotInitialized is returned when the store has no service handle.
	ErrClientNotInitialized = errors.New("qdrant client not initialized")

	// ErrEmptyCollectionName is returned when an operation targets "".
	ErrEmptyCollectionName = errors.New("collection name cannot be empty")

	// ErrEmptyVector is returned by Search for a zero-length query vector.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrInvalidLimit is returned when a query asks for zero results.
	ErrInvalidLimit = errors.New("limit must be greater than 0")

	// ErrInvalidPointID is returned for IDs that are neither numeric nor UUIDs.
	ErrInvalidPointID = errors.New("point id must be an unsigned integer or a UUID")
)

// serviceError wraps err so callers can match both ErrServiceCall and the cause.
func serviceError(op string, err error) error {
	return &ServiceError{Op: op, Code: status.Code(err), Err: err}
}

// ServiceError carries the failed operation and the gRPC status code.
type ServiceError struct {
	Op   string
	Code codes.Code
	Err  error
}

func (e *ServiceError) Error() string {
	return "qdrant " + e.Op + " failed (" + e.Code.String() + "): " + e.Err.Error()
}

func (e *ServiceError) Unwrap() []error {
	return []error{ErrServiceCall, e.Err}
}

// IsUnavailable reports whether err is a transport-level failure that may
// succeed on retry.
func IsUnavailable(err error) bool {
	var se *ServiceError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}
