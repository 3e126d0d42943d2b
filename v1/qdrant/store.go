package qdrant

import (
	"context"
	"sync"
	"time"

	"github.com/Aleph-Alpha/vector-db-proxy/v1/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -source=store.go -destination=mock_logger.go -package=qdrant

const (
	componentName       = "qdrant"
	instrumentationName = "github.com/Aleph-Alpha/vector-db-proxy/v1/qdrant"
)

// Logger is the logging surface used by the store.
type Logger interface {
	Debug(msg string, err error, fields ...map[string]interface{})
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// handle is the shared, replaceable service reference.
type handle struct {
	mu  sync.RWMutex
	svc Service
}

// Store proxies vector operations to one collection. Every call holds the
// handle's read lock for its duration; ReplaceClient takes the write lock.
type Store struct {
	h          *handle
	group      *singleflight.Group
	collection string
	cfg        Config
	logger     Logger
	observer   observability.Observer
	tracer     trace.Tracer
}

// NewStore binds svc to cfg.Collection.
func NewStore(svc Service, cfg Config, log Logger) *Store {
	return &Store{
		h:          &handle{svc: svc},
		group:      &singleflight.Group{},
		collection: cfg.Collection,
		cfg:        cfg.normalized(),
		logger:     log,
		observer:   observability.Nop,
		tracer:     otel.Tracer(instrumentationName),
	}
}

// WithObserver sets the operation observer; nil restores the no-op observer.
func (s *Store) WithObserver(o observability.Observer) *Store {
	if o == nil {
		o = observability.Nop
	}
	s.observer = o
	return s
}

// WithTracerProvider replaces the global tracer provider for this store.
func (s *Store) WithTracerProvider(tp trace.TracerProvider) *Store {
	s.tracer = tp.Tracer(instrumentationName)
	return s
}

// Collection returns the bound collection name.
func (s *Store) Collection() string {
	return s.collection
}

// WithCollection returns a store for another collection that shares this
// store's handle, lock and in-flight collection checks.
func (s *Store) WithCollection(name string) *Store {
	c := *s
	c.collection = name
	return &c
}

// ReplaceClient swaps the service handle once all in-flight calls finish and
// returns the previous one. The caller owns closing it.
func (s *Store) ReplaceClient(svc Service) Service {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	old := s.h.svc
	s.h.svc = svc
	s.logger.Info("qdrant client replaced", nil)
	return old
}

// Close closes the current service handle.
func (s *Store) Close() error {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	if s.h.svc == nil {
		return nil
	}
	err := s.h.svc.Close()
	s.h.svc = nil
	return err
}

// acquire read-locks the handle. The returned release must be called.
func (s *Store) acquire() (Service, func(), error) {
	s.h.mu.RLock()
	if s.h.svc == nil {
		s.h.mu.RUnlock()
		return nil, func() {}, ErrClientNotInitialized
	}
	return s.h.svc, s.h.mu.RUnlock, nil
}

func (s *Store) startSpan(ctx context.Context, op, collection string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "qdrant."+op, trace.WithAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.collection.name", collection),
	))
}

// finish ends span and reports the operation.
func (s *Store) finish(span trace.Span, op, collection string, start time.Time, size int64, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Int64("qdrant.size", size))
	span.End()

	s.observer.ObserveOperation(observability.OperationContext{
		Component: componentName,
		Operation: op,
		Resource:  collection,
		Duration:  time.Since(start),
		Error:     err,
		Size:      size,
	})
}
