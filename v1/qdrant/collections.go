package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// CreateDisposition decides what happens when a collection is missing.
type CreateDisposition int

const (
	// CreateIfNeeded creates a missing collection.
	CreateIfNeeded CreateDisposition = iota
	// CreateNever reports a missing collection without creating it.
	CreateNever
)

func (d CreateDisposition) String() string {
	switch d {
	case CreateIfNeeded:
		return "create_if_needed"
	case CreateNever:
		return "create_never"
	default:
		return fmt.Sprintf("disposition(%d)", int(d))
	}
}

// EnsureCollection reports whether name exists after applying disposition.
// A missing collection under CreateNever yields false without error. Under
// CreateIfNeeded the collection is created with the configured schema and the
// service's acknowledgement is returned. Concurrent calls for the same name
// and disposition share one evaluation.
func (s *Store) EnsureCollection(ctx context.Context, name string, disposition CreateDisposition) (bool, error) {
	svc, release, err := s.acquire()
	defer release()
	if err != nil {
		return false, err
	}
	return s.ensureCollection(ctx, svc, name, disposition)
}

// ensureCollection expects the caller to hold the handle's read lock. The
// shared check runs detached from any single caller's cancellation, bounded by
// Config.Timeout; each caller still stops waiting when its own ctx is done.
func (s *Store) ensureCollection(ctx context.Context, svc Service, name string, disposition CreateDisposition) (bool, error) {
	if name == "" {
		return false, ErrEmptyCollectionName
	}

	key := name + "|" + disposition.String()
	ch := s.group.DoChan(key, func() (interface{}, error) {
		shared, cancel := s.detached(ctx)
		defer cancel()
		return s.checkCollection(shared, svc, name, disposition)
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

func (s *Store) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Store) checkCollection(ctx context.Context, svc Service, name string, disposition CreateDisposition) (ok bool, err error) {
	ctx, span := s.startSpan(ctx, "ensure_collection", name)
	start := time.Now()
	defer func() { s.finish(span, "ensure_collection", name, start, 0, err) }()

	exists, err := svc.CollectionExists(ctx, name)
	if err != nil {
		s.logger.Error("failed to check collection existence", err, map[string]interface{}{"collection": name})
		return false, serviceError("collection_exists", err)
	}
	if exists {
		return true, nil
	}

	if disposition == CreateNever {
		s.logger.Debug("collection missing, creation disabled", nil, map[string]interface{}{"collection": name})
		return false, nil
	}

	s.logger.Info("collection not found, creating it", nil, map[string]interface{}{
		"collection":  name,
		"vector_size": s.cfg.Schema.VectorSize,
		"distance":    s.cfg.Schema.distance().String(),
	})

	created, err := svc.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.Schema.VectorSize,
			Distance: s.cfg.Schema.distance(),
		}),
	})
	if err != nil {
		s.logger.Error("failed to create collection", err, map[string]interface{}{"collection": name})
		return false, serviceError("create_collection", err)
	}
	if !created {
		s.logger.Warn("collection creation not acknowledged", nil, map[string]interface{}{"collection": name})
	}
	return created, nil
}
