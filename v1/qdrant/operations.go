package qdrant

import (
	"context"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// ListCollections returns the names of all collections on the service.
func (s *Store) ListCollections(ctx context.Context) (names []string, err error) {
	svc, release, err := s.acquire()
	defer release()
	if err != nil {
		return nil, err
	}

	ctx, span := s.startSpan(ctx, "list_collections", "")
	start := time.Now()
	defer func() { s.finish(span, "list_collections", "", start, int64(len(names)), err) }()

	names, err = svc.ListCollections(ctx)
	if err != nil {
		s.logger.Error("failed to list collections", err)
		return nil, serviceError("list_collections", err)
	}
	return names, nil
}

// UpsertOne writes a single point without checking that the collection
// exists. With blocking set the call waits until the write is applied. The
// result is true only when the service reports a completed update.
func (s *Store) UpsertOne(ctx context.Context, point Point, blocking bool) (ok bool, err error) {
	svc, release, err := s.acquire()
	defer release()
	if err != nil {
		return false, err
	}

	ctx, span := s.startSpan(ctx, "upsert_one", s.collection)
	start := time.Now()
	defer func() { s.finish(span, "upsert_one", s.collection, start, 1, err) }()

	ps, err := toPointStruct(point)
	if err != nil {
		return false, err
	}
	return s.upsert(ctx, svc, []*qdrant.PointStruct{ps}, blocking)
}

// BulkUpsert ensures the collection exists, creating it if needed, then
// writes points in blocking batches of Config.BatchSize. It returns
// ErrCollectionNotFound when the collection could not be ensured. The first
// batch that does not complete stops the upload and yields false.
func (s *Store) BulkUpsert(ctx context.Context, points []Point) (ok bool, err error) {
	svc, release, err := s.acquire()
	defer release()
	if err != nil {
		return false, err
	}

	exists, err := s.ensureCollection(ctx, svc, s.collection, CreateIfNeeded)
	if err != nil {
		return false, err
	}
	if !exists {
		s.logger.Error("bulk upsert target missing", ErrCollectionNotFound, map[string]interface{}{"collection": s.collection})
		return false, ErrCollectionNotFound
	}

	ctx, span := s.startSpan(ctx, "bulk_upsert", s.collection)
	start := time.Now()
	defer func() { s.finish(span, "bulk_upsert", s.collection, start, int64(len(points)), err) }()

	structs, err := toPointStructs(points)
	if err != nil {
		return false, err
	}

	batch := s.cfg.BatchSize
	for i := 0; i < len(structs); i += batch {
		end := min(i+batch, len(structs))
		ok, err := s.upsert(ctx, svc, structs[i:end], true)
		if err != nil {
			return false, err
		}
		if !ok {
			s.logger.Warn("bulk upsert batch did not complete", nil, map[string]interface{}{
				"collection":  s.collection,
				"batch_start": i,
				"batch_end":   end,
			})
			return false, nil
		}
		s.logger.Debug("upserted batch", nil, map[string]interface{}{
			"collection":  s.collection,
			"batch_start": i,
			"batch_end":   end,
		})
	}
	return true, nil
}

func (s *Store) upsert(ctx context.Context, svc Service, points []*qdrant.PointStruct, blocking bool) (bool, error) {
	res, err := svc.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(blocking),
		Points:         points,
	})
	if err != nil {
		s.logger.Error("failed to upsert points", err, map[string]interface{}{
			"collection": s.collection,
			"count":      len(points),
		})
		return false, serviceError("upsert", err)
	}
	return res.GetStatus() == qdrant.UpdateStatus_Completed, nil
}

// Search returns the points nearest to vector that satisfy filters, in the
// order the service ranks them. A nil limit uses Config.SearchLimit.
func (s *Store) Search(ctx context.Context, vector []float32, filters *FilterConditions, limit *uint64) (results []SearchResult, err error) {
	svc, release, err := s.acquire()
	defer release()
	if err != nil {
		return nil, err
	}

	ctx, span := s.startSpan(ctx, "search", s.collection)
	start := time.Now()
	defer func() { s.finish(span, "search", s.collection, start, int64(len(results)), err) }()

	n := s.cfg.SearchLimit
	if limit != nil {
		n = *limit
	}
	if err = validateSearchInput(s.collection, vector, n); err != nil {
		return nil, err
	}

	resp, err := svc.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Filter:         BuildFilter(filters),
		Limit:          n,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		s.logger.Error("search failed", err, map[string]interface{}{"collection": s.collection})
		return nil, serviceError("search", err)
	}
	return toSearchResults(resp), nil
}

// Recommend returns points similar to seed using the configured
// RecommendOptions.
func (s *Store) Recommend(ctx context.Context, seed PointID, filters *FilterConditions, limit uint64) ([]*qdrant.ScoredPoint, error) {
	return s.RecommendWithOptions(ctx, seed, filters, limit, s.cfg.Recommend)
}

// RecommendWithOptions uses seed as the only positive example and no
// negatives. A zero ScoreThreshold selects the 0.9 default. Failures are
// logged and returned wrapped with their cause.
func (s *Store) RecommendWithOptions(ctx context.Context, seed PointID, filters *FilterConditions, limit uint64, opts RecommendOptions) (points []*qdrant.ScoredPoint, err error) {
	svc, release, err := s.acquire()
	defer release()
	if err != nil {
		return nil, err
	}

	ctx, span := s.startSpan(ctx, "recommend", s.collection)
	start := time.Now()
	defer func() { s.finish(span, "recommend", s.collection, start, int64(len(points)), err) }()

	if err = validateRecommendInput(s.collection, seed, limit); err != nil {
		return nil, err
	}
	if opts.ScoreThreshold == 0 {
		opts.ScoreThreshold = defaultThreshold
	}

	req := &qdrant.RecommendPoints{
		CollectionName: s.collection,
		Positive:       []*qdrant.PointId{seed.proto()},
		Negative:       []*qdrant.PointId{},
		Filter:         BuildFilter(filters),
		Limit:          limit,
		ScoreThreshold: qdrant.PtrOf(opts.ScoreThreshold),
	}
	if opts.WithPayload {
		req.WithPayload = qdrant.NewWithPayload(true)
	}

	points, err = svc.Recommend(ctx, req)
	if err != nil {
		s.logger.Error("recommend failed", err, map[string]interface{}{
			"collection": s.collection,
			"seed":       seed.String(),
		})
		return nil, serviceError("recommend", err)
	}
	return points, nil
}
