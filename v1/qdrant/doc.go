// Package qdrant proxies vector operations to a Qdrant server over gRPC.
//
// A [Store] is bound to one collection and forwards calls through a
// replaceable [Service] handle guarded by a read/write lock. Reads hold the
// read lock for the whole call; [Store.ReplaceClient] waits for them.
//
// # Collection lifecycle
//
// [Store.EnsureCollection] checks for a collection and, under
// [CreateIfNeeded], creates it with the configured schema (1536-dimensional
// cosine vectors by default). [CreateNever] only reports existence.
// Concurrent checks for the same collection share one round trip.
//
// # Writes
//
// [Store.UpsertOne] writes a single point without an existence check and may
// be blocking or not. [Store.BulkUpsert] ensures the collection first and then
// writes in blocking batches:
//
//	ok, err := store.BulkUpsert(ctx, points)
//	switch {
//	case errors.Is(err, qdrant.ErrCollectionNotFound):
//	    // collection could not be created
//	case err != nil:
//	    // transport or service failure
//	case !ok:
//	    // a batch was not applied
//	}
//
// # Filters
//
// [FilterConditions] holds ordered groups of field/value pairs under must,
// must_not and should. [TranslateFilters] turns each pair into a keyword
// match condition:
//
//	f := &qdrant.FilterConditions{
//	    Must: []qdrant.FilterGroup{qdrant.Group(qdrant.Eq("source", "web"))},
//	}
//	hits, err := store.Search(ctx, vector, f, nil)
//
// # Dependency injection
//
// [FXModule] dials the server, provides the [Store] and closes it on stop.
package qdrant
