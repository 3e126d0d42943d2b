package qdrant

// validateSearchInput rejects queries the service would answer with an
// error or an empty page.
func validateSearchInput(collection string, vector []float32, limit uint64) error {
	if collection == "" {
		return ErrEmptyCollectionName
	}
	if len(vector) == 0 {
		return ErrEmptyVector
	}
	if limit == 0 {
		return ErrInvalidLimit
	}
	return nil
}

// validateRecommendInput is validateSearchInput for seed-based queries.
func validateRecommendInput(collection string, seed PointID, limit uint64) error {
	if collection == "" {
		return ErrEmptyCollectionName
	}
	if seed.IsZero() {
		return ErrInvalidPointID
	}
	if limit == 0 {
		return ErrInvalidLimit
	}
	return nil
}
