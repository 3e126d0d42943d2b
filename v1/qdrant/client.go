package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

//go:generate mockgen -source=client.go -destination=mock_service.go -package=qdrant

// Service is the subset of the Qdrant API the proxy relies on. It is
// implemented over gRPC by NewGRPCService and mocked in tests.
type Service interface {
	ListCollections(ctx context.Context) ([]string, error)
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CreateCollection returns the service's acknowledgement flag.
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) (bool, error)

	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Search(ctx context.Context, req *qdrant.SearchPoints) ([]*qdrant.ScoredPoint, error)
	Recommend(ctx context.Context, req *qdrant.RecommendPoints) ([]*qdrant.ScoredPoint, error)
	Close() error
}

// GRPCService adapts the official SDK client to Service.
type GRPCService struct {
	api *qdrant.Client
}

// NewGRPCService wraps an existing SDK client.
func NewGRPCService(api *qdrant.Client) *GRPCService {
	return &GRPCService{api: api}
}

// Dial opens a gRPC connection to Qdrant and fails fast with a health check.
func Dial(ctx context.Context, cfg Config, log Logger) (*GRPCService, error) {
	cfg = cfg.normalized()
	log.Info("connecting to qdrant", nil, map[string]interface{}{
		"endpoint": cfg.Endpoint,
		"port":     cfg.Port,
		"tls":      cfg.UseTLS,
	})

	api, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Endpoint,
		Port:                   cfg.Port,
		APIKey:                 cfg.ApiKey,
		UseTLS:                 cfg.UseTLS,
		SkipCompatibilityCheck: !cfg.CheckCompatibility,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize qdrant client: %w", err)
	}

	hctx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	resp, err := api.HealthCheck(hctx)
	if err != nil {
		_ = api.Close()
		return nil, fmt.Errorf("qdrant health check failed: %w", err)
	}

	log.Info("qdrant client connected", nil, map[string]interface{}{
		"title":   resp.GetTitle(),
		"version": resp.GetVersion(),
	})
	return NewGRPCService(api), nil
}

func (s *GRPCService) ListCollections(ctx context.Context) ([]string, error) {
	return s.api.ListCollections(ctx)
}

func (s *GRPCService) CollectionExists(ctx context.Context, name string) (bool, error) {
	return s.api.CollectionExists(ctx, name)
}

func (s *GRPCService) CreateCollection(ctx context.Context, req *qdrant.CreateCollection) (bool, error) {
	resp, err := s.api.GetCollectionsClient().Create(ctx, req)
	if err != nil {
		return false, err
	}
	return resp.GetResult(), nil
}

func (s *GRPCService) Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	return s.api.Upsert(ctx, req)
}

func (s *GRPCService) Search(ctx context.Context, req *qdrant.SearchPoints) ([]*qdrant.ScoredPoint, error) {
	resp, err := s.api.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.GetResult(), nil
}

func (s *GRPCService) Recommend(ctx context.Context, req *qdrant.RecommendPoints) ([]*qdrant.ScoredPoint, error) {
	resp, err := s.api.GetPointsClient().Recommend(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.GetResult(), nil
}

// Close releases the underlying gRPC connection.
func (s *GRPCService) Close() error {
	return s.api.Close()
}
