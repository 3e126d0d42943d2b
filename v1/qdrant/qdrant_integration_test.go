package qdrant

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
)

const grpcPort nat.Port = "6334/tcp"

type qdrantContainer struct {
	testcontainers.Container
	Host string
	Port int
}

func setupQdrantContainer(ctx context.Context) (*qdrantContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "qdrant/qdrant:v1.11.0",
		ExposedPorts: []string{string(grpcPort)},
		WaitingFor:   wait.ForListeningPort(grpcPort).WithStartupTimeout(60 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start qdrant container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get host: %w", err)
	}

	mapped, err := c.MappedPort(ctx, grpcPort)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, err
	}

	return &qdrantContainer{Container: c, Host: host, Port: port}, nil
}

func TestStoreAgainstQdrant(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	qc, err := setupQdrantContainer(ctx)
	require.NoError(t, err)
	defer func() {
		if err := qc.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	log := NewMockLogger(gomock.NewController(t))
	allowLogs(log)

	cfg := DefaultConfig().WithCollection("it_docs").WithCompatibilityCheck(false).WithTimeout(30 * time.Second)
	cfg.Endpoint = qc.Host
	cfg.Port = qc.Port
	cfg.Schema.VectorSize = 4

	var store *Store
	app := fxtest.New(t,
		fx.Provide(
			func() Config { return cfg },
			func() Logger { return log },
		),
		FXModule,
		fx.Populate(&store),
	)
	app.RequireStart()
	defer app.RequireStop()

	t.Run("EnsureCollection", func(t *testing.T) {
		ok, err := store.EnsureCollection(ctx, "it_never", CreateNever)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = store.EnsureCollection(ctx, "it_docs", CreateIfNeeded)
		require.NoError(t, err)
		assert.True(t, ok)

		names, err := store.ListCollections(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, "it_docs")
		assert.NotContains(t, names, "it_never")
	})

	seed := uuid.New()
	t.Run("Upsert", func(t *testing.T) {
		ok, err := store.UpsertOne(ctx, Point{
			ID:      UUIDPoint(seed),
			Vector:  []float32{1, 0, 0, 0},
			Payload: map[string]any{"lang": "en"},
		}, true)
		require.NoError(t, err)
		assert.True(t, ok)

		points := make([]Point, 0, 150)
		for i := 0; i < 150; i++ {
			lang := "en"
			if i%2 == 1 {
				lang = "de"
			}
			points = append(points, Point{
				ID:      NumericPoint(uint64(i + 1)),
				Vector:  []float32{1, float32(i) / 1000, 0, 0},
				Payload: map[string]any{"lang": lang},
			})
		}
		ok, err = store.BulkUpsert(ctx, points)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Search", func(t *testing.T) {
		filters := &FilterConditions{Must: []FilterGroup{Group(Eq("lang", "de"))}}
		res, err := store.Search(ctx, []float32{1, 0, 0, 0}, filters, nil)
		require.NoError(t, err)
		require.Len(t, res, 5)
		for _, r := range res {
			assert.Equal(t, "de", r.Payload["lang"])
		}
	})

	t.Run("Recommend", func(t *testing.T) {
		res, err := store.Recommend(ctx, UUIDPoint(seed), nil, 3)
		require.NoError(t, err)
		assert.Len(t, res, 3)
		for _, r := range res {
			assert.GreaterOrEqual(t, r.GetScore(), float32(0.9))
		}
	})
}
