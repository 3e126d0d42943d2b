package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/vector-db-proxy/v1/qdrant"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/rabbit"
)

const sampleYAML = `
logger:
  level: debug
qdrant:
  endpoint: qdrant.internal
  collection: documents
  search_limit: 12
  schema:
    vector_size: 768
rabbit:
  connection:
    host: rabbitmq.internal
  topology:
    exchange_name: ingest
    queue_name: documents
    routing_key: documents.new
  retry:
    delay: 5s
    max_attempts: 3
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, uint64(5), cfg.Qdrant.SearchLimit)
	assert.Equal(t, 2*time.Second, cfg.Rabbit.Retry.Delay)
}

func TestLoadFileKeepsUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "vector-db-proxy", cfg.Logger.ServiceName)

	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Endpoint)
	assert.Equal(t, "documents", cfg.Qdrant.Collection)
	assert.Equal(t, uint64(12), cfg.Qdrant.SearchLimit)
	assert.Equal(t, uint64(768), cfg.Qdrant.Schema.VectorSize)
	assert.Equal(t, "cosine", cfg.Qdrant.Schema.Distance)
	assert.Equal(t, qdrant.DefaultRecommendOptions(), cfg.Qdrant.Recommend)

	assert.Equal(t, "rabbitmq.internal", cfg.Rabbit.Connection.Host)
	assert.Equal(t, uint(5672), cfg.Rabbit.Connection.Port)
	assert.Equal(t, "ingest", cfg.Rabbit.Topology.ExchangeName)
	assert.Equal(t, "stream", cfg.Rabbit.Topology.QueueType)
	assert.Equal(t, rabbit.RetryPolicy{Delay: 5 * time.Second, MaxAttempts: 3}, cfg.Rabbit.Retry)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("VECTORPROXY_QDRANT__API_KEY", "secret")
	t.Setenv("VECTORPROXY_QDRANT__SEARCH_LIMIT", "20")
	t.Setenv("VECTORPROXY_RABBIT__CONNECTION__HOST", "broker")
	t.Setenv("VECTORPROXY_RABBIT__RETRY__DELAY", "250ms")
	t.Setenv("VECTORPROXY_TRACER__ENABLE_EXPORT", "true")

	cfg, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Qdrant.ApiKey)
	assert.Equal(t, uint64(20), cfg.Qdrant.SearchLimit)
	assert.Equal(t, "broker", cfg.Rabbit.Connection.Host)
	assert.Equal(t, 250*time.Millisecond, cfg.Rabbit.Retry.Delay)
	assert.Equal(t, 3, cfg.Rabbit.Retry.MaxAttempts)
	assert.True(t, cfg.Tracer.EnableExport)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := LoadBytes([]byte("qdrant: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := LoadBytes([]byte("rabbit:\n  retry:\n    delay: soon\n"))
		assert.Error(t, err)
	})
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"VECTORPROXY_QDRANT__API_KEY":              "qdrant.api_key",
		"VECTORPROXY_RABBIT__TOPOLOGY__QUEUE_NAME": "rabbit.topology.queue_name",
		"VECTORPROXY_LOGGER__LEVEL":                "logger.level",
	}
	for in, want := range cases {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestSplit(t *testing.T) {
	cfg := Default()
	cfg.Qdrant.Collection = "documents"

	s := Split(cfg)
	assert.Equal(t, cfg.Logger, s.Logger)
	assert.Equal(t, cfg.Metrics, s.Metrics)
	assert.Equal(t, cfg.Tracer, s.Tracer)
	assert.Equal(t, "documents", s.Qdrant.Collection)
	assert.Equal(t, cfg.Rabbit, s.Rabbit)
}
