package qdrant

import (
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

const (
	defaultPort        = 6334
	defaultVectorSize  = 1536
	defaultBatchSize   = 100
	defaultSearchLimit = 5
	defaultThreshold   = 0.9
)

// Config holds connection and behavior settings for the vector store.
//
// Example (builder style):
//
//	cfg := qdrant.FromEndpoint("localhost").
//	    WithApiKey(os.Getenv("VECTORPROXY_QDRANT__API_KEY")).
//	    WithCollection("documents")
type Config struct {
	// Hostname of the Qdrant server, e.g. "localhost".
	Endpoint string `yaml:"endpoint" koanf:"endpoint"`

	// gRPC port of the Qdrant server. Defaults to 6334.
	Port int `yaml:"port" koanf:"port"`

	// Optional authentication token for secured deployments.
	ApiKey string `yaml:"api_key" koanf:"api_key"`

	// UseTLS enables transport security on the gRPC connection.
	UseTLS bool `yaml:"use_tls" koanf:"use_tls"`

	// Collection is the collection every Store operation targets.
	Collection string `yaml:"collection" koanf:"collection"`

	// Timeout bounds the startup health check.
	Timeout time.Duration `yaml:"timeout" koanf:"timeout"`

	// Whether to perform version compatibility checks between client and server.
	CheckCompatibility bool `yaml:"check_compatibility" koanf:"check_compatibility"`

	// BatchSize is the number of points submitted per BulkUpsert request.
	BatchSize int `yaml:"batch_size" koanf:"batch_size"`

	// SearchLimit is used when Search is called without an explicit limit.
	SearchLimit uint64 `yaml:"search_limit" koanf:"search_limit"`

	// Schema applies to collections created by EnsureCollection.
	Schema CollectionConfig `yaml:"schema" koanf:"schema"`

	// Recommend holds the defaults for Recommend queries.
	Recommend RecommendOptions `yaml:"recommend" koanf:"recommend"`
}

// CollectionConfig describes the vector parameters of new collections.
type CollectionConfig struct {
	VectorSize uint64 `yaml:"vector_size" koanf:"vector_size"`

	// Distance is one of "cosine", "dot", "euclid", "manhattan".
	Distance string `yaml:"distance" koanf:"distance"`
}

// RecommendOptions controls how a seed point is turned into a query.
type RecommendOptions struct {
	// ScoreThreshold drops results scoring below it. Zero selects the 0.9
	// default; a negative value accepts every score.
	ScoreThreshold float32 `yaml:"score_threshold" koanf:"score_threshold"`
	WithPayload    bool    `yaml:"with_payload" koanf:"with_payload"`
}

// DefaultConfig provides sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Endpoint:           "localhost",
		Port:               defaultPort,
		Timeout:            5 * time.Second,
		CheckCompatibility: true,
		BatchSize:          defaultBatchSize,
		SearchLimit:        defaultSearchLimit,
		Schema:             DefaultCollectionConfig(),
		Recommend:          DefaultRecommendOptions(),
	}
}

// DefaultCollectionConfig returns 1536-dimensional cosine vectors.
func DefaultCollectionConfig() CollectionConfig {
	return CollectionConfig{VectorSize: defaultVectorSize, Distance: "cosine"}
}

// DefaultRecommendOptions returns a 0.9 score threshold without payloads.
func DefaultRecommendOptions() RecommendOptions {
	return RecommendOptions{ScoreThreshold: defaultThreshold}
}

// FromEndpoint returns a default config pre-filled with a specific endpoint.
func FromEndpoint(host string) Config {
	cfg := DefaultConfig()
	cfg.Endpoint = host
	return cfg
}

func (c Config) WithApiKey(key string) Config {
	c.ApiKey = key
	return c
}

func (c Config) WithCollection(name string) Config {
	c.Collection = name
	return c
}

func (c Config) WithTimeout(d time.Duration) Config {
	c.Timeout = d
	return c
}

func (c Config) WithCompatibilityCheck(enabled bool) Config {
	c.CheckCompatibility = enabled
	return c
}

// normalized fills zero values with defaults.
func (c Config) normalized() Config {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.SearchLimit == 0 {
		c.SearchLimit = defaultSearchLimit
	}
	if c.Schema.VectorSize == 0 {
		c.Schema.VectorSize = defaultVectorSize
	}
	if c.Schema.Distance == "" {
		c.Schema.Distance = "cosine"
	}
	if c.Recommend.ScoreThreshold == 0 {
		c.Recommend.ScoreThreshold = defaultThreshold
	}
	return c
}

func (c CollectionConfig) distance() qdrant.Distance {
	switch strings.ToLower(c.Distance) {
	case "dot":
		return qdrant.Distance_Dot
	case "euclid", "euclidean":
		return qdrant.Distance_Euclid
	case "manhattan":
		return qdrant.Distance_Manhattan
	default:
		return qdrant.Distance_Cosine
	}
}
