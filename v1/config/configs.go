package config

import (
	"github.com/Aleph-Alpha/vector-db-proxy/v1/logger"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/metrics"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/qdrant"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/rabbit"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/tracer"
)

// EnvPrefix marks environment variables read by Load. Sections are separated
// by a double underscore:
//
//	VECTORPROXY_QDRANT__API_KEY           → qdrant.api_key
//	VECTORPROXY_RABBIT__CONNECTION__HOST  → rabbit.connection.host
const EnvPrefix = "VECTORPROXY_"

// Config is the complete configuration of the proxy. Each section is owned by
// the package that consumes it.
type Config struct {
	Logger  logger.Config  `yaml:"logger" koanf:"logger"`
	Metrics metrics.Config `yaml:"metrics" koanf:"metrics"`
	Tracer  tracer.Config  `yaml:"tracer" koanf:"tracer"`
	Qdrant  qdrant.Config  `yaml:"qdrant" koanf:"qdrant"`
	Rabbit  rabbit.Config  `yaml:"rabbit" koanf:"rabbit"`
}

// Default returns the configuration used for every key that is set neither
// in the file nor in the environment.
func Default() Config {
	return Config{
		Logger:  logger.DefaultConfig(),
		Metrics: metrics.DefaultConfig(),
		Tracer: tracer.Config{
			ServiceName: "vector-db-proxy",
			AppEnv:      "development",
		},
		Qdrant: qdrant.DefaultConfig(),
		Rabbit: rabbit.DefaultConfig(),
	}
}
