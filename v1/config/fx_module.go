package config

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vector-db-proxy/v1/logger"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/metrics"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/qdrant"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/rabbit"
	"github.com/Aleph-Alpha/vector-db-proxy/v1/tracer"
)

// FXModule hands each package its own section of a supplied Config.
//
//	cfg, err := config.Load(path)
//	app := fx.New(
//	    fx.Supply(cfg),
//	    config.FXModule,
//	    logger.FXModule,
//	    qdrant.FXModule,
//	)
var FXModule = fx.Module("config",
	fx.Provide(Split),
)

// Sections is the set of per-package configs provided by FXModule.
type Sections struct {
	fx.Out

	Logger  logger.Config
	Metrics metrics.Config
	Tracer  tracer.Config
	Qdrant  qdrant.Config
	Rabbit  rabbit.Config
}

// Split breaks cfg into the sections consumed by the other modules.
func Split(cfg Config) Sections {
	return Sections{
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
		Tracer:  cfg.Tracer,
		Qdrant:  cfg.Qdrant,
		Rabbit:  cfg.Rabbit,
	}
}
