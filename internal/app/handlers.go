package app

import (
	"github.com/davenrook/leasewise-backend/internal/handlers"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
)

type Handlers struct {
	Config      *handlers.ConfigHandler
	Ingest      *handlers.IngestHandler
	Classifier  *handlers.ClassifierHandler
	Inference   *handlers.InferenceHandler
	HealthCheck *handlers.HealthCheckHandler
}

func wireHandlers(log *logger.Logger, cfg Config, serviceset Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Config:      handlers.NewConfigHandler(log, serviceset.IngestConfig),
		Ingest:      handlers.NewIngestHandler(log, serviceset.IngestRunner, cfg.DefaultConfigName, cfg.DefaultConfigVersion),
		Classifier:  handlers.NewClassifierHandler(log, clients.Content),
		Inference:   handlers.NewInferenceHandler(log, serviceset.Inference, cfg.DefaultConfigName, cfg.DefaultConfigVersion),
		HealthCheck: handlers.NewHealthCheckHandler(log, serviceset.HealthCheck),
	}
}
