package app

import (
	"github.com/gin-gonic/gin"

	"github.com/davenrook/leasewise-backend/internal/server"
)

func wireRouter(handlerset Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ConfigHandler:      handlerset.Config,
		IngestHandler:      handlerset.Ingest,
		ClassifierHandler:  handlerset.Classifier,
		InferenceHandler:   handlerset.Inference,
		HealthCheckHandler: handlerset.HealthCheck,
	})
}
