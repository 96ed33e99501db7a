package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/davenrook/leasewise-backend/internal/handlers"
)

type RouterConfig struct {
	ConfigHandler      *handlers.ConfigHandler
	IngestHandler      *handlers.IngestHandler
	ClassifierHandler  *handlers.ClassifierHandler
	InferenceHandler   *handlers.InferenceHandler
	HealthCheckHandler *handlers.HealthCheckHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-Id"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", cfg.HealthCheckHandler.HealthCheck)

	api := router.Group("/api/v1")
	{
		api.PUT("/configs/:name/:version", cfg.ConfigHandler.SetConfig)
		api.GET("/configs/:name/:version", cfg.ConfigHandler.GetConfig)
		api.POST("/configs/:name/:version/query", cfg.InferenceHandler.Query)

		api.POST("/collections/:collection_id/documents", cfg.IngestHandler.IngestDocument)

		api.PUT("/classifiers/:classifier_id", cfg.ClassifierHandler.CreateClassifier)
		api.GET("/classifiers/:classifier_id", cfg.ClassifierHandler.GetClassifier)
	}

	return router
}
