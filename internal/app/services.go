package app

import (
	"github.com/davenrook/leasewise-backend/internal/db"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/services"
)

type Services struct {
	CitationMapper *services.CitationMapper
	CollectionData services.CollectionDataProvider
	DocumentLock   services.DocumentLock
	Ingestion      services.IngestionService
	IngestConfig   services.IngestConfigService
	IngestRunner   services.IngestRunner
	ChatHistory    services.ChatHistoryService
	LLM            services.LLMRequestManager
	Prompts        services.PromptService
	Inference      services.InferenceService
	HealthCheck    services.HealthCheckService
}

func wireServices(pg *db.PostgresService, log *logger.Logger, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	mapper := services.NewCitationMapper()
	collectionData := services.NewCollectionDataProvider(reposet.CollectionDocument, clients.ViewCache, mapper, log)
	lock := services.NewDocumentLock(reposet.CollectionDocument, log)
	ingestion := services.NewIngestionService(reposet.CollectionDocument, clients.Blob, lock, collectionData, log)
	ingestConfig := services.NewIngestConfigService(reposet.IngestConfig, clients.Content, log)

	runner, err := services.NewIngestRunner(ingestConfig, ingestion, clients.Content, log)
	if err != nil {
		return Services{}, err
	}

	history := services.NewChatHistoryService(reposet.ChatSession, log)
	llm := services.NewLLMRequestManager(clients.OpenAI, collectionData, log)
	prompts := services.NewPromptService(log)
	inference := services.NewInferenceService(ingestConfig, history, llm, prompts, log)
	health := services.NewHealthCheckService(pg, clients.ViewCache, clients.Blob, clients.Content, llm, prompts, log)

	return Services{
		CitationMapper: mapper,
		CollectionData: collectionData,
		DocumentLock:   lock,
		Ingestion:      ingestion,
		IngestConfig:   ingestConfig,
		IngestRunner:   runner,
		ChatHistory:    history,
		LLM:            llm,
		Prompts:        prompts,
		Inference:      inference,
		HealthCheck:    health,
	}, nil
}
