package services

import (
	"context"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/apierr"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
)

// InferenceService answers collection questions: resolve the configuration,
// enforce the per-session user message limit, run the tool-calling loop and
// persist the updated transcript.
type InferenceService interface {
	Query(ctx context.Context, req domain.QueryRequest, configName, configVersion, userID string) (*domain.QueryResponse, error)
}

type inferenceService struct {
	configs IngestConfigService
	history ChatHistoryService
	llm     LLMRequestManager
	prompts PromptService
	log     *logger.Logger
}

func NewInferenceService(configs IngestConfigService, history ChatHistoryService, llm LLMRequestManager, prompts PromptService, baseLog *logger.Logger) InferenceService {
	return &inferenceService{
		configs: configs,
		history: history,
		llm:     llm,
		prompts: prompts,
		log:     baseLog.With("service", "InferenceService"),
	}
}

func (s *inferenceService) Query(ctx context.Context, req domain.QueryRequest, configName, configVersion, userID string) (*domain.QueryResponse, error) {
	config, err := s.configs.GetConfig(ctx, configName, configVersion)
	if err != nil {
		return nil, err
	}

	history, err := s.history.Load(ctx, req.SID, userID)
	if err != nil {
		return nil, err
	}
	if history.UserMessageLimitExceeded() {
		return nil, apierr.BadRequest("chat session user message limit exceeded")
	}

	response, err := s.llm.AnswerCollectionQuestion(ctx, s.prompts.SystemPrompt(config), req.Query, req.Model, config, history)
	if err != nil {
		return nil, err
	}

	if err := s.history.Save(ctx, history, req.SID, userID); err != nil {
		return nil, err
	}

	s.log.Info("Query answered",
		"correlation_id", req.CID,
		"session_id", req.SID,
		"tokens", response.Metrics.TotalTokens,
	)
	return response, nil
}
