package services

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/envutil"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
)

const defaultSystemPrompt = `You are an assistant answering questions about a collection of lease agreements.
Always call the get_collection_data tool first to retrieve the collection data before answering.
Answer strictly from the retrieved data. Reference values using inline citation markers like [1]
and list the corresponding citation aliases (the "document" values from the data) in order.
Respond with a JSON object of the form {"response": "...", "citations": ["..."]}.`

const defaultGeneralPrompt = `You are a helpful assistant. Answer the question concisely.`

// promptFile is the on-disk overlay for the built-in prompts. Every key is
// optional; missing keys keep their defaults.
type promptFile struct {
	System  string `yaml:"system"`
	General string `yaml:"general"`
}

// PromptService resolves the system prompts used for inference. The
// per-config prompt wins over the file overlay, which wins over the
// built-in default.
type PromptService interface {
	SystemPrompt(config *domain.FieldDataCollectionConfig) string
	GeneralPrompt() string
}

type promptService struct {
	log     *logger.Logger
	system  string
	general string
}

func NewPromptService(baseLog *logger.Logger) PromptService {
	s := &promptService{
		log:     baseLog.With("service", "PromptService"),
		system:  defaultSystemPrompt,
		general: defaultGeneralPrompt,
	}

	path := envutil.Str("PROMPT_FILE", "configs/prompts.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("Failed to read prompt file", "path", path, "error", err)
		}
		return s
	}

	var overlay promptFile
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		s.log.Warn("Failed to parse prompt file, using defaults", "path", path, "error", err)
		return s
	}
	if overlay.System != "" {
		s.system = overlay.System
	}
	if overlay.General != "" {
		s.general = overlay.General
	}
	s.log.Info("Prompt overlay loaded", "path", path)
	return s
}

func (s *promptService) SystemPrompt(config *domain.FieldDataCollectionConfig) string {
	if config != nil && config.Prompt != "" {
		return config.Prompt
	}
	return s.system
}

func (s *promptService) GeneralPrompt() string { return s.general }
