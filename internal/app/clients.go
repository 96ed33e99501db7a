package app

import (
	"fmt"

	goredis "github.com/davenrook/leasewise-backend/internal/clients/redis"
	"github.com/davenrook/leasewise-backend/internal/platform/blob"
	"github.com/davenrook/leasewise-backend/internal/platform/docintel"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/platform/openai"
)

type Clients struct {
	Blob      blob.Store
	Content   docintel.Client
	OpenAI    openai.Client
	ViewCache goredis.ViewCache
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	store, err := blob.NewStore(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init blob store: %w", err)
	}
	content, err := docintel.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init content understanding client: %w", err)
	}
	llm, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	viewCache, err := goredis.NewViewCache(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis view cache: %w", err)
	}

	return Clients{
		Blob:      store,
		Content:   content,
		OpenAI:    llm,
		ViewCache: viewCache,
	}, nil
}
