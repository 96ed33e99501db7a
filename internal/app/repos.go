package app

import (
	"gorm.io/gorm"

	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/repos"
)

type Repos struct {
	CollectionDocument repos.CollectionDocumentRepo
	IngestConfig       repos.IngestConfigRepo
	ChatSession        repos.ChatSessionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		CollectionDocument: repos.NewCollectionDocumentRepo(db, log),
		IngestConfig:       repos.NewIngestConfigRepo(db, log),
		ChatSession:        repos.NewChatSessionRepo(db, log),
	}
}
