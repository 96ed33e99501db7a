package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/types"
)

type IngestConfigRepo interface {
	Get(ctx context.Context, tx *gorm.DB, id string) (*types.IngestConfig, error)
	Upsert(ctx context.Context, tx *gorm.DB, cfg *types.IngestConfig) error
	ListByName(ctx context.Context, tx *gorm.DB, name string) ([]*types.IngestConfig, error)
}

type ingestConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIngestConfigRepo(db *gorm.DB, baseLog *logger.Logger) IngestConfigRepo {
	repoLog := baseLog.With("repo", "IngestConfigRepo")
	return &ingestConfigRepo{db: db, log: repoLog}
}

func (r *ingestConfigRepo) Get(ctx context.Context, tx *gorm.DB, id string) (*types.IngestConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var cfg types.IngestConfig
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *ingestConfigRepo) Upsert(ctx context.Context, tx *gorm.DB, cfg *types.IngestConfig) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "version", "payload", "updated_at"}),
		}).
		Create(cfg).Error
}

func (r *ingestConfigRepo) ListByName(ctx context.Context, tx *gorm.DB, name string) ([]*types.IngestConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.IngestConfig
	if err := transaction.WithContext(ctx).
		Where("name = ?", name).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
