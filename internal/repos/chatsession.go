package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/types"
)

type ChatSessionRepo interface {
	Get(ctx context.Context, tx *gorm.DB, id string) (*types.ChatSession, error)
	Upsert(ctx context.Context, tx *gorm.DB, session *types.ChatSession) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}

type chatSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatSessionRepo(db *gorm.DB, baseLog *logger.Logger) ChatSessionRepo {
	repoLog := baseLog.With("repo", "ChatSessionRepo")
	return &chatSessionRepo{db: db, log: repoLog}
}

func (r *chatSessionRepo) Get(ctx context.Context, tx *gorm.DB, id string) (*types.ChatSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var session types.ChatSession
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *chatSessionRepo) Upsert(ctx context.Context, tx *gorm.DB, session *types.ChatSession) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "domain", "messages", "updated_at"}),
		}).
		Create(session).Error
}

func (r *chatSessionRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.ChatSession{}).Error
}
