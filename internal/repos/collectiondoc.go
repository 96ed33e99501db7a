package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/davenrook/leasewise-backend/internal/platform/logger"
	"github.com/davenrook/leasewise-backend/internal/types"
)

type CollectionDocumentRepo interface {
	Get(ctx context.Context, tx *gorm.DB, id string) (*types.CollectionDocument, error)
	Upsert(ctx context.Context, tx *gorm.DB, doc *types.CollectionDocument) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	AcquireLock(ctx context.Context, tx *gorm.DB, id string, until time.Time) (bool, error)
	ReleaseLock(ctx context.Context, tx *gorm.DB, id string) (bool, error)
}

type collectionDocumentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCollectionDocumentRepo(db *gorm.DB, baseLog *logger.Logger) CollectionDocumentRepo {
	repoLog := baseLog.With("repo", "CollectionDocumentRepo")
	return &collectionDocumentRepo{db: db, log: repoLog}
}

func (r *collectionDocumentRepo) Get(ctx context.Context, tx *gorm.DB, id string) (*types.CollectionDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var doc types.CollectionDocument
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Upsert writes the content columns only. The lock columns belong to the
// mutex and are never touched here, so an upsert under a held lock cannot
// release it.
func (r *collectionDocumentRepo) Upsert(ctx context.Context, tx *gorm.DB, doc *types.CollectionDocument) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"collection_id", "config_id", "lease_config_hash", "information", "updated_at",
			}),
		}).
		Create(doc).Error
}

func (r *collectionDocumentRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.CollectionDocument{}).Error
}

// AcquireLock claims the row for writing. It succeeds when the row exists
// and is either unlocked or holds an expired lock, or when the row does not
// exist yet, in which case a locked placeholder row is inserted. Returns
// false when another writer currently holds the lock.
func (r *collectionDocumentRepo) AcquireLock(ctx context.Context, tx *gorm.DB, id string, until time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now().Unix()
	res := transaction.WithContext(ctx).
		Model(&types.CollectionDocument{}).
		Where("id = ? AND (is_locked = ? OR unlock_unix_timestamp <= ?)", id, false, now).
		Updates(map[string]interface{}{
			"is_locked":             true,
			"unlock_unix_timestamp": until.Unix(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	placeholder := &types.CollectionDocument{
		ID:                  id,
		IsLocked:            true,
		UnlockUnixTimestamp: until.Unix(),
	}
	ins := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(placeholder)
	if ins.Error != nil {
		return false, ins.Error
	}
	return ins.RowsAffected > 0, nil
}

func (r *collectionDocumentRepo) ReleaseLock(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.CollectionDocument{}).
		Where("id = ? AND is_locked = ?", id, true).
		Updates(map[string]interface{}{
			"is_locked":             false,
			"unlock_unix_timestamp": 0,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
