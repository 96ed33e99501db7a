package types

import (
	"time"

	"gorm.io/datatypes"
)

// CollectionDocument is one row per (collection, config) pair. The lock
// columns implement the polling mutex: a writer owns the row while
// is_locked is true and unlock_unix_timestamp is in the future.
type CollectionDocument struct {
	ID                  string         `gorm:"column:id;primaryKey" json:"id"`
	IsLocked            bool           `gorm:"column:is_locked;not null;default:false" json:"is_locked"`
	UnlockUnixTimestamp int64          `gorm:"column:unlock_unix_timestamp;not null;default:0" json:"unlock_unix_timestamp"`
	CollectionID        string         `gorm:"column:collection_id;index" json:"collection_id"`
	ConfigID            string         `gorm:"column:config_id" json:"config_id"`
	LeaseConfigHash     string         `gorm:"column:lease_config_hash" json:"lease_config_hash"`
	Information         datatypes.JSON `gorm:"column:information;type:jsonb" json:"information"`
	CreatedAt           time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (CollectionDocument) TableName() string { return "collection_document" }

// DocumentID is the primary key for a collection's extraction document.
func DocumentID(collectionID, configHash string) string {
	return collectionID + "-" + configHash
}
