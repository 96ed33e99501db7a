package types

import (
	"time"

	"gorm.io/datatypes"
)

type IngestConfig struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	Name      string         `gorm:"column:name;not null;index" json:"name"`
	Version   string         `gorm:"column:version;not null" json:"version"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (IngestConfig) TableName() string { return "ingest_config" }
