package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncRun records the outcome of one orchestrated sync run for operator
// visibility. Status is "completed", "completed_with_errors" or "failed".
type SyncRun struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	Scope      string         `gorm:"index;type:text"`
	StartedAt  time.Time      `gorm:"type:timestamptz"`
	FinishedAt time.Time      `gorm:"type:timestamptz"`
	Processed  int            `gorm:"not null;default:0"`
	Succeeded  int            `gorm:"not null;default:0"`
	Failed     int            `gorm:"not null;default:0"`
	DurationMs int64          `gorm:"not null;default:0"`
	Status     string         `gorm:"type:text"`
	ErrorsJSON datatypes.JSON `gorm:"type:jsonb"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
