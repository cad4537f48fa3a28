package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncState is the per-scope watermark row. Scope identifies a (vendor,
// domain) pair such as "google_metrics" or "crm_subscribers". WatermarkTS only
// advances after a fully successful run over its window.
type SyncState struct {
	Scope         string         `gorm:"primaryKey;type:text"`
	Cursor        *string        `gorm:"type:text"`
	WatermarkTS   *time.Time     `gorm:"type:timestamptz"`
	LastSuccessAt *time.Time     `gorm:"type:timestamptz"`
	LastAttemptAt *time.Time     `gorm:"type:timestamptz"`
	LastError     *string        `gorm:"type:text"`
	StatsJSON     datatypes.JSON `gorm:"type:jsonb"`
}

func (SyncState) TableName() string {
	return "sync_state"
}
