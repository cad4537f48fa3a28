package models

import (
	"time"

	"gorm.io/datatypes"
)

// Review is a customer review for a location. Reviews can be edited and
// replied to after creation, so every field is overwritten on re-sync.
// Rating is 1..5, with 0 reserved for unparseable vendor values.
type Review struct {
	ReviewID     string         `gorm:"primaryKey;type:text"`
	LocationID   string         `gorm:"index;type:text"`
	Reviewer     string         `gorm:"type:text"`
	Rating       int            `gorm:"not null;default:0"`
	Comment      string         `gorm:"type:text"`
	CreateTime   *time.Time     `gorm:"type:timestamptz"`
	UpdateTime   *time.Time     `gorm:"type:timestamptz"`
	ReplyComment *string        `gorm:"type:text"`
	ReplyTime    *time.Time     `gorm:"type:timestamptz"`
	RawJSON      datatypes.JSON `gorm:"type:jsonb"`
	SyncedAt     time.Time      `gorm:"type:timestamptz"`
}

func (Review) TableName() string {
	return "reviews"
}
