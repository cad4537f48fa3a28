package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversationCost is one daily WhatsApp conversation-analytics row per
// pricing category (marketing, utility, service, ...).
type ConversationCost struct {
	WabaID        string          `gorm:"primaryKey;type:text"`
	BucketDate    string          `gorm:"primaryKey;type:date"`
	Category      string          `gorm:"primaryKey;type:text"`
	Conversations int64           `gorm:"not null;default:0"`
	Cost          decimal.Decimal `gorm:"type:numeric(12,6)"`
	SyncedAt      time.Time       `gorm:"type:timestamptz"`
}

func (ConversationCost) TableName() string {
	return "conversation_costs"
}
