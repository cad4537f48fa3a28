package models

import (
	"time"

	"gorm.io/datatypes"
)

// Subscriber is one CRM contact, keyed by normalized phone. Labels holds the
// managed segment label set as a JSON string array; CustomFields mirrors the
// CRM custom-field values last pushed for this contact.
type Subscriber struct {
	Phone            string         `gorm:"primaryKey;type:text"`
	Name             string         `gorm:"type:text"`
	Labels           datatypes.JSON `gorm:"type:jsonb"`
	CustomFields     datatypes.JSON `gorm:"type:jsonb"`
	TransactionCount int            `gorm:"not null;default:0"`
	LastSyncedAt     time.Time      `gorm:"type:timestamptz"`
}

func (Subscriber) TableName() string {
	return "subscribers"
}
