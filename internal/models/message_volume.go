package models

import "time"

// MessageVolume is one daily WhatsApp message-analytics row per direction
// ("sent" or "received" granularity from the Graph API).
type MessageVolume struct {
	WabaID     string    `gorm:"primaryKey;type:text"`
	BucketDate string    `gorm:"primaryKey;type:date"`
	Direction  string    `gorm:"primaryKey;type:text"`
	Sent       int64     `gorm:"not null;default:0"`
	Delivered  int64     `gorm:"not null;default:0"`
	SyncedAt   time.Time `gorm:"type:timestamptz"`
}

func (MessageVolume) TableName() string {
	return "message_volumes"
}
