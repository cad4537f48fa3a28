package models

import "time"

// LocationMetric is one daily aggregate row for a Business Profile location.
// Counters default to zero when the vendor omits them; re-syncing a day
// overwrites the row (upsert on location_id + bucket_date).
type LocationMetric struct {
	LocationID        string    `gorm:"primaryKey;type:text"`
	BucketDate        string    `gorm:"primaryKey;type:date"`
	ViewsMaps         int64     `gorm:"not null;default:0"`
	ViewsSearch       int64     `gorm:"not null;default:0"`
	WebsiteClicks     int64     `gorm:"not null;default:0"`
	CallClicks        int64     `gorm:"not null;default:0"`
	DirectionRequests int64     `gorm:"not null;default:0"`
	Conversations     int64     `gorm:"not null;default:0"`
	Bookings          int64     `gorm:"not null;default:0"`
	SyncedAt          time.Time `gorm:"type:timestamptz"`
}

func (LocationMetric) TableName() string {
	return "location_metrics"
}
