package models

import "time"

// Credential stores one vendor OAuth grant. The access token is replaced on
// every refresh; the refresh token only changes on a new consent exchange.
type Credential struct {
	Provider     string    `gorm:"primaryKey;type:text"`
	AccessToken  string    `gorm:"type:text"`
	RefreshToken string    `gorm:"type:text"`
	Expiry       time.Time `gorm:"type:timestamptz"`
	Scope        string    `gorm:"type:text"`
	UpdatedAt    time.Time `gorm:"type:timestamptz"`
}

func (Credential) TableName() string {
	return "credentials"
}
