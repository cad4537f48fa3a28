package db

import (
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.Credential{},
		&models.SyncState{},
		&models.SyncRun{},
		&models.LocationMetric{},
		&models.Review{},
		&models.ConversationCost{},
		&models.MessageVolume{},
		&models.Subscriber{},
	)
}
