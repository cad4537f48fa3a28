package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/models"
)

// Store is the persistence surface used by the sync services. All writes are
// upserts keyed on a stable natural key so re-running a window is safe.
type Store interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	GetCredential(ctx context.Context, provider string) (*models.Credential, error)
	SaveCredential(ctx context.Context, cred *models.Credential) error

	GetSyncState(ctx context.Context, scope string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error
	ListSyncStates(ctx context.Context) ([]models.SyncState, error)

	UpsertLocationMetrics(ctx context.Context, items []models.LocationMetric) error
	UpsertLocationMetricsTx(ctx context.Context, tx *gorm.DB, items []models.LocationMetric) error
	ListLocationMetrics(ctx context.Context, locationID string, from, to string) ([]models.LocationMetric, error)

	UpsertReviews(ctx context.Context, items []models.Review) error
	ListReviews(ctx context.Context, locationID string, limit int) ([]models.Review, error)

	UpsertConversationCosts(ctx context.Context, items []models.ConversationCost) error
	UpsertMessageVolumes(ctx context.Context, items []models.MessageVolume) error

	UpsertSubscribers(ctx context.Context, items []models.Subscriber) error
	GetSubscriber(ctx context.Context, phone string) (*models.Subscriber, error)
	ListSubscribers(ctx context.Context, limit, offset int) ([]models.Subscriber, error)

	InsertSyncRun(ctx context.Context, run *models.SyncRun) error
	ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error)
}
