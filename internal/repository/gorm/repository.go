package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- credentials -------------------------------------------------------------

func (s *Store) GetCredential(ctx context.Context, provider string) (*models.Credential, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var cred models.Credential
	err := s.db.WithContext(ctx).First(&cred, "provider = ?", provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *Store) SaveCredential(ctx context.Context, cred *models.Credential) error {
	if s == nil || s.db == nil || cred == nil {
		return nil
	}
	if strings.TrimSpace(cred.Provider) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token",
			"refresh_token",
			"expiry",
			"scope",
			"updated_at",
		}),
	}).Create(cred).Error
}

// --- sync state --------------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.SyncState
	err := s.db.WithContext(ctx).First(&state, "scope = ?", scope).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	return s.saveSyncState(s.db.WithContext(ctx), state)
}

func (s *Store) SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error {
	if tx == nil || state == nil {
		return nil
	}
	return s.saveSyncState(tx.WithContext(ctx), state)
}

func (s *Store) saveSyncState(db *gorm.DB, state *models.SyncState) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cursor",
			"watermark_ts",
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"stats_json",
		}),
	}).Create(state).Error
}

func (s *Store) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SyncState
	if err := s.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Order("scope asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- location metrics --------------------------------------------------------

func (s *Store) UpsertLocationMetrics(ctx context.Context, items []models.LocationMetric) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.upsertLocationMetrics(s.db.WithContext(ctx), items)
}

func (s *Store) UpsertLocationMetricsTx(ctx context.Context, tx *gorm.DB, items []models.LocationMetric) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return s.upsertLocationMetrics(tx.WithContext(ctx), items)
}

func (s *Store) upsertLocationMetrics(db *gorm.DB, items []models.LocationMetric) error {
	return createInBatches(db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "location_id"}, {Name: "bucket_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"views_maps",
			"views_search",
			"website_clicks",
			"call_clicks",
			"direction_requests",
			"conversations",
			"bookings",
			"synced_at",
		}),
	}), items, 200)
}

func (s *Store) ListLocationMetrics(ctx context.Context, locationID string, from, to string) ([]models.LocationMetric, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.LocationMetric{})
	if strings.TrimSpace(locationID) != "" {
		query = query.Where("location_id = ?", locationID)
	}
	if from != "" {
		query = query.Where("bucket_date >= ?", from)
	}
	if to != "" {
		query = query.Where("bucket_date <= ?", to)
	}
	var items []models.LocationMetric
	if err := query.Order("bucket_date asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- reviews -----------------------------------------------------------------

func (s *Store) UpsertReviews(ctx context.Context, items []models.Review) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return createInBatches(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "review_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"location_id",
			"reviewer",
			"rating",
			"comment",
			"create_time",
			"update_time",
			"reply_comment",
			"reply_time",
			"raw_json",
			"synced_at",
		}),
	}), items, 200)
}

func (s *Store) ListReviews(ctx context.Context, locationID string, limit int) ([]models.Review, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Review{})
	if strings.TrimSpace(locationID) != "" {
		query = query.Where("location_id = ?", locationID)
	}
	var items []models.Review
	if err := query.Order("create_time desc").Limit(normalizeLimit(limit, 100)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- whatsapp analytics ------------------------------------------------------

func (s *Store) UpsertConversationCosts(ctx context.Context, items []models.ConversationCost) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return createInBatches(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "waba_id"}, {Name: "bucket_date"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"conversations",
			"cost",
			"synced_at",
		}),
	}), items, 200)
}

func (s *Store) UpsertMessageVolumes(ctx context.Context, items []models.MessageVolume) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return createInBatches(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "waba_id"}, {Name: "bucket_date"}, {Name: "direction"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sent",
			"delivered",
			"synced_at",
		}),
	}), items, 200)
}

// --- subscribers -------------------------------------------------------------

func (s *Store) UpsertSubscribers(ctx context.Context, items []models.Subscriber) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return createInBatches(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"labels",
			"custom_fields",
			"transaction_count",
			"last_synced_at",
		}),
	}), items, 200)
}

func (s *Store) GetSubscriber(ctx context.Context, phone string) (*models.Subscriber, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var sub models.Subscriber
	err := s.db.WithContext(ctx).First(&sub, "phone = ?", phone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) ListSubscribers(ctx context.Context, limit, offset int) ([]models.Subscriber, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Subscriber
	if err := s.db.WithContext(ctx).
		Model(&models.Subscriber{}).
		Order("phone asc").
		Limit(normalizeLimit(limit, 200)).
		Offset(normalizeOffset(offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- sync runs ---------------------------------------------------------------

func (s *Store) InsertSyncRun(ctx context.Context, run *models.SyncRun) error {
	if s == nil || s.db == nil || run == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SyncRun
	if err := s.db.WithContext(ctx).
		Model(&models.SyncRun{}).
		Order("started_at desc").
		Limit(normalizeLimit(limit, 50)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers -----------------------------------------------------------------

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := db.CreateInBatches(items[i:end], batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
