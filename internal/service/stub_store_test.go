package service

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/models"
)

// stubStore is an in-memory repository.Store for service tests.
type stubStore struct {
	mu sync.Mutex

	creds       map[string]*models.Credential
	states      map[string]models.SyncState
	metrics     []models.LocationMetric
	reviews     []models.Review
	convCosts   []models.ConversationCost
	msgVolumes  []models.MessageVolume
	subscribers map[string]models.Subscriber
	runs        []models.SyncRun

	metricsErr     error
	reviewsErr     error
	subscribersErr error
}

func newStubStore() *stubStore {
	return &stubStore{
		creds:       make(map[string]*models.Credential),
		states:      make(map[string]models.SyncState),
		subscribers: make(map[string]models.Subscriber),
	}
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubStore) GetCredential(ctx context.Context, provider string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds[provider], nil
}

func (s *stubStore) SaveCredential(ctx context.Context, cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.Provider] = cred
	return nil
}

func (s *stubStore) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[scope]; ok {
		return &state, nil
	}
	return nil, nil
}

func (s *stubStore) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Scope] = *state
	return nil
}

func (s *stubStore) SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error {
	return s.SaveSyncState(ctx, state)
}

func (s *stubStore) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncState, 0, len(s.states))
	for _, state := range s.states {
		out = append(out, state)
	}
	return out, nil
}

func (s *stubStore) UpsertLocationMetrics(ctx context.Context, items []models.LocationMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metricsErr != nil {
		return s.metricsErr
	}
	s.metrics = append(s.metrics, items...)
	return nil
}

func (s *stubStore) UpsertLocationMetricsTx(ctx context.Context, tx *gorm.DB, items []models.LocationMetric) error {
	return s.UpsertLocationMetrics(ctx, items)
}

func (s *stubStore) ListLocationMetrics(ctx context.Context, locationID string, from, to string) ([]models.LocationMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics, nil
}

func (s *stubStore) UpsertReviews(ctx context.Context, items []models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reviewsErr != nil {
		return s.reviewsErr
	}
	s.reviews = append(s.reviews, items...)
	return nil
}

func (s *stubStore) ListReviews(ctx context.Context, locationID string, limit int) ([]models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviews, nil
}

func (s *stubStore) UpsertConversationCosts(ctx context.Context, items []models.ConversationCost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convCosts = append(s.convCosts, items...)
	return nil
}

func (s *stubStore) UpsertMessageVolumes(ctx context.Context, items []models.MessageVolume) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgVolumes = append(s.msgVolumes, items...)
	return nil
}

func (s *stubStore) UpsertSubscribers(ctx context.Context, items []models.Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribersErr != nil {
		return s.subscribersErr
	}
	for _, item := range items {
		s.subscribers[item.Phone] = item
	}
	return nil
}

func (s *stubStore) GetSubscriber(ctx context.Context, phone string) (*models.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subscribers[phone]; ok {
		return &sub, nil
	}
	return nil, nil
}

func (s *stubStore) ListSubscribers(ctx context.Context, limit, offset int) ([]models.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		out = append(out, sub)
	}
	return out, nil
}

func (s *stubStore) InsertSyncRun(ctx context.Context, run *models.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

func (s *stubStore) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, nil
}
