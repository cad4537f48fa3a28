package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	googleclient "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/client/google"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/credentials"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/models"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/service"
)

// failingStore errors on the list methods the read endpoints use and is inert
// everywhere else.
type failingStore struct{}

func (failingStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return nil }
func (failingStore) GetCredential(ctx context.Context, provider string) (*models.Credential, error) {
	return nil, nil
}
func (failingStore) SaveCredential(ctx context.Context, cred *models.Credential) error { return nil }
func (failingStore) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	return nil, nil
}
func (failingStore) SaveSyncState(ctx context.Context, state *models.SyncState) error { return nil }
func (failingStore) SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error {
	return nil
}
func (failingStore) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	return nil, fmt.Errorf("connection refused")
}
func (failingStore) UpsertLocationMetrics(ctx context.Context, items []models.LocationMetric) error {
	return nil
}
func (failingStore) UpsertLocationMetricsTx(ctx context.Context, tx *gorm.DB, items []models.LocationMetric) error {
	return nil
}
func (failingStore) ListLocationMetrics(ctx context.Context, locationID string, from, to string) ([]models.LocationMetric, error) {
	return nil, nil
}
func (failingStore) UpsertReviews(ctx context.Context, items []models.Review) error { return nil }
func (failingStore) ListReviews(ctx context.Context, locationID string, limit int) ([]models.Review, error) {
	return nil, nil
}
func (failingStore) UpsertConversationCosts(ctx context.Context, items []models.ConversationCost) error {
	return nil
}
func (failingStore) UpsertMessageVolumes(ctx context.Context, items []models.MessageVolume) error {
	return nil
}
func (failingStore) UpsertSubscribers(ctx context.Context, items []models.Subscriber) error {
	return nil
}
func (failingStore) GetSubscriber(ctx context.Context, phone string) (*models.Subscriber, error) {
	return nil, nil
}
func (failingStore) ListSubscribers(ctx context.Context, limit, offset int) ([]models.Subscriber, error) {
	return nil, nil
}
func (failingStore) InsertSyncRun(ctx context.Context, run *models.SyncRun) error { return nil }
func (failingStore) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	return nil, fmt.Errorf("connection refused")
}

type expiredTokens struct{}

func (expiredTokens) GetValidToken(ctx context.Context) (string, error) {
	return "", credentials.ErrNotConfigured
}

type idleGoogleAPI struct{}

func (idleGoogleAPI) FetchDailyMetrics(ctx context.Context, locationID string, start, end time.Time) (*googleclient.MultiDailyMetricsResponse, error) {
	return &googleclient.MultiDailyMetricsResponse{}, nil
}

func (idleGoogleAPI) ListReviews(ctx context.Context, accountID, locationID, pageToken string) (*googleclient.ReviewsResponse, error) {
	return &googleclient.ReviewsResponse{}, nil
}

func newTestEngine(h *SyncHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	h.Register(engine)
	return engine
}

func TestWrongMethodReturns405(t *testing.T) {
	engine := newTestEngine(&SyncHandler{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sync/google", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want 405", rec.Code)
	}
}

func TestListEndpointsReturn500OnStoreFailure(t *testing.T) {
	engine := newTestEngine(&SyncHandler{Store: failingStore{}})

	for _, path := range []string{"/api/sync/state", "/api/sync/runs"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		engine.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s status=%d want 500", path, rec.Code)
		}
	}
}

func TestSyncGoogleMapsMissingCredentialTo401(t *testing.T) {
	svc := &service.GoogleSyncService{
		Store:     failingStore{},
		API:       idleGoogleAPI{},
		Tokens:    expiredTokens{},
		AccountID: "accounts/1",
		Locations: []string{"loc1"},
	}
	engine := newTestEngine(&SyncHandler{Google: svc, Store: failingStore{}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sync/google", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "reauthorize") {
		t.Fatalf("body=%s want a reauthorize hint", rec.Body.String())
	}
}
