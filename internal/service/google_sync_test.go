package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	googleclient "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/client/google"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/config"
)

type fakeGoogleAPI struct {
	failLocations map[string]bool
	metricCalls   []string
	reviewPages   map[string][]googleclient.ReviewsResponse
	reviewCalls   int
}

func (f *fakeGoogleAPI) FetchDailyMetrics(ctx context.Context, locationID string, start, end time.Time) (*googleclient.MultiDailyMetricsResponse, error) {
	f.metricCalls = append(f.metricCalls, locationID)
	if f.failLocations[locationID] {
		return nil, fmt.Errorf("upstream 500")
	}
	return &googleclient.MultiDailyMetricsResponse{
		MultiDailyMetricTimeSeries: []googleclient.MultiDailyMetricTimeSeries{{
			DailyMetricTimeSeries: []googleclient.DailyMetricTimeSeries{{
				DailyMetric: "BUSINESS_IMPRESSIONS_DESKTOP_MAPS",
				TimeSeries: googleclient.TimeSeries{DatedValues: []googleclient.DatedValue{
					{Date: googleclient.Date{Year: 2026, Month: 8, Day: 20}, Value: "4"},
				}},
			}},
		}},
	}, nil
}

func (f *fakeGoogleAPI) ListReviews(ctx context.Context, accountID, locationID, pageToken string) (*googleclient.ReviewsResponse, error) {
	f.reviewCalls++
	pages := f.reviewPages[locationID]
	idx := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "page-%d", &idx)
	}
	if idx >= len(pages) {
		return &googleclient.ReviewsResponse{}, nil
	}
	return &pages[idx], nil
}

type staticTokens struct{ err error }

func (s staticTokens) GetValidToken(ctx context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token", nil
}

func newGoogleService(store *stubStore, api *fakeGoogleAPI, locations []string) *GoogleSyncService {
	return &GoogleSyncService{
		Store:     store,
		API:       api,
		Tokens:    staticTokens{},
		AccountID: "accounts/1",
		Locations: locations,
		Cfg:       config.SyncConfig{WindowDays: 3, MaxItems: 5000},
		Logger:    nil,
		now:       func() time.Time { return time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC) },
	}
}

func TestSyncMetricsIsolatesLocationFailures(t *testing.T) {
	store := newStubStore()
	api := &fakeGoogleAPI{failLocations: map[string]bool{"loc3": true}}
	svc := newGoogleService(store, api, []string{"loc1", "loc2", "loc3", "loc4", "loc5"})

	result, err := svc.SyncMetrics(context.Background(), MetricsOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if result.Succeeded != 4 {
		t.Fatalf("succeeded=%d want 4", result.Succeeded)
	}
	if result.Failed != 1 {
		t.Fatalf("failed=%d want 1", result.Failed)
	}
	if len(api.metricCalls) != 5 {
		t.Fatalf("metric calls=%d want 5, a failing location must not stop the rest", len(api.metricCalls))
	}
	if len(result.Errors) != 1 || result.Errors[0].Entity != "loc3" {
		t.Fatalf("errors=%v want one entry for loc3", result.Errors)
	}
}

func TestSyncMetricsWatermarkHeldBackOnFailure(t *testing.T) {
	store := newStubStore()
	api := &fakeGoogleAPI{failLocations: map[string]bool{"loc2": true}}
	svc := newGoogleService(store, api, []string{"loc1", "loc2"})

	if _, err := svc.SyncMetrics(context.Background(), MetricsOptions{}); err != nil {
		t.Fatalf("err=%v", err)
	}
	state := store.states[ScopeGoogleMetrics]
	if state.WatermarkTS != nil {
		t.Fatalf("watermark advanced despite a failed location")
	}
	if state.LastError == nil {
		t.Fatalf("last error not recorded")
	}
	if state.LastAttemptAt == nil {
		t.Fatalf("attempt not recorded")
	}
}

func TestSyncMetricsWatermarkAdvancesOnSuccess(t *testing.T) {
	store := newStubStore()
	api := &fakeGoogleAPI{}
	svc := newGoogleService(store, api, []string{"loc1", "loc2"})

	result, err := svc.SyncMetrics(context.Background(), MetricsOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if result.Failed != 0 {
		t.Fatalf("failed=%d want 0", result.Failed)
	}
	if result.Rows != 2 {
		t.Fatalf("rows=%d want 2", result.Rows)
	}
	state := store.states[ScopeGoogleMetrics]
	if state.WatermarkTS == nil || state.LastSuccessAt == nil {
		t.Fatalf("watermark not advanced after a clean run")
	}
	if state.LastError != nil {
		t.Fatalf("last error=%v want nil", *state.LastError)
	}
}

func TestSyncMetricsAbortsWhenTokenUnavailable(t *testing.T) {
	store := newStubStore()
	api := &fakeGoogleAPI{}
	svc := newGoogleService(store, api, []string{"loc1"})
	svc.Tokens = staticTokens{err: fmt.Errorf("refresh rejected")}

	_, err := svc.SyncMetrics(context.Background(), MetricsOptions{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(api.metricCalls) != 0 {
		t.Fatalf("metric calls=%d want 0, credential failure must abort before fetching", len(api.metricCalls))
	}
	state := store.states[ScopeGoogleMetrics]
	if state.LastError == nil {
		t.Fatalf("credential failure not recorded on sync state")
	}
}

func reviewPage(count int, next string) googleclient.ReviewsResponse {
	page := googleclient.ReviewsResponse{NextPageToken: next}
	for i := 0; i < count; i++ {
		page.Reviews = append(page.Reviews, googleclient.Review{
			ReviewID:   fmt.Sprintf("r-%s-%d", next, i),
			StarRating: "FIVE",
			CreateTime: "2026-08-20T10:00:00Z",
		})
	}
	return page
}

func TestSyncReviewsStopsAtItemCap(t *testing.T) {
	store := newStubStore()
	api := &fakeGoogleAPI{reviewPages: map[string][]googleclient.ReviewsResponse{
		"loc1": {reviewPage(50, "page-1"), reviewPage(50, "page-2"), reviewPage(50, "")},
	}}
	svc := newGoogleService(store, api, []string{"loc1"})
	svc.Cfg.MaxItems = 80

	result, err := svc.SyncReviews(context.Background(), ReviewsOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !result.Partial {
		t.Fatalf("partial=false want true once the cap is hit")
	}
	if result.Reviews != 80 {
		t.Fatalf("reviews=%d want 80", result.Reviews)
	}
	if api.reviewCalls != 2 {
		t.Fatalf("review calls=%d want 2, the walk must stop once the cap is covered", api.reviewCalls)
	}
	state := store.states[ScopeGoogleReviews]
	if state.Cursor == nil {
		t.Fatalf("cursor not persisted on a capped run")
	}
	if *state.Cursor != "loc1|page-1" {
		t.Fatalf("cursor=%q want loc1|page-1, the truncated page must be resumable", *state.Cursor)
	}
}

func TestSyncReviewsWalksAllPages(t *testing.T) {
	store := newStubStore()
	api := &fakeGoogleAPI{reviewPages: map[string][]googleclient.ReviewsResponse{
		"loc1": {reviewPage(50, "page-1"), reviewPage(20, "")},
	}}
	svc := newGoogleService(store, api, []string{"loc1"})

	result, err := svc.SyncReviews(context.Background(), ReviewsOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if result.Partial {
		t.Fatalf("partial=true want false")
	}
	if result.Reviews != 70 {
		t.Fatalf("reviews=%d want 70", result.Reviews)
	}
	if len(store.reviews) != 70 {
		t.Fatalf("stored reviews=%d want 70", len(store.reviews))
	}
	state := store.states[ScopeGoogleReviews]
	if state.LastSuccessAt == nil {
		t.Fatalf("success not recorded")
	}
	if state.Cursor != nil {
		t.Fatalf("cursor=%q want nil after an exhaustive walk", *state.Cursor)
	}
}
