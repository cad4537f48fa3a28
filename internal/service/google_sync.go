package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	googleclient "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/client/google"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/config"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/models"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/normalize"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/repository"
)

// Scope names for the sync_state watermark rows.
const (
	ScopeGoogleMetrics  = "google_metrics"
	ScopeGoogleReviews  = "google_reviews"
	ScopeMetaAnalytics  = "meta_analytics"
	ScopeCrmSubscribers = "crm_subscribers"
)

// TokenSource yields a usable access token, refreshing it when needed.
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, error)
}

// GoogleAPI is the slice of the Business Profile surface the sync needs.
type GoogleAPI interface {
	FetchDailyMetrics(ctx context.Context, locationID string, start, end time.Time) (*googleclient.MultiDailyMetricsResponse, error)
	ListReviews(ctx context.Context, accountID, locationID, pageToken string) (*googleclient.ReviewsResponse, error)
}

type GoogleSyncService struct {
	Store     repository.Store
	API       GoogleAPI
	Tokens    TokenSource
	AccountID string
	Locations []string
	Cfg       config.SyncConfig
	Logger    *zap.Logger

	now func() time.Time
}

type MetricsOptions struct {
	Start       time.Time
	End         time.Time
	LocationIDs []string
}

type MetricsResult struct {
	Scope     string        `json:"scope"`
	Locations int           `json:"locations"`
	Rows      int           `json:"rows"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Errors    []EntityError `json:"errors,omitempty"`
}

type ReviewsOptions struct {
	LocationIDs []string
	MaxItems    int
}

type ReviewsResult struct {
	Scope     string        `json:"scope"`
	Locations int           `json:"locations"`
	Reviews   int           `json:"reviews"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Partial   bool          `json:"partial"`
	Errors    []EntityError `json:"errors,omitempty"`
}

// EntityError records one failed entity without aborting the rest of the run.
type EntityError struct {
	Entity string `json:"entity"`
	Error  string `json:"error"`
}

// SyncMetrics pulls daily performance metrics for every configured location
// and upserts them keyed on (location, day). Each location fails or succeeds
// on its own; the watermark only advances when every location succeeded.
func (s *GoogleSyncService) SyncMetrics(ctx context.Context, opts MetricsOptions) (MetricsResult, error) {
	result := MetricsResult{Scope: ScopeGoogleMetrics}
	if s.API == nil {
		return result, fmt.Errorf("google client is nil")
	}
	locations := s.resolveLocations(opts.LocationIDs)
	if len(locations) == 0 {
		return result, fmt.Errorf("no google locations configured")
	}
	if s.Tokens != nil {
		if _, err := s.Tokens.GetValidToken(ctx); err != nil {
			s.writeSyncError(ctx, ScopeGoogleMetrics, err)
			return result, err
		}
	}

	start, end := s.resolveWindow(opts.Start, opts.End)
	now := s.clock().UTC()
	result.Locations = len(locations)
	for _, locationID := range locations {
		payload, err := s.API.FetchDailyMetrics(ctx, locationID, start, end)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, EntityError{Entity: locationID, Error: err.Error()})
			if s.Logger != nil {
				s.Logger.Warn("google metrics sync failed for location",
					zap.String("location_id", locationID), zap.Error(err))
			}
			continue
		}
		rows := normalize.GoogleMetrics(payload, locationID, now, s.Logger)
		if err := s.Store.UpsertLocationMetrics(ctx, rows); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, EntityError{Entity: locationID, Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Rows += len(rows)
	}

	state := &models.SyncState{
		Scope:         ScopeGoogleMetrics,
		LastAttemptAt: &now,
		StatsJSON:     statsJSON(map[string]int{"locations": result.Locations, "rows": result.Rows, "failed": result.Failed}),
	}
	if result.Failed == 0 {
		state.LastSuccessAt = &now
		state.WatermarkTS = &end
	} else {
		state.LastError = strPtr(joinEntityErrors(result.Errors))
	}
	if err := s.Store.SaveSyncState(ctx, state); err != nil {
		return result, err
	}
	return result, nil
}

// SyncReviews walks the review pages for every configured location. The walk
// stops once MaxItems reviews have been collected across pages; the result is
// then flagged partial so the caller knows the window was not exhausted.
func (s *GoogleSyncService) SyncReviews(ctx context.Context, opts ReviewsOptions) (ReviewsResult, error) {
	result := ReviewsResult{Scope: ScopeGoogleReviews}
	if s.API == nil {
		return result, fmt.Errorf("google client is nil")
	}
	locations := s.resolveLocations(opts.LocationIDs)
	if len(locations) == 0 {
		return result, fmt.Errorf("no google locations configured")
	}
	if s.Tokens != nil {
		if _, err := s.Tokens.GetValidToken(ctx); err != nil {
			s.writeSyncError(ctx, ScopeGoogleReviews, err)
			return result, err
		}
	}

	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = s.Cfg.MaxItems
	}
	if maxItems <= 0 {
		maxItems = 5000
	}

	now := s.clock().UTC()
	result.Locations = len(locations)
	total := 0
	cursor := ""
	for i, locationID := range locations {
		fetched, resumeToken, truncated, err := s.collectReviews(ctx, locationID, maxItems-total)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, EntityError{Entity: locationID, Error: err.Error()})
			if s.Logger != nil {
				s.Logger.Warn("google reviews sync failed for location",
					zap.String("location_id", locationID), zap.Error(err))
			}
			continue
		}
		rows := normalize.GoogleReviews(fetched, locationID, now)
		if err := s.Store.UpsertReviews(ctx, rows); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, EntityError{Entity: locationID, Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Reviews += len(rows)
		total += len(fetched)
		if truncated {
			result.Partial = true
			if cursor == "" {
				cursor = locationID + "|" + resumeToken
			}
		}
		if total >= maxItems {
			result.Partial = true
			if cursor == "" && i+1 < len(locations) {
				cursor = locations[i+1] + "|"
			}
			break
		}
	}

	state := &models.SyncState{
		Scope:         ScopeGoogleReviews,
		LastAttemptAt: &now,
		StatsJSON:     statsJSON(map[string]int{"locations": result.Locations, "reviews": result.Reviews, "failed": result.Failed}),
	}
	if result.Partial {
		state.Cursor = strPtr(cursor)
	}
	if result.Failed == 0 {
		state.LastSuccessAt = &now
		state.WatermarkTS = &now
	} else {
		state.LastError = strPtr(joinEntityErrors(result.Errors))
	}
	if err := s.Store.SaveSyncState(ctx, state); err != nil {
		return result, err
	}
	return result, nil
}

// collectReviews walks a location's review pages until the pages run out or
// the remaining item budget is spent. When the walk is cut short it reports
// the token of the truncated page so the next run can resume there; the
// overlap this causes is absorbed by the idempotent upsert.
func (s *GoogleSyncService) collectReviews(ctx context.Context, locationID string, budget int) ([]googleclient.Review, string, bool, error) {
	if budget <= 0 {
		return nil, "", true, nil
	}
	var out []googleclient.Review
	pageToken := ""
	for {
		page, err := s.API.ListReviews(ctx, s.AccountID, locationID, pageToken)
		if err != nil {
			return nil, "", false, err
		}
		out = append(out, page.Reviews...)
		if len(out) >= budget {
			if len(out) == budget {
				return out, page.NextPageToken, page.NextPageToken != "", nil
			}
			return out[:budget], pageToken, true, nil
		}
		if page.NextPageToken == "" {
			return out, "", false, nil
		}
		pageToken = page.NextPageToken
	}
}

func (s *GoogleSyncService) resolveLocations(override []string) []string {
	src := override
	if len(src) == 0 {
		src = s.Locations
	}
	out := make([]string, 0, len(src))
	for _, id := range src {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	sort.Strings(out)
	return out
}

func (s *GoogleSyncService) resolveWindow(start, end time.Time) (time.Time, time.Time) {
	windowDays := s.Cfg.WindowDays
	if windowDays <= 0 {
		windowDays = 3
	}
	if end.IsZero() {
		end = s.clock().UTC().Truncate(24 * time.Hour)
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -windowDays)
	}
	if start.After(end) {
		start, end = end, start
	}
	return start, end
}

func (s *GoogleSyncService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *GoogleSyncService) writeSyncError(ctx context.Context, scope string, err error) {
	if s.Logger != nil {
		s.Logger.Warn("google sync failed", zap.String("scope", scope), zap.Error(err))
	}
	writeScopeError(ctx, s.Store, scope, err)
}

func writeScopeError(ctx context.Context, store repository.Store, scope string, err error) {
	now := time.Now().UTC()
	_ = store.InTx(ctx, func(tx *gorm.DB) error {
		state := &models.SyncState{
			Scope:         scope,
			LastAttemptAt: &now,
			LastError:     strPtr(err.Error()),
		}
		return store.SaveSyncStateTx(ctx, tx, state)
	})
}

func joinEntityErrors(errs []EntityError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Entity, e.Error))
	}
	return strings.Join(parts, "; ")
}

func statsJSON(stats map[string]int) datatypes.JSON {
	if len(stats) == 0 {
		return datatypes.JSON([]byte("null"))
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(payload)
}

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
