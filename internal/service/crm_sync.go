package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	whatchimpclient "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/client/whatchimp"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/config"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/models"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/normalize"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/repository"
)

// CrmAPI is the slice of the WhatChimp surface the sync needs.
type CrmAPI interface {
	ListSubscribers(ctx context.Context, page, limit int) ([]whatchimpclient.Subscriber, bool, error)
	RemoveLabel(ctx context.Context, subscriberID, labelID int64) error
	AssignLabel(ctx context.Context, subscriberID, labelID int64) error
	SetCustomField(ctx context.Context, subscriberID int64, field, value string) error
}

// segmentCustomField is the CRM custom field that mirrors the assigned
// segment label.
const segmentCustomField = "segmento"

type CrmSyncService struct {
	Store     repository.Store
	API       CrmAPI
	Labels    map[string]int64
	Blacklist []string
	Cfg       config.SyncConfig
	Logger    *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type CrmOptions struct {
	PageLimit int
	MaxItems  int
}

type CrmResult struct {
	Scope     string        `json:"scope"`
	Fetched   int           `json:"fetched"`
	Discarded int           `json:"discarded"`
	Denied    int           `json:"denied"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Partial   bool          `json:"partial"`
	Errors    []EntityError `json:"errors,omitempty"`
}

// Sync pages through the CRM subscriber list, drops deny-listed numbers,
// collapses duplicate contacts onto one canonical phone and then reconciles
// each remaining contact: segment label membership on the CRM side plus the
// local subscriber row. Contacts are reconciled in small concurrent batches;
// one failing contact never blocks the others.
func (s *CrmSyncService) Sync(ctx context.Context, opts CrmOptions) (CrmResult, error) {
	result := CrmResult{Scope: ScopeCrmSubscribers}
	if s.API == nil {
		return result, fmt.Errorf("whatchimp client is nil")
	}

	subs, partial, err := s.fetchAll(ctx, opts)
	if err != nil {
		s.writeSyncError(ctx, err)
		return result, err
	}
	result.Fetched = len(subs)
	result.Partial = partial

	denied := s.denySet()
	allowed := subs[:0]
	for _, sub := range subs {
		if _, blocked := denied[normalize.Phone(sub.Phone)]; blocked {
			result.Denied++
			continue
		}
		allowed = append(allowed, sub)
	}

	kept := DedupeSubscribers(allowed, s.Logger)
	result.Discarded = len(allowed) - len(kept)
	result.Processed = len(kept)

	now := s.clock().UTC()
	outcomes := s.reconcileBatches(ctx, kept, now)
	for i, err := range outcomes {
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, EntityError{
				Entity: normalize.Phone(kept[i].Phone),
				Error:  err.Error(),
			})
			continue
		}
		result.Succeeded++
	}

	state := &models.SyncState{
		Scope:         ScopeCrmSubscribers,
		LastAttemptAt: &now,
		StatsJSON: statsJSON(map[string]int{
			"fetched":   result.Fetched,
			"discarded": result.Discarded,
			"denied":    result.Denied,
			"processed": result.Processed,
			"failed":    result.Failed,
		}),
	}
	if result.Failed == 0 && !result.Partial {
		state.LastSuccessAt = &now
		state.WatermarkTS = &now
	} else if result.Failed == 0 {
		state.LastSuccessAt = &now
	} else {
		state.LastError = strPtr(joinEntityErrors(result.Errors))
	}
	if err := s.Store.SaveSyncState(ctx, state); err != nil {
		return result, err
	}
	return result, nil
}

func (s *CrmSyncService) fetchAll(ctx context.Context, opts CrmOptions) ([]whatchimpclient.Subscriber, bool, error) {
	limit := opts.PageLimit
	if limit <= 0 {
		limit = s.Cfg.PageLimit
	}
	if limit <= 0 {
		limit = 100
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = s.Cfg.MaxItems
	}
	if maxItems <= 0 {
		maxItems = 5000
	}

	var out []whatchimpclient.Subscriber
	for page := 1; ; page++ {
		batch, hasMore, err := s.API.ListSubscribers(ctx, page, limit)
		if err != nil {
			return nil, false, fmt.Errorf("list subscribers page %d: %w", page, err)
		}
		out = append(out, batch...)
		if len(out) >= maxItems {
			return out[:maxItems], true, nil
		}
		if !hasMore {
			return out, false, nil
		}
	}
}

// DedupeSubscribers collapses contacts that normalize to the same phone. The
// contact with the higher transaction count wins; on equal counts the first
// one seen wins. Every discarded duplicate is logged with both identities so
// the collision is auditable.
func DedupeSubscribers(subs []whatchimpclient.Subscriber, logger *zap.Logger) []whatchimpclient.Subscriber {
	byPhone := make(map[string]int, len(subs))
	out := make([]whatchimpclient.Subscriber, 0, len(subs))
	for _, sub := range subs {
		phone := normalize.Phone(sub.Phone)
		if phone == "" {
			continue
		}
		idx, seen := byPhone[phone]
		if !seen {
			byPhone[phone] = len(out)
			out = append(out, sub)
			continue
		}
		kept := out[idx]
		if sub.TransactionCount > kept.TransactionCount {
			out[idx] = sub
			kept, sub = sub, kept
		}
		if logger != nil {
			logger.Info("discarded duplicate subscriber",
				zap.String("phone", phone),
				zap.Int64("kept_id", kept.ID),
				zap.Int("kept_transactions", kept.TransactionCount),
				zap.Int64("discarded_id", sub.ID),
				zap.Int("discarded_transactions", sub.TransactionCount))
		}
	}
	return out
}

// reconcileBatches runs reconcileOne over the contacts in batches of
// Sync.BatchSize goroutines, waiting for each batch before starting the next.
func (s *CrmSyncService) reconcileBatches(ctx context.Context, subs []whatchimpclient.Subscriber, now time.Time) []error {
	batchSize := s.Cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	outcomes := make([]error, len(subs))
	for start := 0; start < len(subs); start += batchSize {
		end := start + batchSize
		if end > len(subs) {
			end = len(subs)
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i] = s.reconcileOne(ctx, subs[i], now)
			}(i)
		}
		wg.Wait()
	}
	return outcomes
}

func (s *CrmSyncService) reconcileOne(ctx context.Context, sub whatchimpclient.Subscriber, now time.Time) error {
	segment := segmentFor(sub.TransactionCount)
	desiredID, managed := s.Labels[segment]

	current := make(map[string]bool, len(sub.Labels))
	for _, label := range sub.Labels {
		current[strings.ToLower(strings.TrimSpace(label.Name))] = true
	}

	// Remove stale managed labels first so the contact never carries two
	// segments at once, then assign the new one.
	for name, id := range s.Labels {
		if name == segment || !current[name] {
			continue
		}
		if err := s.API.RemoveLabel(ctx, sub.ID, id); err != nil {
			return fmt.Errorf("remove label %q: %w", name, err)
		}
		if err := s.pace(ctx); err != nil {
			return err
		}
	}
	if managed && !current[segment] {
		if err := s.API.AssignLabel(ctx, sub.ID, desiredID); err != nil {
			return fmt.Errorf("assign label %q: %w", segment, err)
		}
		if err := s.pace(ctx); err != nil {
			return err
		}
	}
	if err := s.API.SetCustomField(ctx, sub.ID, segmentCustomField, segment); err != nil {
		return fmt.Errorf("set custom field: %w", err)
	}

	row := models.Subscriber{
		Phone:            normalize.Phone(sub.Phone),
		Name:             strings.TrimSpace(sub.FirstName + " " + sub.LastName),
		Labels:           labelsJSON(segment),
		CustomFields:     customFieldsJSON(sub.CustomFields, segment),
		TransactionCount: sub.TransactionCount,
		LastSyncedAt:     now,
	}
	return s.Store.UpsertSubscribers(ctx, []models.Subscriber{row})
}

// segmentFor maps a lifetime transaction count onto the managed segment
// taxonomy.
func segmentFor(transactions int) string {
	switch {
	case transactions >= 20:
		return "vip"
	case transactions >= 8:
		return "frequente"
	case transactions >= 3:
		return "regular"
	default:
		return "novo"
	}
}

func (s *CrmSyncService) denySet() map[string]struct{} {
	out := make(map[string]struct{}, len(s.Blacklist))
	for _, raw := range s.Blacklist {
		if phone := normalize.Phone(raw); phone != "" {
			out[phone] = struct{}{}
		}
	}
	return out
}

func (s *CrmSyncService) pace(ctx context.Context) error {
	delay := s.Cfg.InterCallDelay
	if delay <= 0 {
		return nil
	}
	if s.sleep != nil {
		return s.sleep(ctx, delay)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *CrmSyncService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *CrmSyncService) writeSyncError(ctx context.Context, err error) {
	if s.Logger != nil {
		s.Logger.Warn("crm sync failed", zap.String("scope", ScopeCrmSubscribers), zap.Error(err))
	}
	writeScopeError(ctx, s.Store, ScopeCrmSubscribers, err)
}

func labelsJSON(labels ...string) datatypes.JSON {
	payload, err := json.Marshal(labels)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(payload)
}

func customFieldsJSON(fields map[string]string, segment string) datatypes.JSON {
	merged := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged[segmentCustomField] = segment
	payload, err := json.Marshal(merged)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(payload)
}
