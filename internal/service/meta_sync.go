package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	metaclient "github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/client/meta"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/config"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/models"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/normalize"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/repository"
)

// MetaAPI is the slice of the WhatsApp Business analytics surface the sync
// needs.
type MetaAPI interface {
	WabaID() string
	ConversationAnalytics(ctx context.Context, start, end time.Time) ([]metaclient.ConversationDataPoint, error)
	MessageAnalytics(ctx context.Context, start, end time.Time) ([]metaclient.MessageDataPoint, error)
}

type MetaSyncService struct {
	Store  repository.Store
	API    MetaAPI
	Cfg    config.SyncConfig
	Logger *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type MetaOptions struct {
	Start time.Time
	End   time.Time
}

type MetaResult struct {
	Scope            string        `json:"scope"`
	Chunks           int           `json:"chunks"`
	Succeeded        int           `json:"succeeded"`
	Failed           int           `json:"failed"`
	ConversationRows int           `json:"conversation_rows"`
	MessageRows      int           `json:"message_rows"`
	Errors           []EntityError `json:"errors,omitempty"`
}

// Sync pulls conversation and message analytics for the requested window. The
// vendor rejects wide ranges, so the window is split into bounded chunks that
// are fetched in order with a pause between them. A chunk that fails is
// recorded and skipped; the remaining chunks still run.
func (s *MetaSyncService) Sync(ctx context.Context, opts MetaOptions) (MetaResult, error) {
	result := MetaResult{Scope: ScopeMetaAnalytics}
	if s.API == nil {
		return result, fmt.Errorf("meta client is nil")
	}

	start, end := s.resolveWindow(opts.Start, opts.End)
	chunks := splitRange(start, end, s.chunkDays())
	now := s.clock().UTC()
	wabaID := s.API.WabaID()

	result.Chunks = len(chunks)
	for i, chunk := range chunks {
		if i > 0 {
			if err := s.pause(ctx); err != nil {
				return result, err
			}
		}
		convRows, msgRows, err := s.syncChunk(ctx, wabaID, chunk, now)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, EntityError{
				Entity: fmt.Sprintf("%s..%s", chunk.start.Format("2006-01-02"), chunk.end.Format("2006-01-02")),
				Error:  err.Error(),
			})
			if s.Logger != nil {
				s.Logger.Warn("meta analytics chunk failed",
					zap.Time("chunk_start", chunk.start),
					zap.Time("chunk_end", chunk.end),
					zap.Error(err))
			}
			continue
		}
		result.Succeeded++
		result.ConversationRows += convRows
		result.MessageRows += msgRows
	}

	state := &models.SyncState{
		Scope:         ScopeMetaAnalytics,
		LastAttemptAt: &now,
		StatsJSON: statsJSON(map[string]int{
			"chunks":            result.Chunks,
			"conversation_rows": result.ConversationRows,
			"message_rows":      result.MessageRows,
			"failed":            result.Failed,
		}),
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

func (s *MetaSyncService) syncChunk(ctx context.Context, wabaID string, chunk dateRange, now time.Time) (int, int, error) {
	// The vendor window is half-open, so the exclusive end is the day after
	// the chunk's last day.
	fetchEnd := chunk.end.AddDate(0, 0, 1)
	convPoints, err := s.API.ConversationAnalytics(ctx, chunk.start, fetchEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("conversation analytics: %w", err)
	}
	msgPoints, err := s.API.MessageAnalytics(ctx, chunk.start, fetchEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("message analytics: %w", err)
	}
	convRows := normalize.MetaConversations(convPoints, wabaID, now)
	msgRows := normalize.MetaMessages(msgPoints, wabaID, now)
	if err := s.Store.UpsertConversationCosts(ctx, convRows); err != nil {
		return 0, 0, err
	}
	if err := s.Store.UpsertMessageVolumes(ctx, msgRows); err != nil {
		return 0, 0, err
	}
	return len(convRows), len(msgRows), nil
}

func (s *MetaSyncService) resolveWindow(start, end time.Time) (time.Time, time.Time) {
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

func (s *MetaSyncService) chunkDays() int {
	if s.Cfg.BackfillChunkDays > 0 {
		return s.Cfg.BackfillChunkDays
	}
	return 7
}

func (s *MetaSyncService) pause(ctx context.Context) error {
	delay := s.Cfg.InterChunkDelay
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

func (s *MetaSyncService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

type dateRange struct {
	start time.Time
	end   time.Time
}

// splitRange cuts [start, end] into consecutive sub-ranges of at most maxDays
// days each. Boundaries are inclusive and adjacent ranges do not overlap.
func splitRange(start, end time.Time, maxDays int) []dateRange {
	if maxDays <= 0 {
		maxDays = 7
	}
	var out []dateRange
	for cur := start; !cur.After(end); {
		chunkEnd := cur.AddDate(0, 0, maxDays-1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		out = append(out, dateRange{start: cur, end: chunkEnd})
		cur = chunkEnd.AddDate(0, 0, 1)
	}
	return out
}
