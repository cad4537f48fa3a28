package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/models"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/repository"
)

type GoogleSyncer interface {
	SyncMetrics(ctx context.Context, opts MetricsOptions) (MetricsResult, error)
	SyncReviews(ctx context.Context, opts ReviewsOptions) (ReviewsResult, error)
}

type MetaSyncer interface {
	Sync(ctx context.Context, opts MetaOptions) (MetaResult, error)
}

type CrmSyncer interface {
	Sync(ctx context.Context, opts CrmOptions) (CrmResult, error)
}

// Orchestrator runs every sync pipeline in sequence and records one summary
// row per run. A pipeline whose shared setup fails (credentials, config) is
// reported failed as a whole; the other pipelines still run.
type Orchestrator struct {
	Google GoogleSyncer
	Meta   MetaSyncer
	Crm    CrmSyncer
	Store  repository.Store
	Logger *zap.Logger

	now func() time.Time
}

type DomainOutcome struct {
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

type Summary struct {
	StartedAt      time.Time                `json:"started_at"`
	FinishedAt     time.Time                `json:"finished_at"`
	TotalProcessed int                      `json:"total_processed"`
	Succeeded      int                      `json:"succeeded"`
	Failed         int                      `json:"failed"`
	DurationMs     int64                    `json:"duration_ms"`
	Status         string                   `json:"status"`
	Domains        map[string]DomainOutcome `json:"domains"`
}

const (
	RunCompleted           = "completed"
	RunCompletedWithErrors = "completed_with_errors"
	RunFailed              = "failed"
)

// RunAll executes the Google, Meta and CRM pipelines back to back and
// persists the aggregate outcome. Partial failures inside a pipeline and
// whole-pipeline failures both land in the summary instead of aborting the
// run.
func (o *Orchestrator) RunAll(ctx context.Context) (Summary, error) {
	started := o.clock().UTC()
	summary := Summary{
		StartedAt: started,
		Domains:   make(map[string]DomainOutcome),
	}

	attempted := 0
	errored := 0

	if o.Google != nil {
		attempted++
		metrics, err := o.Google.SyncMetrics(ctx, MetricsOptions{})
		outcome := DomainOutcome{
			Processed: metrics.Succeeded + metrics.Failed,
			Succeeded: metrics.Succeeded,
			Failed:    metrics.Failed,
		}
		if err != nil {
			outcome.Error = err.Error()
			errored++
		}
		summary.Domains[ScopeGoogleMetrics] = outcome

		attempted++
		reviews, rerr := o.Google.SyncReviews(ctx, ReviewsOptions{})
		reviewOutcome := DomainOutcome{
			Processed: reviews.Succeeded + reviews.Failed,
			Succeeded: reviews.Succeeded,
			Failed:    reviews.Failed,
		}
		if rerr != nil {
			reviewOutcome.Error = rerr.Error()
			errored++
		}
		summary.Domains[ScopeGoogleReviews] = reviewOutcome
	}

	if o.Meta != nil {
		attempted++
		meta, err := o.Meta.Sync(ctx, MetaOptions{})
		outcome := DomainOutcome{
			Processed: meta.Succeeded + meta.Failed,
			Succeeded: meta.Succeeded,
			Failed:    meta.Failed,
		}
		if err != nil {
			outcome.Error = err.Error()
			errored++
		}
		summary.Domains[ScopeMetaAnalytics] = outcome
	}

	if o.Crm != nil {
		attempted++
		crm, err := o.Crm.Sync(ctx, CrmOptions{})
		outcome := DomainOutcome{
			Processed: crm.Processed,
			Succeeded: crm.Succeeded,
			Failed:    crm.Failed,
		}
		if err != nil {
			outcome.Error = err.Error()
			errored++
		}
		summary.Domains[ScopeCrmSubscribers] = outcome
	}

	for _, outcome := range summary.Domains {
		summary.TotalProcessed += outcome.Processed
		summary.Succeeded += outcome.Succeeded
		summary.Failed += outcome.Failed
	}

	finished := o.clock().UTC()
	summary.FinishedAt = finished
	summary.DurationMs = finished.Sub(started).Milliseconds()
	summary.Status = runStatus(attempted, errored, summary.Failed)

	if o.Logger != nil {
		o.Logger.Info("sync run finished",
			zap.String("status", summary.Status),
			zap.Int("total_processed", summary.TotalProcessed),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
			zap.Int64("duration_ms", summary.DurationMs))
	}

	run := &models.SyncRun{
		Scope:      "all",
		StartedAt:  started,
		FinishedAt: finished,
		Processed:  summary.TotalProcessed,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		DurationMs: summary.DurationMs,
		Status:     summary.Status,
		ErrorsJSON: domainErrorsJSON(summary.Domains),
	}
	if err := o.Store.InsertSyncRun(ctx, run); err != nil {
		return summary, err
	}
	return summary, nil
}

func runStatus(attempted, errored, failedEntities int) string {
	switch {
	case attempted > 0 && errored == attempted:
		return RunFailed
	case errored > 0 || failedEntities > 0:
		return RunCompletedWithErrors
	default:
		return RunCompleted
	}
}

func domainErrorsJSON(domains map[string]DomainOutcome) datatypes.JSON {
	errs := make(map[string]string)
	for scope, outcome := range domains {
		if outcome.Error != "" {
			errs[scope] = outcome.Error
		}
	}
	if len(errs) == 0 {
		return datatypes.JSON([]byte("null"))
	}
	payload, err := json.Marshal(errs)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(payload)
}

func (o *Orchestrator) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}
