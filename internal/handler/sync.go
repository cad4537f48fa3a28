package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/credentials"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/repository"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/service"
)

type SyncHandler struct {
	Google       *service.GoogleSyncService
	Meta         *service.MetaSyncService
	Crm          *service.CrmSyncService
	Orchestrator *service.Orchestrator
	Store        repository.Store
	Auth         *credentials.Manager
	Logger       *zap.Logger
}

func (h *SyncHandler) Register(r *gin.Engine) {
	group := r.Group("/api/sync")
	group.POST("/google", h.syncGoogle)
	group.POST("/meta", h.syncMeta)
	group.POST("/crm", h.syncCrm)
	group.POST("/all", h.syncAll)
	group.GET("/state", h.listSyncState)
	group.GET("/runs", h.listSyncRuns)
}

// @Summary Run the Google Business Profile sync
// @Tags sync
// @Param start query string false "window start (YYYY-MM-DD)"
// @Param end query string false "window end (YYYY-MM-DD)"
// @Param locations query string false "comma-separated location ids"
// @Param skip_reviews query bool false "sync metrics only"
// @Success 200 {object} apiResponse
// @Router /api/sync/google [post]
func (h *SyncHandler) syncGoogle(c *gin.Context) {
	if h.Google == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	start := dateQuery(c, "start")
	end := dateQuery(c, "end")
	locations := csvQuery(c, "locations")

	metrics, err := h.Google.SyncMetrics(c.Request.Context(), service.MetricsOptions{
		Start:       start,
		End:         end,
		LocationIDs: locations,
	})
	if err != nil {
		h.syncError(c, "google metrics sync failed", err)
		return
	}
	payload := gin.H{"metrics": metrics}
	if !boolQueryDefault(c, "skip_reviews", false) {
		reviews, err := h.Google.SyncReviews(c.Request.Context(), service.ReviewsOptions{
			LocationIDs: locations,
		})
		if err != nil {
			h.syncError(c, "google reviews sync failed", err)
			return
		}
		payload["reviews"] = reviews
	}
	Ok(c, payload, nil)
}

// @Summary Run the WhatsApp analytics sync
// @Tags sync
// @Param start query string false "window start (YYYY-MM-DD)"
// @Param end query string false "window end (YYYY-MM-DD)"
// @Success 200 {object} apiResponse
// @Router /api/sync/meta [post]
func (h *SyncHandler) syncMeta(c *gin.Context) {
	if h.Meta == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	result, err := h.Meta.Sync(c.Request.Context(), service.MetaOptions{
		Start: dateQuery(c, "start"),
		End:   dateQuery(c, "end"),
	})
	if err != nil {
		h.syncError(c, "meta sync failed", err)
		return
	}
	Ok(c, result, nil)
}

// @Summary Run the CRM subscriber sync
// @Tags sync
// @Param page_limit query int false "page size"
// @Param max_items query int false "max subscribers per run"
// @Success 200 {object} apiResponse
// @Router /api/sync/crm [post]
func (h *SyncHandler) syncCrm(c *gin.Context) {
	if h.Crm == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	result, err := h.Crm.Sync(c.Request.Context(), service.CrmOptions{
		PageLimit: intQuery(c, "page_limit", 0),
		MaxItems:  intQuery(c, "max_items", 0),
	})
	if err != nil {
		h.syncError(c, "crm sync failed", err)
		return
	}
	Ok(c, result, nil)
}

// @Summary Run every sync pipeline
// @Tags sync
// @Success 200 {object} apiResponse
// @Router /api/sync/all [post]
func (h *SyncHandler) syncAll(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	summary, err := h.Orchestrator.RunAll(c.Request.Context())
	if err != nil {
		h.syncError(c, "sync run failed", err)
		return
	}
	Ok(c, summary, nil)
}

// @Summary List per-scope sync state
// @Tags sync
// @Success 200 {object} apiResponse
// @Router /api/sync/state [get]
func (h *SyncHandler) listSyncState(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	states, err := h.Store.ListSyncStates(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list sync state failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, states, nil)
}

// @Summary List recent sync runs
// @Tags sync
// @Param limit query int false "limit"
// @Success 200 {object} apiResponse
// @Router /api/sync/runs [get]
func (h *SyncHandler) listSyncRuns(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	runs, err := h.Store.ListSyncRuns(c.Request.Context(), intQuery(c, "limit", 20))
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list sync runs failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, runs, nil)
}

// syncError maps credential problems onto 401 with a reauthorization hint so
// the frontend can send the operator back through the consent flow.
func (h *SyncHandler) syncError(c *gin.Context, msg string, err error) {
	if h.Logger != nil {
		h.Logger.Warn(msg, zap.Error(err))
	}
	if errors.Is(err, credentials.ErrNotConfigured) || errors.Is(err, credentials.ErrTokenRefreshFailed) {
		meta := map[string]any{"reauthorize": true}
		if h.Auth != nil {
			meta["auth_url"] = h.Auth.AuthURL("resync")
		}
		Error(c, http.StatusUnauthorized, err.Error(), meta)
		return
	}
	Error(c, http.StatusInternalServerError, err.Error(), nil)
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryDefault(c *gin.Context, key string, def bool) bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

func dateQuery(c *gin.Context, key string) time.Time {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if t, err := time.Parse("2006-01-02", val); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func csvQuery(c *gin.Context, key string) []string {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
