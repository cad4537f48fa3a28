package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/credentials"
)

type AuthHandler struct {
	Creds  *credentials.Manager
	Logger *zap.Logger
}

func (h *AuthHandler) Register(r *gin.Engine) {
	group := r.Group("/api/auth/google")
	group.GET("/url", h.authURL)
	group.GET("/callback", h.callback)
}

// @Summary Get the Google OAuth consent URL
// @Tags auth
// @Param state query string false "opaque state echoed back on the callback"
// @Success 200 {object} apiResponse
// @Router /api/auth/google/url [get]
func (h *AuthHandler) authURL(c *gin.Context) {
	if h.Creds == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	state := strings.TrimSpace(c.Query("state"))
	if state == "" {
		state = "setup"
	}
	Ok(c, gin.H{"auth_url": h.Creds.AuthURL(state)}, nil)
}

// @Summary Complete the Google OAuth consent flow
// @Tags auth
// @Param code query string true "authorization code"
// @Success 200 {object} apiResponse
// @Router /api/auth/google/callback [get]
func (h *AuthHandler) callback(c *gin.Context) {
	if h.Creds == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		Error(c, http.StatusBadRequest, "missing code", nil)
		return
	}
	if err := h.Creds.ExchangeAuthorizationCode(c.Request.Context(), code); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("authorization code exchange failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"provider": credentials.ProviderGoogle, "connected": true}, nil)
}
