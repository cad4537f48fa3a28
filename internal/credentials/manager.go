package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/config"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/models"
	"github.com/lucaslopezpuerta/LavpopBusinessIntelligence-sub013/internal/repository"
)

const (
	ProviderGoogle = "google"

	// A token inside this buffer of its expiry is treated as already expired.
	expiryBuffer = 5 * time.Minute
)

var (
	ErrNotConfigured      = errors.New("credential not configured")
	ErrTokenRefreshFailed = errors.New("token refresh failed")
)

// Manager owns the stored OAuth grant for one provider. Every vendor call
// path obtains its bearer token through GetValidToken so a stale access token
// can never leak into an API call.
type Manager struct {
	Repo     repository.Store
	HTTP     *http.Client
	Provider string
	OAuth    config.GoogleConfig
	Logger   *zap.Logger

	// now is swapped out in tests.
	now func() time.Time
}

func NewManager(repo repository.Store, httpClient *http.Client, oauth config.GoogleConfig, logger *zap.Logger) *Manager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Manager{
		Repo:     repo,
		HTTP:     httpClient,
		Provider: ProviderGoogle,
		OAuth:    oauth,
		Logger:   logger,
		now:      time.Now,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// GetValidToken returns a bearer token guaranteed to outlive the expiry
// buffer, refreshing through the vendor token endpoint when needed.
func (m *Manager) GetValidToken(ctx context.Context) (string, error) {
	cred, err := m.Repo.GetCredential(ctx, m.Provider)
	if err != nil {
		return "", err
	}
	if cred == nil || strings.TrimSpace(cred.RefreshToken) == "" {
		return "", fmt.Errorf("%w: no %s grant stored, re-authorization required", ErrNotConfigured, m.Provider)
	}
	if m.now().Add(expiryBuffer).Before(cred.Expiry) && cred.AccessToken != "" {
		return cred.AccessToken, nil
	}

	if m.Logger != nil {
		m.Logger.Info("refreshing access token",
			zap.String("provider", m.Provider),
			zap.Time("expiry", cred.Expiry),
		)
	}
	refreshed, err := m.refresh(ctx, cred.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRefreshFailed, err)
	}

	cred.AccessToken = refreshed.AccessToken
	cred.Expiry = m.now().Add(time.Duration(refreshed.ExpiresIn) * time.Second)
	if refreshed.Scope != "" {
		cred.Scope = refreshed.Scope
	}
	cred.UpdatedAt = m.now().UTC()
	if err := m.Repo.SaveCredential(ctx, cred); err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// ExchangeAuthorizationCode trades a consent-redirect code for the initial
// access+refresh token pair and persists it as the provider's credential.
func (m *Manager) ExchangeAuthorizationCode(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("authorization code is empty")
	}
	data := url.Values{}
	data.Set("code", code)
	data.Set("client_id", m.OAuth.ClientID)
	data.Set("client_secret", m.OAuth.ClientSecret)
	data.Set("redirect_uri", m.OAuth.RedirectURL)
	data.Set("grant_type", "authorization_code")

	tok, err := m.tokenRequest(ctx, data)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}
	if tok.RefreshToken == "" {
		return fmt.Errorf("token endpoint returned no refresh token; consent must request offline access")
	}
	cred := &models.Credential{
		Provider:     m.Provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       m.now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		Scope:        tok.Scope,
		UpdatedAt:    m.now().UTC(),
	}
	return m.Repo.SaveCredential(ctx, cred)
}

// AuthURL builds the interactive consent URL. offline access and forced
// consent are required so the exchange yields a refresh token.
func (m *Manager) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", m.OAuth.ClientID)
	params.Add("redirect_uri", m.OAuth.RedirectURL)
	params.Add("response_type", "code")
	params.Add("scope", "https://www.googleapis.com/auth/business.manage")
	params.Add("state", state)
	params.Add("access_type", "offline")
	params.Add("prompt", "consent")
	return m.OAuth.AuthURL + "?" + params.Encode()
}

func (m *Manager) refresh(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	data := url.Values{}
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", m.OAuth.ClientID)
	data.Set("client_secret", m.OAuth.ClientSecret)
	data.Set("grant_type", "refresh_token")
	return m.tokenRequest(ctx, data)
}

func (m *Manager) tokenRequest(ctx context.Context, data url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.OAuth.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access token")
	}
	return &tok, nil
}
