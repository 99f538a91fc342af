package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	apperrors "github.com/princebhatt03/UrbanCart/pkg/errors"
	"github.com/princebhatt03/UrbanCart/pkg/httpclient"
)

// providerName labels Google in errors and logs.
const providerName = "google"

// UserInfo is the identity asserted by the provider after a successful
// code exchange.
type UserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Provider abstracts an OAuth identity provider so the user service can
// be tested against a fake.
type Provider interface {
	// LoginURL returns the authorization URL the browser is redirected to.
	LoginURL(state string) string

	// Exchange trades an authorization code for the provider's user info.
	Exchange(ctx context.Context, code string) (*UserInfo, error)
}

// GoogleConfig holds the OAuth client registration plus endpoint URLs.
// Endpoints are overridable so tests can point at an httptest server.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// WithDefaultEndpoints fills any unset endpoint with Google's published
// URL.
func (c GoogleConfig) WithDefaultEndpoints() GoogleConfig {
	if c.AuthURL == "" {
		c.AuthURL = "https://accounts.google.com/o/oauth2/v2/auth"
	}
	if c.TokenURL == "" {
		c.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if c.UserInfoURL == "" {
		c.UserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	}
	return c
}

// GoogleProvider implements Provider against Google's OAuth 2.0
// endpoints. Outbound calls go through the circuit-breaker client so a
// provider outage degrades to fast FEDERATION_ERROR responses instead
// of piling up timeouts.
type GoogleProvider struct {
	cfg    GoogleConfig
	client *httpclient.BreakerClient
	logger *slog.Logger
}

// NewGoogleProvider creates a Google OAuth provider.
func NewGoogleProvider(cfg GoogleConfig, client *httpclient.BreakerClient, logger *slog.Logger) *GoogleProvider {
	return &GoogleProvider{
		cfg:    cfg.WithDefaultEndpoints(),
		client: client,
		logger: logger,
	}
}

// LoginURL builds the authorization redirect URL.
func (p *GoogleProvider) LoginURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return p.cfg.AuthURL + "?" + q.Encode()
}

// tokenResponse is the relevant slice of Google's token endpoint reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Exchange trades the authorization code for an access token and
// fetches the user's profile with it.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*UserInfo, error) {
	if code == "" {
		return nil, apperrors.InvalidInput("authorization code is required")
	}

	token, err := p.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	info, err := p.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	p.logger.DebugContext(ctx, "google code exchange completed",
		slog.String("subject", info.Subject),
	)

	return info, nil
}

func (p *GoogleProvider) exchangeCode(ctx context.Context, code string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("redirect_uri", p.cfg.RedirectURL)

	resp, err := p.client.PostForm(ctx, p.cfg.TokenURL, form)
	if err != nil {
		return nil, apperrors.Federation(providerName, fmt.Errorf("token exchange: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseProviderError(resp, providerName)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, apperrors.Federation(providerName, fmt.Errorf("decode token response: %w", err))
	}
	if token.AccessToken == "" {
		return nil, apperrors.Federation(providerName, fmt.Errorf("token response missing access_token"))
	}

	return &token, nil
}

func (p *GoogleProvider) fetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, apperrors.Federation(providerName, fmt.Errorf("build userinfo request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Federation(providerName, fmt.Errorf("fetch userinfo: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseProviderError(resp, providerName)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, apperrors.Federation(providerName, fmt.Errorf("decode userinfo: %w", err))
	}
	if info.Email == "" {
		return nil, apperrors.Federation(providerName, fmt.Errorf("userinfo missing email"))
	}

	return &info, nil
}
