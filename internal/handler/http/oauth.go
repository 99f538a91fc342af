package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/princebhatt03/UrbanCart/internal/domain"
	"github.com/princebhatt03/UrbanCart/internal/oauth"
	"github.com/princebhatt03/UrbanCart/internal/service"
	apperrors "github.com/princebhatt03/UrbanCart/pkg/errors"
	"github.com/princebhatt03/UrbanCart/pkg/httputil"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

// OAuthHandler handles the Google OAuth login flow for one role.
type OAuthHandler struct {
	service  *service.UserService
	provider oauth.Provider
	role     domain.Role
	logger   *slog.Logger
}

// NewOAuthHandler creates an OAuth handler bound to one role.
func NewOAuthHandler(svc *service.UserService, provider oauth.Provider, role domain.Role, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{service: svc, provider: provider, role: role, logger: logger}
}

// Begin handles GET /api/auth/google[/admin] by redirecting to the
// provider's consent page with a fresh state nonce.
func (h *OAuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(stateCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.LoginURL(state), http.StatusTemporaryRedirect)
}

// Callback handles GET /api/auth/google[/admin]/callback. The state
// query parameter must match the cookie set by Begin.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("provider denied authorization: "+errParam), h.logger)
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != query.Get("state") {
		httputil.WriteError(w, r, apperrors.Unauthorized("oauth state mismatch"), h.logger)
		return
	}

	// The state nonce is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	identity, token, err := h.service.GoogleLogin(r.Context(), query.Get("code"), h.role)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AuthResponse{User: identity, Token: token},
	})
}
