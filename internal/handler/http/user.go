package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/princebhatt03/UrbanCart/internal/domain"
	"github.com/princebhatt03/UrbanCart/internal/service"
	"github.com/princebhatt03/UrbanCart/pkg/httputil"
	"github.com/princebhatt03/UrbanCart/pkg/middleware"
	"github.com/princebhatt03/UrbanCart/pkg/validator"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

// AccountHandler handles HTTP requests for account endpoints. The same
// handler serves the user and admin route trees; the role is fixed at
// construction.
type AccountHandler struct {
	service *service.UserService
	role    domain.Role
	logger  *slog.Logger
}

// NewAccountHandler creates an account handler bound to one role.
func NewAccountHandler(svc *service.UserService, role domain.Role, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: svc, role: role, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for registration.
type RegisterRequest struct {
	FullName string `json:"fullname" validate:"required,min=1,max=100"`
	Handle   string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Mobile   string `json:"mobile" validate:"omitempty,min=7,max=20"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Handle   string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest is the JSON request body for a profile update.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	FullName        *string `json:"fullname" validate:"omitempty,min=1,max=100"`
	Handle          *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Mobile          *string `json:"mobile" validate:"omitempty,min=7,max=20"`
	CurrentPassword string  `json:"current_password"`
}

// ChangePasswordRequest is the JSON request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// DeleteAccountRequest is the JSON request body for account deletion.
// The password is not required for federated accounts.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// --- Response types ---

// AuthResponse wraps identity data with the session token.
type AuthResponse struct {
	User  *domain.Identity `json:"user"`
	Token string           `json:"token"`
}

// --- Handlers ---

// Register handles POST /api/{user,admin}/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.RegisterInput{
		FullName: req.FullName,
		Handle:   req.Handle,
		Email:    req.Email,
		Mobile:   req.Mobile,
		Password: req.Password,
	}

	identity, token, err := h.service.Register(r.Context(), input, h.role)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: AuthResponse{User: identity, Token: token},
	})
}

// Login handles POST /api/{user,admin}/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	identity, token, err := h.service.Login(r.Context(), req.Handle, req.Password, h.role)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AuthResponse{User: identity, Token: token},
	})
}

// Me handles GET /api/{user,admin}/me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.GetProfile(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: identity})
}

// Update handles PATCH /api/{user,admin}/update
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.UpdateProfileInput{
		FullName:        req.FullName,
		Handle:          req.Handle,
		Email:           req.Email,
		Mobile:          req.Mobile,
		CurrentPassword: req.CurrentPassword,
	}

	identity, token, err := h.service.UpdateProfile(r.Context(), middleware.UserIDFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// Handle and email live in the token claims, so a fresh token ships
	// with every successful update.
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AuthResponse{User: identity, Token: token},
	})
}

// ChangePassword handles POST /api/{user,admin}/change-password
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "password changed successfully"},
	})
}

// Delete handles DELETE /api/{user,admin}/delete
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	// The body is optional: federated accounts delete on token alone.
	var req DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.service.Delete(r.Context(), userID, req.Password); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "account deleted"},
	})
}
