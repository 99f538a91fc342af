package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/princebhatt03/UrbanCart/internal/domain"
	"github.com/princebhatt03/UrbanCart/internal/service"
	apperrors "github.com/princebhatt03/UrbanCart/pkg/errors"
	"github.com/princebhatt03/UrbanCart/pkg/httputil"
	"github.com/princebhatt03/UrbanCart/pkg/middleware"
	"github.com/princebhatt03/UrbanCart/pkg/validator"
)

// CartHandler handles HTTP requests for the authenticated user's cart.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a cart item.
type AddItemRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=product shop"`
	ItemID string `json:"item_id" validate:"required"`
}

// UpdateQuantityRequest is the JSON request body for setting a line's
// quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// --- Handlers ---

// Get handles GET /api/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// Add handles POST /api/cart/add
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req AddItemRequest
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

	kind, err := domain.ParseCatalogKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	quantity, err := h.service.AddItem(r.Context(), userID, kind, req.ItemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{
			"kind":     string(kind),
			"item_id":  req.ItemID,
			"quantity": quantity,
		},
	})
}

// Remove handles DELETE /api/cart/remove/{kind}/{itemId}
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r, h.logger)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemId")

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.service.RemoveItem(r.Context(), userID, kind, itemID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "item removed"},
	})
}

// UpdateQuantity handles PUT /api/cart/items/{kind}/{itemId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r, h.logger)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemId")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req UpdateQuantityRequest
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
	if err := h.service.UpdateQuantity(r.Context(), userID, kind, itemID, req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{
			"kind":     string(kind),
			"item_id":  itemID,
			"quantity": req.Quantity,
		},
	})
}

// Clear handles DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if err := h.service.Clear(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "cart cleared"},
	})
}

// kindFromPath parses the {kind} path parameter, writing a 400 on
// failure.
func kindFromPath(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (domain.CatalogKind, bool) {
	kind, err := domain.ParseCatalogKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), logger)
		return "", false
	}
	return kind, true
}
