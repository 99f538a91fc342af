package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/princebhatt03/UrbanCart/internal/ws"
	"github.com/princebhatt03/UrbanCart/pkg/httputil"
	"github.com/princebhatt03/UrbanCart/pkg/middleware"
)

// WSHandler upgrades authenticated requests into hub-registered
// websocket clients for catalog change notifications.
type WSHandler struct {
	hub      *ws.Hub
	validate middleware.TokenValidator
	resolve  middleware.PrincipalResolver
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a websocket handler. Browsers cannot set an
// Authorization header on websocket dials, so the token travels as a
// query parameter instead of through the Auth middleware. Upgrades
// honor the same origin allow-list as the HTTP tree.
func NewWSHandler(hub *ws.Hub, validate middleware.TokenValidator, resolve middleware.PrincipalResolver, cors middleware.CORSConfig, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:      hub,
		validate: validate,
		resolve:  resolve,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cors.OriginAllowed(r.Header.Get("Origin"))
			},
		},
		logger: logger,
	}
}

// Serve handles GET /ws/catalog?token=<jwt>
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "token query parameter required"},
		})
		return
	}

	principal, err := h.validate(token)
	if err != nil {
		httputil.WriteJSON(w, http.StatusForbidden, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "FORBIDDEN", Message: "invalid or expired token"},
		})
		return
	}

	if h.resolve != nil {
		principal, err = h.resolve(r.Context(), principal)
		if err != nil {
			httputil.WriteJSON(w, http.StatusForbidden, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "FORBIDDEN", Message: "account no longer active"},
			})
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("user_id", principal.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	client := ws.NewClient(h.hub, conn, principal.ID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
