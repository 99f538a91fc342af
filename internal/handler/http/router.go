package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/princebhatt03/UrbanCart/internal/auth"
	"github.com/princebhatt03/UrbanCart/internal/domain"
	"github.com/princebhatt03/UrbanCart/internal/oauth"
	"github.com/princebhatt03/UrbanCart/internal/repository"
	"github.com/princebhatt03/UrbanCart/internal/service"
	"github.com/princebhatt03/UrbanCart/internal/storage"
	"github.com/princebhatt03/UrbanCart/internal/ws"
	"github.com/princebhatt03/UrbanCart/pkg/health"
	"github.com/princebhatt03/UrbanCart/pkg/middleware"
)

// uploadsCacheMaxAge is the Cache-Control max-age for served uploads,
// in seconds. Upload names embed a timestamp, so long caching is safe.
const uploadsCacheMaxAge = 86400

// RouterConfig carries the router's environment-driven settings.
type RouterConfig struct {
	CORS              middleware.CORSConfig
	UploadDir         string
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(
	userService *service.UserService,
	cartService *service.CartService,
	catalogService *service.CatalogService,
	identities repository.IdentityRepository,
	jwtManager *auth.JWTManager,
	googleProvider oauth.Provider,
	store storage.Storage,
	hub *ws.Hub,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("urbancart"))
	r.Use(middleware.PrometheusMetrics("urbancart"))

	// Health and operational endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	// Token validator bridging to the JWT manager.
	tokenValidator := func(token string) (*middleware.Principal, error) {
		claims, err := jwtManager.Verify(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Principal{
			ID:     claims.UserID,
			Handle: claims.Handle,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}

	// The token is only capability proof. Every authenticated request
	// re-resolves the account so deleted accounts lose access at once.
	principalResolver := func(ctx context.Context, p *middleware.Principal) (*middleware.Principal, error) {
		identity, err := identities.GetByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return &middleware.Principal{
			ID:     identity.ID,
			Handle: identity.Handle,
			Email:  identity.Email,
			Role:   string(identity.Role),
		}, nil
	}

	authRequired := middleware.Auth(tokenValidator, principalResolver)

	// Account endpoints, one tree per role.
	accountTrees := []struct {
		prefix string
		role   domain.Role
	}{
		{"/api/user", domain.RoleUser},
		{"/api/admin", domain.RoleAdmin},
	}
	for _, tree := range accountTrees {
		handler := NewAccountHandler(userService, tree.role, logger)
		role := string(tree.role)

		r.Route(tree.prefix, func(r chi.Router) {
			r.Post("/register", handler.Register)
			r.Post("/login", handler.Login)

			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Use(middleware.RequireRole(role))

				r.Get("/me", handler.Me)
				r.Patch("/update", handler.Update)
				r.Post("/change-password", handler.ChangePassword)
				r.Delete("/delete", handler.Delete)
			})
		})
	}

	// Google OAuth, one flow per role.
	userOAuth := NewOAuthHandler(userService, googleProvider, domain.RoleUser, logger)
	adminOAuth := NewOAuthHandler(userService, googleProvider, domain.RoleAdmin, logger)
	r.Route("/api/auth/google", func(r chi.Router) {
		r.Get("/", userOAuth.Begin)
		r.Get("/callback", userOAuth.Callback)
		r.Get("/admin", adminOAuth.Begin)
		r.Get("/admin/callback", adminOAuth.Callback)
	})

	// Cart endpoints (users only).
	cartHandler := NewCartHandler(cartService, logger)
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authRequired)
		r.Use(middleware.RequireRole(string(domain.RoleUser)))

		r.Get("/", cartHandler.Get)
		r.Delete("/", cartHandler.Clear)
		r.Post("/add", cartHandler.Add)
		r.Delete("/remove/{kind}/{itemId}", cartHandler.Remove)
		r.Put("/items/{kind}/{itemId}", cartHandler.UpdateQuantity)
	})

	// Catalog endpoints: public reads, admin-only writes.
	catalogTrees := []struct {
		prefix string
		kind   domain.CatalogKind
	}{
		{"/api/products", domain.KindProduct},
		{"/api/shop", domain.KindShop},
	}
	for _, tree := range catalogTrees {
		handler := NewCatalogHandler(catalogService, store, tree.kind, logger)

		r.Route(tree.prefix, func(r chi.Router) {
			r.Get("/", handler.List)
			r.Get("/{id}", handler.Get)

			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Use(middleware.RequireRole(string(domain.RoleAdmin)))

				r.Post("/", handler.Create)
				r.Put("/{id}", handler.Update)
				r.Delete("/{id}", handler.Delete)
			})
		})
	}

	// Realtime catalog notifications.
	wsHandler := NewWSHandler(hub, tokenValidator, principalResolver, cfg.CORS, logger)
	r.Get("/ws/catalog", wsHandler.Serve)

	// Uploaded images.
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir)))
	r.With(middleware.CacheControl(uploadsCacheMaxAge)).
		Handle("/uploads/*", fileServer)

	return r
}
