package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/princebhatt03/UrbanCart/internal/auth"
	"github.com/princebhatt03/UrbanCart/internal/domain"
	"github.com/princebhatt03/UrbanCart/internal/event"
	"github.com/princebhatt03/UrbanCart/internal/oauth"
	"github.com/princebhatt03/UrbanCart/internal/service"
	storagelocal "github.com/princebhatt03/UrbanCart/internal/storage/local"
	"github.com/princebhatt03/UrbanCart/internal/ws"
	"github.com/princebhatt03/UrbanCart/pkg/health"
	"github.com/princebhatt03/UrbanCart/pkg/httputil"
	pkgkafka "github.com/princebhatt03/UrbanCart/pkg/kafka"
	"github.com/princebhatt03/UrbanCart/pkg/middleware"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockIdentityRepo struct {
	mock.Mock
}

func (m *mockIdentityRepo) Create(ctx context.Context, identity *domain.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *mockIdentityRepo) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *mockIdentityRepo) GetByHandle(ctx context.Context, role domain.Role, handle string) (*domain.Identity, error) {
	args := m.Called(ctx, role, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *mockIdentityRepo) GetByEmail(ctx context.Context, role domain.Role, email string) (*domain.Identity, error) {
	args := m.Called(ctx, role, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *mockIdentityRepo) Update(ctx context.Context, identity *domain.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *mockIdentityRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockCatalogRepo struct {
	mock.Mock
}

func (m *mockCatalogRepo) Create(ctx context.Context, item *domain.CatalogItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockCatalogRepo) GetByID(ctx context.Context, kind domain.CatalogKind, id string) (*domain.CatalogItem, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CatalogItem), args.Error(1)
}

func (m *mockCatalogRepo) List(ctx context.Context, kind domain.CatalogKind, limit, offset int) ([]domain.CatalogItem, int, error) {
	args := m.Called(ctx, kind, limit, offset)
	return args.Get(0).([]domain.CatalogItem), args.Int(1), args.Error(2)
}

func (m *mockCatalogRepo) Update(ctx context.Context, item *domain.CatalogItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockCatalogRepo) Delete(ctx context.Context, kind domain.CatalogKind, id string) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

type mockCartRepo struct {
	mock.Mock
}

func (m *mockCartRepo) IncrementLine(ctx context.Context, userID string, kind domain.CatalogKind, itemID string, delta int) (int, error) {
	args := m.Called(ctx, userID, kind, itemID, delta)
	return args.Int(0), args.Error(1)
}

func (m *mockCartRepo) SetLine(ctx context.Context, userID string, kind domain.CatalogKind, itemID string, quantity int) error {
	args := m.Called(ctx, userID, kind, itemID, quantity)
	return args.Error(0)
}

func (m *mockCartRepo) RemoveLine(ctx context.Context, userID string, kind domain.CatalogKind, itemID string) error {
	args := m.Called(ctx, userID, kind, itemID)
	return args.Error(0)
}

func (m *mockCartRepo) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.CartLine), args.Error(1)
}

func (m *mockCartRepo) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) LoginURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *mockProvider) Exchange(ctx context.Context, code string) (*oauth.UserInfo, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.UserInfo), args.Error(1)
}

// ============================================================================
// Test Fixture
// ============================================================================

const (
	testUserID  = "550e8400-e29b-41d4-a716-446655440001"
	testAdminID = "550e8400-e29b-41d4-a716-446655440002"
	testItemID  = "550e8400-e29b-41d4-a716-446655440003"
)

type routerFixture struct {
	identities *mockIdentityRepo
	catalog    *mockCatalogRepo
	carts      *mockCartRepo
	provider   *mockProvider
	jwtManager *auth.JWTManager
	router     http.Handler
}

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func handlerTestProducer() *event.Producer {
	logger := handlerTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

// newRouterFixture wires the full production router over mocked
// repositories, real JWT auth, and a throwaway upload directory.
func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	logger := handlerTestLogger()
	jwtManager := auth.NewJWTManager("test-secret-key-at-least-32-chars-long", 24*time.Hour, 168*time.Hour)
	producer := handlerTestProducer()

	identities := new(mockIdentityRepo)
	catalog := new(mockCatalogRepo)
	carts := new(mockCartRepo)
	provider := new(mockProvider)

	store, err := storagelocal.New(t.TempDir())
	require.NoError(t, err)

	hub := ws.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	userService := service.NewUserService(identities, hasher, jwtManager, provider, producer, logger)
	cartService := service.NewCartService(carts, catalog, logger)
	catalogService := service.NewCatalogService(catalog, store, producer, hub, logger)

	router := NewRouter(
		userService,
		cartService,
		catalogService,
		identities,
		jwtManager,
		provider,
		store,
		hub,
		health.NewHandler(),
		logger,
		RouterConfig{
			CORS:      middleware.DefaultCORSConfig(),
			UploadDir: store.Dir(),
		},
	)

	return &routerFixture{
		identities: identities,
		catalog:    catalog,
		carts:      carts,
		provider:   provider,
		jwtManager: jwtManager,
		router:     router,
	}
}

func sampleLocalIdentity() *domain.Identity {
	now := time.Now().UTC()
	return &domain.Identity{
		ID:           testUserID,
		FullName:     "Alice Smith",
		Handle:       "alice",
		Email:        "alice@example.com",
		Mobile:       "+15550100",
		PasswordHash: handlerHash("SecurePass123"),
		AvatarURL:    domain.DefaultAvatarURL,
		Role:         domain.RoleUser,
		AuthProvider: domain.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func sampleAdminIdentity() *domain.Identity {
	identity := sampleLocalIdentity()
	identity.ID = testAdminID
	identity.Handle = "root"
	identity.Email = "root@example.com"
	identity.Role = domain.RoleAdmin
	return identity
}

func sampleItem() *domain.CatalogItem {
	now := time.Now().UTC()
	return &domain.CatalogItem{
		ID:         testItemID,
		Kind:       domain.KindProduct,
		Name:       "Denim Jacket",
		Slug:       "denim-jacket",
		Category:   "apparel",
		PriceCents: 4999,
		ImageURL:   "/uploads/1700000000-jacket.jpg",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func handlerHash(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

// tokenFor issues a real JWT and stubs the resolver lookup so
// authenticated requests pass the middleware.
func (f *routerFixture) tokenFor(t *testing.T, identity *domain.Identity) string {
	t.Helper()
	token, err := f.jwtManager.Issue(identity)
	require.NoError(t, err)
	f.identities.On("GetByID", mock.Anything, identity.ID).Return(identity, nil)
	return token
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}
