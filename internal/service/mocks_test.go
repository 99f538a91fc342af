package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/princebhatt03/UrbanCart/internal/auth"
	"github.com/princebhatt03/UrbanCart/internal/domain"
	"github.com/princebhatt03/UrbanCart/internal/event"
	"github.com/princebhatt03/UrbanCart/internal/oauth"
	"github.com/princebhatt03/UrbanCart/internal/storage"
	pkgkafka "github.com/princebhatt03/UrbanCart/pkg/kafka"
)

// --- Mock Identity Repository ---

type mockIdentityRepository struct {
	mock.Mock
}

func (m *mockIdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *mockIdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *mockIdentityRepository) GetByHandle(ctx context.Context, role domain.Role, handle string) (*domain.Identity, error) {
	args := m.Called(ctx, role, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *mockIdentityRepository) GetByEmail(ctx context.Context, role domain.Role, email string) (*domain.Identity, error) {
	args := m.Called(ctx, role, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *mockIdentityRepository) Update(ctx context.Context, identity *domain.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *mockIdentityRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Catalog Repository ---

type mockCatalogRepository struct {
	mock.Mock
}

func (m *mockCatalogRepository) Create(ctx context.Context, item *domain.CatalogItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockCatalogRepository) GetByID(ctx context.Context, kind domain.CatalogKind, id string) (*domain.CatalogItem, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CatalogItem), args.Error(1)
}

func (m *mockCatalogRepository) List(ctx context.Context, kind domain.CatalogKind, limit, offset int) ([]domain.CatalogItem, int, error) {
	args := m.Called(ctx, kind, limit, offset)
	return args.Get(0).([]domain.CatalogItem), args.Int(1), args.Error(2)
}

func (m *mockCatalogRepository) Update(ctx context.Context, item *domain.CatalogItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockCatalogRepository) Delete(ctx context.Context, kind domain.CatalogKind, id string) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

// --- Mock Cart Repository ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) IncrementLine(ctx context.Context, userID string, kind domain.CatalogKind, itemID string, delta int) (int, error) {
	args := m.Called(ctx, userID, kind, itemID, delta)
	return args.Int(0), args.Error(1)
}

func (m *mockCartRepository) SetLine(ctx context.Context, userID string, kind domain.CatalogKind, itemID string, quantity int) error {
	args := m.Called(ctx, userID, kind, itemID, quantity)
	return args.Error(0)
}

func (m *mockCartRepository) RemoveLine(ctx context.Context, userID string, kind domain.CatalogKind, itemID string) error {
	args := m.Called(ctx, userID, kind, itemID)
	return args.Error(0)
}

func (m *mockCartRepository) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.CartLine), args.Error(1)
}

func (m *mockCartRepository) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Mock OAuth Provider ---

type mockOAuthProvider struct {
	mock.Mock
}

func (m *mockOAuthProvider) LoginURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *mockOAuthProvider) Exchange(ctx context.Context, code string) (*oauth.UserInfo, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.UserInfo), args.Error(1)
}

// --- Mock Storage ---

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Save(ctx context.Context, input *storage.SaveInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

// --- Broadcast Recorder ---

type broadcastRecorder struct {
	mu       sync.Mutex
	messages [][]byte
}

func (b *broadcastRecorder) Broadcast(message []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message)
}

func (b *broadcastRecorder) Messages() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.messages...)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-at-least-32-chars-long", 24*time.Hour, 168*time.Hour)
}

// newTestHasher uses the minimum bcrypt cost for fast tests.
func newTestHasher() auth.PasswordHasher {
	return auth.NewPasswordHasher(bcrypt.MinCost)
}

func newTestEventProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

func newTestUserService(identities *mockIdentityRepository, google *mockOAuthProvider) *UserService {
	return NewUserService(
		identities,
		newTestHasher(),
		newTestJWTManager(),
		google,
		newTestEventProducer(),
		newTestLogger(),
	)
}

func newTestCartService(carts *mockCartRepository, catalog *mockCatalogRepository) *CartService {
	return NewCartService(carts, catalog, newTestLogger())
}

func newTestCatalogService(repo *mockCatalogRepository, store *mockStorage, broadcaster *broadcastRecorder) *CatalogService {
	return NewCatalogService(repo, store, newTestEventProducer(), broadcaster, newTestLogger())
}

func strPtr(s string) *string {
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}

// hashForTest creates a bcrypt hash with the minimum cost.
func hashForTest(password string) string {
	h, err := newTestHasher().Hash(password)
	if err != nil {
		panic(err)
	}
	return h
}
