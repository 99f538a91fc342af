package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/princebhatt03/UrbanCart/internal/auth"
	"github.com/princebhatt03/UrbanCart/internal/domain"
	"github.com/princebhatt03/UrbanCart/internal/event"
	"github.com/princebhatt03/UrbanCart/internal/oauth"
	"github.com/princebhatt03/UrbanCart/internal/repository"
	apperrors "github.com/princebhatt03/UrbanCart/pkg/errors"
)

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// federatedHandleAttempts bounds retries when a synthesized handle for a
// federated account collides with an existing one.
const federatedHandleAttempts = 3

// UserService implements account and authentication business logic for
// both user and admin roles.
type UserService struct {
	identities repository.IdentityRepository
	hasher     auth.PasswordHasher
	jwtManager *auth.JWTManager
	google     oauth.Provider
	producer   *event.Producer
	logger     *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	identities repository.IdentityRepository,
	hasher auth.PasswordHasher,
	jwtManager *auth.JWTManager,
	google oauth.Provider,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		identities: identities,
		hasher:     hasher,
		jwtManager: jwtManager,
		google:     google,
		producer:   producer,
		logger:     logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new account.
type RegisterInput struct {
	FullName  string
	Handle    string
	Email     string
	Mobile    string
	Password  string
	AvatarURL string
}

// UpdateProfileInput holds the parameters for updating an account
// profile. Nil fields are left unchanged. CurrentPassword must match
// for local accounts; federated accounts skip the check.
type UpdateProfileInput struct {
	FullName        *string
	Handle          *string
	Email           *string
	Mobile          *string
	AvatarURL       *string
	CurrentPassword string
}

// --- Auth operations ---

// Register creates a new account with the given role, hashes the
// password, and returns the identity plus a signed session token.
func (s *UserService) Register(ctx context.Context, input RegisterInput, role domain.Role) (*domain.Identity, string, error) {
	if input.FullName == "" {
		return nil, "", apperrors.InvalidInput("full name is required")
	}
	if input.Handle == "" {
		return nil, "", apperrors.InvalidInput("username is required")
	}
	if input.Email == "" {
		return nil, "", apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	avatar := input.AvatarURL
	if avatar == "" {
		avatar = domain.DefaultAvatarURL
	}

	now := time.Now().UTC()
	identity := &domain.Identity{
		ID:           uuid.New().String(),
		FullName:     input.FullName,
		Handle:       input.Handle,
		Email:        input.Email,
		Mobile:       input.Mobile,
		PasswordHash: hash,
		AvatarURL:    avatar,
		Role:         role,
		AuthProvider: domain.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, "", fmt.Errorf("create identity: %w", err)
	}

	token, err := s.jwtManager.Issue(identity)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, identity); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "identity registered",
		slog.String("identity_id", identity.ID),
		slog.String("handle", identity.Handle),
		slog.String("role", string(role)),
	)

	return identity, token, nil
}

// Login authenticates an account by role, handle, and password. Unknown
// handles and wrong passwords produce the same error so the response
// does not reveal which handles exist.
func (s *UserService) Login(ctx context.Context, handle, password string, role domain.Role) (*domain.Identity, string, error) {
	if handle == "" {
		return nil, "", apperrors.InvalidInput("username is required")
	}
	if password == "" {
		return nil, "", apperrors.InvalidInput("password is required")
	}

	identity, err := s.identities.GetByHandle(ctx, role, handle)
	if err != nil {
		return nil, "", apperrors.Unauthorized("invalid handle or password")
	}

	if !s.hasher.Verify(password, identity.PasswordHash) {
		return nil, "", apperrors.Unauthorized("invalid handle or password")
	}

	token, err := s.jwtManager.Issue(identity)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "identity logged in",
		slog.String("identity_id", identity.ID),
		slog.String("role", string(role)),
	)

	return identity, token, nil
}

// GoogleLogin completes the OAuth code flow for the given role. The
// account is looked up by email; a missing account is created with a
// synthesized handle and an unusable password. Repeating the flow for
// the same email reuses the account and never overwrites it.
func (s *UserService) GoogleLogin(ctx context.Context, code string, role domain.Role) (*domain.Identity, string, error) {
	info, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("exchange google code: %w", err)
	}

	identity, err := s.identities.GetByEmail(ctx, role, info.Email)
	switch {
	case err == nil:
		// Existing account, local or federated, wins as-is.
	case errors.Is(err, apperrors.ErrNotFound):
		identity, err = s.createFederatedIdentity(ctx, info, role)
		if err != nil {
			return nil, "", err
		}
	default:
		return nil, "", fmt.Errorf("look up identity by email: %w", err)
	}

	token, err := s.jwtManager.Issue(identity)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "google login completed",
		slog.String("identity_id", identity.ID),
		slog.String("role", string(role)),
	)

	return identity, token, nil
}

// createFederatedIdentity provisions an account for a Google user seen
// for the first time. The synthesized handle is retried on collision.
func (s *UserService) createFederatedIdentity(ctx context.Context, info *oauth.UserInfo, role domain.Role) (*domain.Identity, error) {
	hash, err := s.hasher.UnusablePassword()
	if err != nil {
		return nil, fmt.Errorf("generate placeholder password: %w", err)
	}

	fullName := info.Name
	if fullName == "" {
		fullName = info.Email
	}
	avatar := info.Picture
	if avatar == "" {
		avatar = domain.DefaultAvatarURL
	}

	for attempt := 0; attempt < federatedHandleAttempts; attempt++ {
		now := time.Now().UTC()
		identity := &domain.Identity{
			ID:           uuid.New().String(),
			FullName:     fullName,
			Handle:       synthesizeHandle(),
			Email:        info.Email,
			PasswordHash: hash,
			AvatarURL:    avatar,
			Role:         role,
			AuthProvider: domain.ProviderGoogle,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err := s.identities.Create(ctx, identity)
		if err == nil {
			if pubErr := s.producer.PublishUserRegistered(ctx, identity); pubErr != nil {
				s.logger.ErrorContext(ctx, "failed to publish user.registered event",
					slog.String("identity_id", identity.ID),
					slog.String("error", pubErr.Error()),
				)
			}
			s.logger.InfoContext(ctx, "federated identity created",
				slog.String("identity_id", identity.ID),
				slog.String("handle", identity.Handle),
			)
			return identity, nil
		}
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("create federated identity: %w", err)
		}
	}

	return nil, apperrors.Internal(fmt.Errorf("could not allocate a unique handle after %d attempts", federatedHandleAttempts))
}

// synthesizeHandle builds a handle for a federated account.
func synthesizeHandle() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return "google_user_" + suffix
}

// --- Profile operations ---

// GetProfile retrieves an identity by its ID.
func (s *UserService) GetProfile(ctx context.Context, identityID string) (*domain.Identity, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return identity, nil
}

// UpdateProfile updates an account's profile fields and re-issues the
// session token, since handle and email are embedded in its claims.
// Local accounts must prove the current password; federated accounts
// have none to prove.
func (s *UserService) UpdateProfile(ctx context.Context, identityID string, input UpdateProfileInput) (*domain.Identity, string, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return nil, "", fmt.Errorf("get identity for update: %w", err)
	}

	if !identity.IsFederated() {
		if input.CurrentPassword == "" {
			return nil, "", apperrors.InvalidInput("current password is required")
		}
		if !s.hasher.Verify(input.CurrentPassword, identity.PasswordHash) {
			return nil, "", apperrors.Unauthorized("current password is incorrect")
		}
	}

	if input.FullName != nil {
		if *input.FullName == "" {
			return nil, "", apperrors.InvalidInput("full name must not be empty")
		}
		identity.FullName = *input.FullName
	}
	if input.Handle != nil {
		if *input.Handle == "" {
			return nil, "", apperrors.InvalidInput("username must not be empty")
		}
		identity.Handle = *input.Handle
	}
	if input.Email != nil {
		if *input.Email == "" {
			return nil, "", apperrors.InvalidInput("email must not be empty")
		}
		identity.Email = *input.Email
	}
	if input.Mobile != nil {
		identity.Mobile = *input.Mobile
	}
	if input.AvatarURL != nil {
		identity.AvatarURL = *input.AvatarURL
	}

	if err := s.identities.Update(ctx, identity); err != nil {
		return nil, "", fmt.Errorf("update identity: %w", err)
	}

	token, err := s.jwtManager.Issue(identity)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "profile updated",
		slog.String("identity_id", identity.ID),
	)

	return identity, token, nil
}

// ChangePassword changes a local account's password after verifying the
// current one. Federated accounts have no password to change.
func (s *UserService) ChangePassword(ctx context.Context, identityID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return fmt.Errorf("get identity for password change: %w", err)
	}

	if identity.IsFederated() {
		return apperrors.Conflict("federated accounts have no password")
	}

	if !s.hasher.Verify(currentPassword, identity.PasswordHash) {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	identity.PasswordHash = hash
	if err := s.identities.Update(ctx, identity); err != nil {
		return fmt.Errorf("update identity password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("identity_id", identity.ID),
	)

	return nil
}

// Delete removes an account. Local accounts must prove the current
// password; federated accounts are deleted on token alone.
func (s *UserService) Delete(ctx context.Context, identityID, password string) error {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return fmt.Errorf("get identity for delete: %w", err)
	}

	if !identity.IsFederated() {
		if password == "" {
			return apperrors.InvalidInput("password is required")
		}
		if !s.hasher.Verify(password, identity.PasswordHash) {
			return apperrors.Unauthorized("password is incorrect")
		}
	}

	if err := s.identities.Delete(ctx, identity.ID); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}

	if err := s.producer.PublishUserDeleted(ctx, identity); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "identity deleted",
		slog.String("identity_id", identity.ID),
		slog.String("role", string(identity.Role)),
	)

	return nil
}

// validatePassword checks that the password meets minimum complexity
// requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
