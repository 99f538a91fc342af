package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/princebhatt03/UrbanCart/internal/domain"
	apperrors "github.com/princebhatt03/UrbanCart/pkg/errors"
)

// IdentityRepository implements repository.IdentityRepository using
// PostgreSQL.
type IdentityRepository struct {
	db DBTX
}

// NewIdentityRepository creates a PostgreSQL-backed identity repository.
func NewIdentityRepository(db DBTX) *IdentityRepository {
	return &IdentityRepository{db: db}
}

const identityColumns = "id, full_name, handle, email, mobile, password_hash, avatar_url, role, auth_provider, created_at, updated_at"

// uniqueViolationError maps a 23505 to the field whose unique index was
// violated, so the conflict message names the right one. The constraint
// names match the migrations.
func uniqueViolationError(err error, identity *domain.Identity) error {
	if strings.Contains(err.Error(), "identities_role_email_key") {
		return apperrors.AlreadyExists("identity", "email", identity.Email)
	}
	return apperrors.AlreadyExists("identity", "handle", identity.Handle)
}

// Create inserts a new identity. Handles are unique per role; the
// partial unique index surfaces duplicates as 23505.
func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	query := `
		INSERT INTO identities (id, full_name, handle, email, mobile, password_hash, avatar_url, role, auth_provider, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		identity.ID,
		identity.FullName,
		identity.Handle,
		identity.Email,
		identity.Mobile,
		identity.PasswordHash,
		identity.AvatarURL,
		identity.Role,
		identity.AuthProvider,
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uniqueViolationError(err, identity)
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	return nil
}

// GetByID retrieves an identity by its ID.
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE id = $1`, identityColumns)
	return r.scanIdentity(ctx, query, id)
}

// GetByHandle retrieves an identity by role and handle.
func (r *IdentityRepository) GetByHandle(ctx context.Context, role domain.Role, handle string) (*domain.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE role = $1 AND handle = $2`, identityColumns)
	return r.scanIdentity(ctx, query, role, handle)
}

// GetByEmail retrieves an identity by role and email.
func (r *IdentityRepository) GetByEmail(ctx context.Context, role domain.Role, email string) (*domain.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE role = $1 AND email = $2`, identityColumns)
	return r.scanIdentity(ctx, query, role, email)
}

// Update modifies an existing identity.
func (r *IdentityRepository) Update(ctx context.Context, identity *domain.Identity) error {
	identity.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE identities
		SET full_name = $1, handle = $2, email = $3, mobile = $4, password_hash = $5,
		    avatar_url = $6, auth_provider = $7, updated_at = $8
		WHERE id = $9`

	ct, err := r.db.Exec(ctx, query,
		identity.FullName,
		identity.Handle,
		identity.Email,
		identity.Mobile,
		identity.PasswordHash,
		identity.AvatarURL,
		identity.AuthProvider,
		identity.UpdatedAt,
		identity.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uniqueViolationError(err, identity)
		}
		return fmt.Errorf("update identity: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("identity", identity.ID)
	}

	return nil
}

// Delete removes an identity by its ID.
func (r *IdentityRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("identity", id)
	}

	return nil
}

func (r *IdentityRepository) scanIdentity(ctx context.Context, query string, args ...any) (*domain.Identity, error) {
	var i domain.Identity

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&i.ID,
		&i.FullName,
		&i.Handle,
		&i.Email,
		&i.Mobile,
		&i.PasswordHash,
		&i.AvatarURL,
		&i.Role,
		&i.AuthProvider,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}

	return &i, nil
}
