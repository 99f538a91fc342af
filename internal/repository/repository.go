package repository

import (
	"context"

	"github.com/princebhatt03/UrbanCart/internal/domain"
)

// IdentityRepository defines persistence for user and admin accounts.
type IdentityRepository interface {
	// Create inserts a new identity. A duplicate (role, handle) pair
	// returns an AlreadyExists error and leaves the store untouched.
	Create(ctx context.Context, identity *domain.Identity) error

	// GetByID retrieves an identity by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Identity, error)

	// GetByHandle retrieves an identity by role and handle.
	GetByHandle(ctx context.Context, role domain.Role, handle string) (*domain.Identity, error)

	// GetByEmail retrieves an identity by role and email address.
	GetByEmail(ctx context.Context, role domain.Role, email string) (*domain.Identity, error)

	// Update modifies an existing identity.
	Update(ctx context.Context, identity *domain.Identity) error

	// Delete removes an identity by its identifier.
	Delete(ctx context.Context, id string) error
}

// CatalogRepository defines persistence for catalog items of both kinds.
type CatalogRepository interface {
	// Create inserts a new catalog item.
	Create(ctx context.Context, item *domain.CatalogItem) error

	// GetByID retrieves an item by kind and identifier.
	GetByID(ctx context.Context, kind domain.CatalogKind, id string) (*domain.CatalogItem, error)

	// List returns a page of items of the given kind plus the total count.
	List(ctx context.Context, kind domain.CatalogKind, limit, offset int) ([]domain.CatalogItem, int, error)

	// Update modifies an existing item.
	Update(ctx context.Context, item *domain.CatalogItem) error

	// Delete removes an item by kind and identifier.
	Delete(ctx context.Context, kind domain.CatalogKind, id string) error
}

// CartRepository defines persistence for per-user carts. Lines are
// keyed by (kind, itemID).
type CartRepository interface {
	// IncrementLine atomically adds delta to a line's quantity, creating
	// the line when absent, and returns the new quantity. A result of
	// zero or below removes the line and returns 0.
	IncrementLine(ctx context.Context, userID string, kind domain.CatalogKind, itemID string, delta int) (int, error)

	// SetLine sets a line's quantity outright. Zero removes the line.
	SetLine(ctx context.Context, userID string, kind domain.CatalogKind, itemID string, quantity int) error

	// RemoveLine deletes a line. Removing an absent line is not an error.
	RemoveLine(ctx context.Context, userID string, kind domain.CatalogKind, itemID string) error

	// Lines returns all lines of the user's cart. A missing cart yields
	// an empty slice.
	Lines(ctx context.Context, userID string) ([]domain.CartLine, error)

	// Clear deletes the user's entire cart.
	Clear(ctx context.Context, userID string) error
}
