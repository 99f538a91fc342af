package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/princebhatt03/UrbanCart/internal/domain"
	apperrors "github.com/princebhatt03/UrbanCart/pkg/errors"
)

// CatalogRepository implements repository.CatalogRepository using
// PostgreSQL. Both kinds share one table, discriminated by the kind
// column.
type CatalogRepository struct {
	db DBTX
}

// NewCatalogRepository creates a PostgreSQL-backed catalog repository.
func NewCatalogRepository(db DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const catalogColumns = "id, kind, name, slug, description, category, tag, price_cents, image_url, created_at, updated_at"

// Create inserts a new catalog item.
func (r *CatalogRepository) Create(ctx context.Context, item *domain.CatalogItem) error {
	query := `
		INSERT INTO catalog_items (id, kind, name, slug, description, category, tag, price_cents, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		item.ID,
		item.Kind,
		item.Name,
		item.Slug,
		item.Description,
		item.Category,
		item.Tag,
		item.PriceCents,
		item.ImageURL,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("catalog item", "slug", item.Slug)
		}
		return fmt.Errorf("insert catalog item: %w", err)
	}

	return nil
}

// GetByID retrieves an item by kind and ID. The kind filter keeps a
// product ID from resolving a shop and vice versa.
func (r *CatalogRepository) GetByID(ctx context.Context, kind domain.CatalogKind, id string) (*domain.CatalogItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM catalog_items WHERE kind = $1 AND id = $2`, catalogColumns)

	var item domain.CatalogItem
	err := r.db.QueryRow(ctx, query, kind, id).Scan(
		&item.ID,
		&item.Kind,
		&item.Name,
		&item.Slug,
		&item.Description,
		&item.Category,
		&item.Tag,
		&item.PriceCents,
		&item.ImageURL,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan catalog item: %w", err)
	}

	return &item, nil
}

// List returns one page of items of the given kind, newest first, plus
// the total count for pagination.
func (r *CatalogRepository) List(ctx context.Context, kind domain.CatalogKind, limit, offset int) ([]domain.CatalogItem, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM catalog_items WHERE kind = $1`, kind).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count catalog items: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM catalog_items
		WHERE kind = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, catalogColumns)

	rows, err := r.db.Query(ctx, query, kind, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list catalog items: %w", err)
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		var item domain.CatalogItem
		if err := rows.Scan(
			&item.ID,
			&item.Kind,
			&item.Name,
			&item.Slug,
			&item.Description,
			&item.Category,
			&item.Tag,
			&item.PriceCents,
			&item.ImageURL,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan catalog item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate catalog item rows: %w", err)
	}

	if items == nil {
		items = []domain.CatalogItem{}
	}

	return items, total, nil
}

// Update modifies an existing item.
func (r *CatalogRepository) Update(ctx context.Context, item *domain.CatalogItem) error {
	item.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE catalog_items
		SET name = $1, slug = $2, description = $3, category = $4, tag = $5,
		    price_cents = $6, image_url = $7, updated_at = $8
		WHERE kind = $9 AND id = $10`

	ct, err := r.db.Exec(ctx, query,
		item.Name,
		item.Slug,
		item.Description,
		item.Category,
		item.Tag,
		item.PriceCents,
		item.ImageURL,
		item.UpdatedAt,
		item.Kind,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update catalog item: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("catalog item", item.ID)
	}

	return nil
}

// Delete removes an item by kind and ID.
func (r *CatalogRepository) Delete(ctx context.Context, kind domain.CatalogKind, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM catalog_items WHERE kind = $1 AND id = $2`, kind, id)
	if err != nil {
		return fmt.Errorf("delete catalog item: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("catalog item", id)
	}

	return nil
}
