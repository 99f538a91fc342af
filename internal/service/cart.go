package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/princebhatt03/UrbanCart/internal/domain"
	"github.com/princebhatt03/UrbanCart/internal/repository"
	apperrors "github.com/princebhatt03/UrbanCart/pkg/errors"
)

// CartService implements the business logic for per-user carts. Carts
// store references only; prices come from the catalog at read time.
type CartService struct {
	carts   repository.CartRepository
	catalog repository.CatalogRepository
	logger  *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	carts repository.CartRepository,
	catalog repository.CatalogRepository,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		carts:   carts,
		catalog: catalog,
		logger:  logger,
	}
}

// AddItem adds one unit of a catalog item to the user's cart. Adding an
// item already in the cart increments its quantity.
func (s *CartService) AddItem(ctx context.Context, userID string, kind domain.CatalogKind, itemID string) (int, error) {
	if itemID == "" {
		return 0, apperrors.InvalidInput("item id is required")
	}

	if _, err := s.catalog.GetByID(ctx, kind, itemID); err != nil {
		return 0, fmt.Errorf("resolve catalog item: %w", err)
	}

	quantity, err := s.carts.IncrementLine(ctx, userID, kind, itemID, 1)
	if err != nil {
		return 0, fmt.Errorf("increment cart line: %w", err)
	}

	s.logger.InfoContext(ctx, "cart item added",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)

	return quantity, nil
}

// GetCart resolves the user's cart against the catalog. Lines whose
// item has been deleted from the catalog are dropped from the response
// and pruned from the stored cart; other catalog failures are returned
// and leave the stored cart untouched. A missing cart yields an empty
// item list.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.ResolvedCart, error) {
	lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}

	cart := &domain.ResolvedCart{Items: make([]domain.ResolvedLine, 0, len(lines))}
	for _, line := range lines {
		item, err := s.catalog.GetByID(ctx, line.Kind, line.ItemID)
		if errors.Is(err, apperrors.ErrNotFound) {
			// Items deleted from the catalog disappear from the cart.
			if pruneErr := s.carts.RemoveLine(ctx, userID, line.Kind, line.ItemID); pruneErr != nil {
				s.logger.WarnContext(ctx, "failed to prune stale cart line",
					slog.String("user_id", userID),
					slog.String("item_id", line.ItemID),
					slog.String("error", pruneErr.Error()),
				)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve cart line: %w", err)
		}
		cart.Items = append(cart.Items, domain.ResolvedLine{
			Item:     *item,
			Quantity: line.Quantity,
		})
	}

	return cart, nil
}

// RemoveItem deletes a line from the user's cart. Removing an item that
// is not in the cart is not an error.
func (s *CartService) RemoveItem(ctx context.Context, userID string, kind domain.CatalogKind, itemID string) error {
	if itemID == "" {
		return apperrors.InvalidInput("item id is required")
	}

	if err := s.carts.RemoveLine(ctx, userID, kind, itemID); err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}

	s.logger.InfoContext(ctx, "cart item removed",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
		slog.String("item_id", itemID),
	)

	return nil
}

// UpdateQuantity sets a line's quantity outright. Zero removes the
// line; negative quantities are rejected.
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, kind domain.CatalogKind, itemID string, quantity int) error {
	if itemID == "" {
		return apperrors.InvalidInput("item id is required")
	}
	if quantity < 0 {
		return apperrors.InvalidInput("quantity must not be negative")
	}

	if quantity == 0 {
		return s.RemoveItem(ctx, userID, kind, itemID)
	}

	if _, err := s.catalog.GetByID(ctx, kind, itemID); err != nil {
		return fmt.Errorf("resolve catalog item: %w", err)
	}

	if err := s.carts.SetLine(ctx, userID, kind, itemID, quantity); err != nil {
		return fmt.Errorf("set cart line: %w", err)
	}

	s.logger.InfoContext(ctx, "cart quantity updated",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)

	return nil
}

// Clear deletes the user's entire cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("user_id", userID),
	)

	return nil
}
