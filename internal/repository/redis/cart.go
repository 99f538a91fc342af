package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/princebhatt03/UrbanCart/internal/domain"
)

const keyPrefix = "cart:"

// CartRepository implements repository.CartRepository on a Redis hash
// per user. Fields are "<kind>:<itemID>", values are quantities, so
// concurrent adds merge through HIncrBy without a read-modify-write
// window.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a Redis-backed cart repository. Carts
// expire after ttl of inactivity; zero disables expiry.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

func cartKey(userID string) string {
	return keyPrefix + userID
}

func lineField(kind domain.CatalogKind, itemID string) string {
	return string(kind) + ":" + itemID
}

// IncrementLine atomically adds delta to the line quantity and returns
// the new value. Results at or below zero remove the line.
func (r *CartRepository) IncrementLine(ctx context.Context, userID string, kind domain.CatalogKind, itemID string, delta int) (int, error) {
	key := cartKey(userID)
	field := lineField(kind, itemID)

	qty, err := r.client.HIncrBy(ctx, key, field, int64(delta)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hincrby cart line: %w", err)
	}

	if qty <= 0 {
		if err := r.client.HDel(ctx, key, field).Err(); err != nil {
			return 0, fmt.Errorf("redis hdel depleted cart line: %w", err)
		}
		return 0, nil
	}

	r.touch(ctx, key)
	return int(qty), nil
}

// SetLine sets the line quantity outright. Zero removes the line.
func (r *CartRepository) SetLine(ctx context.Context, userID string, kind domain.CatalogKind, itemID string, quantity int) error {
	key := cartKey(userID)
	field := lineField(kind, itemID)

	if quantity <= 0 {
		return r.RemoveLine(ctx, userID, kind, itemID)
	}

	if err := r.client.HSet(ctx, key, field, quantity).Err(); err != nil {
		return fmt.Errorf("redis hset cart line: %w", err)
	}

	r.touch(ctx, key)
	return nil
}

// RemoveLine deletes the line. Deleting an absent line succeeds.
func (r *CartRepository) RemoveLine(ctx context.Context, userID string, kind domain.CatalogKind, itemID string) error {
	if err := r.client.HDel(ctx, cartKey(userID), lineField(kind, itemID)).Err(); err != nil {
		return fmt.Errorf("redis hdel cart line: %w", err)
	}
	return nil
}

// Lines returns all cart lines for the user. Fields that do not parse
// are skipped rather than failing the whole read.
func (r *CartRepository) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	entries, err := r.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall cart: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(entries))
	for field, value := range entries {
		kindStr, itemID, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		kind, err := domain.ParseCatalogKind(kindStr)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(value)
		if err != nil || qty <= 0 {
			continue
		}
		lines = append(lines, domain.CartLine{
			ItemID:   itemID,
			Kind:     kind,
			Quantity: qty,
		})
	}

	return lines, nil
}

// Clear removes the user's entire cart.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}

// touch refreshes the cart TTL on write. Expiry failures are not
// surfaced; the cart just lives longer.
func (r *CartRepository) touch(ctx context.Context, key string) {
	if r.ttl > 0 {
		_ = r.client.Expire(ctx, key, r.ttl).Err()
	}
}
