package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/princebhatt03/UrbanCart/internal/domain"
	pkgkafka "github.com/princebhatt03/UrbanCart/pkg/kafka"
)

// Topics for catalog and identity domain events.
var (
	TopicCatalogItemCreated = pkgkafka.Topic("catalog", "item_created")
	TopicCatalogItemUpdated = pkgkafka.Topic("catalog", "item_updated")
	TopicCatalogItemDeleted = pkgkafka.Topic("catalog", "item_deleted")
	TopicUserRegistered     = pkgkafka.Topic("user", "registered")
	TopicUserDeleted        = pkgkafka.Topic("user", "deleted")
)

// Aggregate type constants.
const (
	AggregateTypeCatalogItem = "catalog_item"
	AggregateTypeUser        = "user"
)

// Source identifier for events originating from this server.
const Source = "urbancart"

// CatalogItemData is the payload for catalog.item_* events.
type CatalogItemData struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Category   string `json:"category,omitempty"`
	PriceCents int64  `json:"price_cents"`
	ImageURL   string `json:"image_url,omitempty"`
}

// CatalogItemDeletedData is the payload for catalog.item_deleted.
type CatalogItemDeletedData struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// UserRegisteredData is the payload for user.registered.
type UserRegisteredData struct {
	ID           string `json:"id"`
	Handle       string `json:"handle"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	AuthProvider string `json:"auth_provider"`
}

// UserDeletedData is the payload for user.deleted.
type UserDeletedData struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Role   string `json:"role"`
}

// Producer publishes domain events to Kafka. Publishing is
// fire-and-forget at the call sites: failures are logged, never
// surfaced to the client.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func catalogItemData(item *domain.CatalogItem) CatalogItemData {
	return CatalogItemData{
		ID:         item.ID,
		Kind:       string(item.Kind),
		Name:       item.Name,
		Slug:       item.Slug,
		Category:   item.Category,
		PriceCents: item.PriceCents,
		ImageURL:   item.ImageURL,
	}
}

// PublishCatalogItemCreated publishes a catalog.item_created event.
func (p *Producer) PublishCatalogItemCreated(ctx context.Context, item *domain.CatalogItem) error {
	return p.publishCatalogItem(ctx, TopicCatalogItemCreated, item)
}

// PublishCatalogItemUpdated publishes a catalog.item_updated event.
func (p *Producer) PublishCatalogItemUpdated(ctx context.Context, item *domain.CatalogItem) error {
	return p.publishCatalogItem(ctx, TopicCatalogItemUpdated, item)
}

func (p *Producer) publishCatalogItem(ctx context.Context, topic string, item *domain.CatalogItem) error {
	event, err := pkgkafka.NewEvent(topic, item.ID, AggregateTypeCatalogItem, Source, catalogItemData(item))
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published catalog event",
		slog.String("topic", topic),
		slog.String("item_id", item.ID),
		slog.String("kind", string(item.Kind)),
	)

	return nil
}

// PublishCatalogItemDeleted publishes a catalog.item_deleted event.
func (p *Producer) PublishCatalogItemDeleted(ctx context.Context, kind domain.CatalogKind, id string) error {
	data := CatalogItemDeletedData{ID: id, Kind: string(kind)}

	event, err := pkgkafka.NewEvent(TopicCatalogItemDeleted, id, AggregateTypeCatalogItem, Source, data)
	if err != nil {
		return fmt.Errorf("create catalog.item_deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCatalogItemDeleted, event); err != nil {
		return fmt.Errorf("publish catalog.item_deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published catalog event",
		slog.String("topic", TopicCatalogItemDeleted),
		slog.String("item_id", id),
		slog.String("kind", string(kind)),
	)

	return nil
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, identity *domain.Identity) error {
	data := UserRegisteredData{
		ID:           identity.ID,
		Handle:       identity.Handle,
		Email:        identity.Email,
		Role:         string(identity.Role),
		AuthProvider: string(identity.AuthProvider),
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, identity.ID, AggregateTypeUser, Source, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", identity.ID),
		slog.String("handle", identity.Handle),
	)

	return nil
}

// PublishUserDeleted publishes a user.deleted event.
func (p *Producer) PublishUserDeleted(ctx context.Context, identity *domain.Identity) error {
	data := UserDeletedData{
		ID:     identity.ID,
		Handle: identity.Handle,
		Role:   string(identity.Role),
	}

	event, err := pkgkafka.NewEvent(TopicUserDeleted, identity.ID, AggregateTypeUser, Source, data)
	if err != nil {
		return fmt.Errorf("create user.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserDeleted, event); err != nil {
		return fmt.Errorf("publish user.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.deleted event",
		slog.String("user_id", identity.ID),
	)

	return nil
}
