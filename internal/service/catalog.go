package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/princebhatt03/UrbanCart/internal/domain"
	"github.com/princebhatt03/UrbanCart/internal/event"
	"github.com/princebhatt03/UrbanCart/internal/repository"
	"github.com/princebhatt03/UrbanCart/internal/storage"
	apperrors "github.com/princebhatt03/UrbanCart/pkg/errors"
	"github.com/princebhatt03/UrbanCart/pkg/pagination"
	"github.com/princebhatt03/UrbanCart/pkg/slug"
)

// Broadcaster pushes a message to all connected realtime clients.
// Satisfied by ws.Hub.
type Broadcaster interface {
	Broadcast(message []byte)
}

// CatalogService implements admin catalog management for products and
// shops. Every mutation emits a Kafka event and a realtime broadcast,
// both fire-and-forget.
type CatalogService struct {
	repo        repository.CatalogRepository
	storage     storage.Storage
	producer    *event.Producer
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	repo repository.CatalogRepository,
	store storage.Storage,
	producer *event.Producer,
	broadcaster Broadcaster,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		repo:        repo,
		storage:     store,
		producer:    producer,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// CreateItemInput holds the parameters for creating a catalog item.
// ImageURL is the stored path of an already-uploaded image.
type CreateItemInput struct {
	Kind        domain.CatalogKind
	Name        string
	Description string
	Category    string
	Tag         string
	PriceCents  int64
	ImageURL    string
}

// UpdateItemInput holds the parameters for a partial item update. Nil
// fields are left unchanged.
type UpdateItemInput struct {
	Name        *string
	Description *string
	Category    *string
	Tag         *string
	PriceCents  *int64
	ImageURL    *string
}

// Create inserts a new catalog item with a generated slug. A slug
// collision gets a random suffix rather than failing the create.
func (s *CatalogService) Create(ctx context.Context, input CreateItemInput) (*domain.CatalogItem, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.PriceCents < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.ImageURL == "" {
		return nil, apperrors.InvalidInput("image is required")
	}

	now := time.Now().UTC()
	item := &domain.CatalogItem{
		ID:          uuid.New().String(),
		Kind:        input.Kind,
		Name:        input.Name,
		Slug:        slug.Generate(input.Name),
		Description: input.Description,
		Category:    input.Category,
		Tag:         input.Tag,
		PriceCents:  input.PriceCents,
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.repo.Create(ctx, item)
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		item.Slug = slug.WithSuffix(input.Name, uuid.New().String()[:6])
		err = s.repo.Create(ctx, item)
	}
	if err != nil {
		return nil, fmt.Errorf("create catalog item: %w", err)
	}

	s.notifyCreated(ctx, item)

	s.logger.InfoContext(ctx, "catalog item created",
		slog.String("item_id", item.ID),
		slog.String("kind", string(item.Kind)),
		slog.String("slug", item.Slug),
	)

	return item, nil
}

// Get retrieves a single catalog item by kind and ID.
func (s *CatalogService) Get(ctx context.Context, kind domain.CatalogKind, id string) (*domain.CatalogItem, error) {
	item, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("get catalog item: %w", err)
	}
	return item, nil
}

// List returns a page of catalog items of the given kind.
func (s *CatalogService) List(ctx context.Context, kind domain.CatalogKind, params pagination.Params) ([]domain.CatalogItem, int, error) {
	items, total, err := s.repo.List(ctx, kind, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list catalog items: %w", err)
	}
	return items, total, nil
}

// Update applies a partial update. A new image replaces the old one and
// the replaced file is removed from storage.
func (s *CatalogService) Update(ctx context.Context, kind domain.CatalogKind, id string, input UpdateItemInput) (*domain.CatalogItem, error) {
	item, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("get catalog item for update: %w", err)
	}

	oldImage := ""
	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		item.Name = *input.Name
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Category != nil {
		item.Category = *input.Category
	}
	if input.Tag != nil {
		item.Tag = *input.Tag
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, apperrors.InvalidInput("price must not be negative")
		}
		item.PriceCents = *input.PriceCents
	}
	if input.ImageURL != nil && *input.ImageURL != "" && *input.ImageURL != item.ImageURL {
		oldImage = item.ImageURL
		item.ImageURL = *input.ImageURL
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update catalog item: %w", err)
	}

	if oldImage != "" {
		if err := s.storage.Delete(ctx, oldImage); err != nil {
			s.logger.WarnContext(ctx, "failed to delete replaced image",
				slog.String("item_id", item.ID),
				slog.String("path", oldImage),
				slog.String("error", err.Error()),
			)
		}
	}

	s.notifyUpdated(ctx, item)

	s.logger.InfoContext(ctx, "catalog item updated",
		slog.String("item_id", item.ID),
		slog.String("kind", string(item.Kind)),
	)

	return item, nil
}

// Delete removes a catalog item and its stored image.
func (s *CatalogService) Delete(ctx context.Context, kind domain.CatalogKind, id string) error {
	item, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("get catalog item for delete: %w", err)
	}

	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("delete catalog item: %w", err)
	}

	if item.ImageURL != "" && item.ImageURL != domain.DefaultAvatarURL {
		if err := s.storage.Delete(ctx, item.ImageURL); err != nil {
			s.logger.WarnContext(ctx, "failed to delete item image",
				slog.String("item_id", id),
				slog.String("path", item.ImageURL),
				slog.String("error", err.Error()),
			)
		}
	}

	s.notifyDeleted(ctx, kind, id)

	s.logger.InfoContext(ctx, "catalog item deleted",
		slog.String("item_id", id),
		slog.String("kind", string(kind)),
	)

	return nil
}

// --- Change notifications ---

func (s *CatalogService) notifyCreated(ctx context.Context, item *domain.CatalogItem) {
	if err := s.producer.PublishCatalogItemCreated(ctx, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish catalog.item_created event",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
	}
	s.broadcastChange(ctx, event.TopicCatalogItemCreated, item.Kind, item.ID)
}

func (s *CatalogService) notifyUpdated(ctx context.Context, item *domain.CatalogItem) {
	if err := s.producer.PublishCatalogItemUpdated(ctx, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish catalog.item_updated event",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
	}
	s.broadcastChange(ctx, event.TopicCatalogItemUpdated, item.Kind, item.ID)
}

func (s *CatalogService) notifyDeleted(ctx context.Context, kind domain.CatalogKind, id string) {
	if err := s.producer.PublishCatalogItemDeleted(ctx, kind, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish catalog.item_deleted event",
			slog.String("item_id", id),
			slog.String("error", err.Error()),
		)
	}
	s.broadcastChange(ctx, event.TopicCatalogItemDeleted, kind, id)
}

// broadcastChange pushes a compact change notice to realtime clients.
// Clients treat it as a hint to refetch, so the payload stays small.
func (s *CatalogService) broadcastChange(ctx context.Context, eventType string, kind domain.CatalogKind, id string) {
	payload, err := json.Marshal(map[string]string{
		"event_type": eventType,
		"kind":       string(kind),
		"id":         id,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal broadcast payload",
			slog.String("error", err.Error()),
		)
		return
	}
	s.broadcaster.Broadcast(payload)
}
