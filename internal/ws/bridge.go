package ws

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/princebhatt03/UrbanCart/pkg/kafka"
)

// CatalogBridge returns a Kafka handler that forwards catalog events to
// the hub. Routing fanout through Kafka means out-of-process publishers
// reach connected clients too, not just mutations served by this
// instance.
func CatalogBridge(hub *Hub, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, event *pkgkafka.Event) error {
		payload, err := event.Marshal()
		if err != nil {
			return fmt.Errorf("marshal catalog event for fanout: %w", err)
		}

		hub.Broadcast(payload)

		logger.DebugContext(ctx, "catalog event fanned out",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
			slog.Int("clients", hub.ClientCount()),
		)

		return nil
	}
}
