package events

import (
	"context"
	"fmt"

	"godispatch/internal/models"
	"godispatch/pkg/cache"
	"godispatch/pkg/logger"
)

const channelPrefix = "dispatch:events:"

// RedisPublisher fans events out over redis pub/sub, one channel per event
// type. Publishing is best effort per event; the first failure aborts the
// batch and is returned to the caller.
type RedisPublisher struct {
	cache  *cache.RedisCache
	logger *logger.Logger
}

func NewRedisPublisher(cache *cache.RedisCache, log *logger.Logger) *RedisPublisher {
	return &RedisPublisher{
		cache:  cache,
		logger: log,
	}
}

type eventEnvelope struct {
	Type       string             `json:"type"`
	OccurredAt string             `json:"occurred_at"`
	Payload    models.DomainEvent `json:"payload"`
}

func (p *RedisPublisher) Publish(ctx context.Context, events ...models.DomainEvent) error {
	for _, event := range events {
		envelope := eventEnvelope{
			Type:       event.EventType(),
			OccurredAt: event.OccurredAt().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			Payload:    event,
		}
		channel := channelPrefix + event.EventType()
		if err := p.cache.Publish(ctx, channel, envelope); err != nil {
			return fmt.Errorf("failed to publish %s event: %w", event.EventType(), err)
		}
		p.logger.WithField("event_type", event.EventType()).Debug("published domain event")
	}
	return nil
}
