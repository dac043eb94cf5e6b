package events

import (
	"context"

	"godispatch/internal/models"
	"godispatch/pkg/logger"
)

// LogPublisher writes every event to the structured log. It wraps another
// publisher so the log line is emitted alongside the real fan-out.
type LogPublisher struct {
	next   Publisher
	logger *logger.Logger
}

func NewLogPublisher(next Publisher, log *logger.Logger) *LogPublisher {
	if next == nil {
		next = NopPublisher{}
	}
	return &LogPublisher{next: next, logger: log}
}

func (p *LogPublisher) Publish(ctx context.Context, events ...models.DomainEvent) error {
	for _, event := range events {
		p.logger.WithFields(map[string]interface{}{
			"event_type":  event.EventType(),
			"occurred_at": event.OccurredAt().UTC(),
		}).Info("domain event")
	}
	return p.next.Publish(ctx, events...)
}
