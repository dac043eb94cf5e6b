package events

import (
	"context"

	"godispatch/internal/models"
)

// Publisher delivers domain events collected from aggregates after their
// state has been persisted. Implementations must tolerate being called with
// an empty slice.
type Publisher interface {
	Publish(ctx context.Context, events ...models.DomainEvent) error
}

// NopPublisher discards all events. Useful in tests and as a default.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, events ...models.DomainEvent) error {
	return nil
}
