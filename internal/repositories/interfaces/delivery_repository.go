package interfaces

import (
	"context"
	"time"

	"godispatch/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DeliveryRepository interface {
	Create(ctx context.Context, delivery *models.Delivery) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Delivery, error)
	Save(ctx context.Context, delivery *models.Delivery) error

	// FindActiveByCourier returns the courier's in-flight delivery (ASSIGNED,
	// PICKED_UP or IN_TRANSIT), or models.ErrDeliveryNotFound.
	FindActiveByCourier(ctx context.Context, courierID primitive.ObjectID) (*models.Delivery, error)

	FindByTenantAndStatus(ctx context.Context, tenantID primitive.ObjectID, status models.DeliveryStatus) ([]*models.Delivery, error)

	// FindFailedSince returns deliveries that failed with the given reason
	// whose FIRST failure is after the cutoff, for the re-dispatch sweep.
	// Windowing on the first failure keeps retries from resetting the clock.
	FindFailedSince(ctx context.Context, cutoff time.Time, reason string) ([]*models.Delivery, error)
}
