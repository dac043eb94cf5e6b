package interfaces

import (
	"context"

	"godispatch/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CourierRepository interface {
	Create(ctx context.Context, courier *models.Courier) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Courier, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Courier, error)
	Save(ctx context.Context, courier *models.Courier) error

	// Reserve atomically transitions the courier AVAILABLE -> ASSIGNED iff it
	// still has capacity. Exactly one concurrent caller can win; losers get
	// models.ErrReservationLost.
	Reserve(ctx context.Context, id primitive.ObjectID) (*models.Courier, error)

	// Release is the compensating action for Reserve: the courier goes from
	// ASSIGNED or EN_ROUTE back to AVAILABLE with one delivery slot freed.
	// Idempotent when the courier is already available.
	Release(ctx context.Context, id primitive.ObjectID) error

	GetAvailableByTenant(ctx context.Context, tenantID primitive.ObjectID) ([]*models.Courier, error)
}
