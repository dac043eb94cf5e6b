package interfaces

import (
	"context"

	"godispatch/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ServiceAreaRepository interface {
	Create(ctx context.Context, area *models.ServiceArea) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.ServiceArea, error)
	Save(ctx context.Context, area *models.ServiceArea) error

	// FindContainingLocation returns all active areas, any tenant, whose
	// boundary contains the location.
	FindContainingLocation(ctx context.Context, location models.Location) ([]*models.ServiceArea, error)

	// FindByTenantContaining narrows FindContainingLocation to one tenant;
	// used for the dispatch eligibility check.
	FindByTenantContaining(ctx context.Context, tenantID primitive.ObjectID, location models.Location) ([]*models.ServiceArea, error)

	// FindIntersecting returns active areas of the tenant whose boundary
	// intersects the given one; used for the overlap guard at creation.
	FindIntersecting(ctx context.Context, tenantID primitive.ObjectID, boundary models.Boundary) ([]*models.ServiceArea, error)

	FindActiveByTenant(ctx context.Context, tenantID primitive.ObjectID) ([]*models.ServiceArea, error)
}
