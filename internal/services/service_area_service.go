package services

import (
	"context"
	"fmt"

	"godispatch/internal/events"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServiceAreaService manages the tenant-scoped polygons that gate where
// deliveries may be dispatched.
type ServiceAreaService struct {
	areaRepo  interfaces.ServiceAreaRepository
	publisher events.Publisher
	logger    *logger.Logger
}

func NewServiceAreaService(areaRepo interfaces.ServiceAreaRepository, publisher events.Publisher, log *logger.Logger) *ServiceAreaService {
	return &ServiceAreaService{
		areaRepo:  areaRepo,
		publisher: publisher,
		logger:    log,
	}
}

type CreateServiceAreaRequest struct {
	TenantID primitive.ObjectID `json:"tenant_id" binding:"required"`
	City     string             `json:"city" binding:"required"`
	Vertices []VertexRequest    `json:"vertices" binding:"required,min=3"`
}

type VertexRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CreateServiceArea validates the polygon, rejects boundaries that overlap an
// existing active area of the same tenant, and persists the new area active.
func (s *ServiceAreaService) CreateServiceArea(ctx context.Context, req *CreateServiceAreaRequest) (*models.ServiceArea, error) {
	vertices := make([]models.Location, len(req.Vertices))
	for i, v := range req.Vertices {
		loc, err := models.NewLocation(v.Latitude, v.Longitude)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		vertices[i] = loc
	}

	boundary, err := models.NewBoundary(vertices)
	if err != nil {
		return nil, err
	}

	existing, err := s.areaRepo.FindIntersecting(ctx, req.TenantID, boundary)
	if err != nil {
		return nil, fmt.Errorf("failed to check overlap: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: boundary intersects area %s", models.ErrServiceAreaOverlap, existing[0].ID.Hex())
	}

	area, err := models.NewServiceArea(req.TenantID, req.City, boundary)
	if err != nil {
		return nil, err
	}

	if err := s.areaRepo.Create(ctx, area); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, area.CollectEvents()...); err != nil {
		s.logger.WithError(err).Warn("failed to publish service area events")
	}

	s.logger.WithTenantID(req.TenantID).
		WithField("service_area_id", area.ID.Hex()).
		WithField("city", req.City).
		Info("service area created")
	return area, nil
}

func (s *ServiceAreaService) GetServiceArea(ctx context.Context, id primitive.ObjectID) (*models.ServiceArea, error) {
	return s.areaRepo.GetByID(ctx, id)
}

func (s *ServiceAreaService) ListActiveByTenant(ctx context.Context, tenantID primitive.ObjectID) ([]*models.ServiceArea, error) {
	return s.areaRepo.FindActiveByTenant(ctx, tenantID)
}

// ActivateServiceArea is idempotent: activating an active area is a no-op.
func (s *ServiceAreaService) ActivateServiceArea(ctx context.Context, id primitive.ObjectID) (*models.ServiceArea, error) {
	return s.toggle(ctx, id, true)
}

// DeactivateServiceArea is idempotent. Deactivation does not touch in-flight
// deliveries; it only stops new dispatches from originating inside the area.
func (s *ServiceAreaService) DeactivateServiceArea(ctx context.Context, id primitive.ObjectID) (*models.ServiceArea, error) {
	return s.toggle(ctx, id, false)
}

func (s *ServiceAreaService) toggle(ctx context.Context, id primitive.ObjectID, active bool) (*models.ServiceArea, error) {
	area, err := s.areaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if active {
		area.Activate()
	} else {
		area.Deactivate()
	}

	pending := area.CollectEvents()
	if len(pending) == 0 {
		// Nothing changed; skip the write.
		return area, nil
	}

	if err := s.areaRepo.Save(ctx, area); err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, pending...); err != nil {
		s.logger.WithError(err).Warn("failed to publish service area events")
	}
	return area, nil
}

// LocateServingArea returns the active areas of the tenant containing the
// location, or ErrOutsideServiceArea when there are none.
func (s *ServiceAreaService) LocateServingArea(ctx context.Context, tenantID primitive.ObjectID, location models.Location) (*models.ServiceArea, error) {
	areas, err := s.areaRepo.FindByTenantContaining(ctx, tenantID, location)
	if err != nil {
		return nil, err
	}
	if len(areas) == 0 {
		return nil, fmt.Errorf("%w: no active area covers %s", models.ErrOutsideServiceArea, location)
	}
	return areas[0], nil
}

// IsLocationServed reports whether any tenant's active area contains the
// location.
func (s *ServiceAreaService) IsLocationServed(ctx context.Context, location models.Location) (bool, error) {
	areas, err := s.areaRepo.FindContainingLocation(ctx, location)
	if err != nil {
		return false, err
	}
	return len(areas) > 0, nil
}
