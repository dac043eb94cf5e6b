package services

import (
	"context"

	"godispatch/internal/events"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/tracker"
	"godispatch/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CourierService owns courier identity and duty lifecycle. Live positions are
// the tracker's concern; going offline removes the courier from it.
type CourierService struct {
	courierRepo interfaces.CourierRepository
	tracker     tracker.LocationTracker
	publisher   events.Publisher
	logger      *logger.Logger
}

func NewCourierService(courierRepo interfaces.CourierRepository, locTracker tracker.LocationTracker, publisher events.Publisher, log *logger.Logger) *CourierService {
	return &CourierService{
		courierRepo: courierRepo,
		tracker:     locTracker,
		publisher:   publisher,
		logger:      log,
	}
}

type RegisterCourierRequest struct {
	TenantID    primitive.ObjectID `json:"tenant_id" binding:"required"`
	Name        string             `json:"name" binding:"required"`
	Phone       string             `json:"phone"`
	VehicleType string             `json:"vehicle_type"`
	Capacity    int                `json:"capacity"`
}

func (s *CourierService) RegisterCourier(ctx context.Context, req *RegisterCourierRequest) (*models.Courier, error) {
	courier, err := models.NewCourier(req.TenantID, req.Name, req.Phone, req.VehicleType, req.Capacity)
	if err != nil {
		return nil, err
	}
	if err := s.courierRepo.Create(ctx, courier); err != nil {
		return nil, err
	}
	s.logger.WithCourierID(courier.ID).WithTenantID(courier.TenantID).Info("courier registered")
	return courier, nil
}

func (s *CourierService) GetCourier(ctx context.Context, id primitive.ObjectID) (*models.Courier, error) {
	return s.courierRepo.GetByID(ctx, id)
}

// GoOnline makes the courier eligible for assignment and starts its idle
// clock for tie breaking.
func (s *CourierService) GoOnline(ctx context.Context, id primitive.ObjectID) (*models.Courier, error) {
	return s.mutate(ctx, id, func(c *models.Courier) error { return c.GoOnline() })
}

// GoOffline withdraws the courier from assignment and drops its tracked
// position.
func (s *CourierService) GoOffline(ctx context.Context, id primitive.ObjectID) (*models.Courier, error) {
	courier, err := s.mutate(ctx, id, func(c *models.Courier) error { return c.GoOffline() })
	if err != nil {
		return nil, err
	}
	if err := s.tracker.Remove(ctx, id); err != nil {
		s.logger.WithCourierID(id).WithError(err).Warn("failed to drop tracked position")
	}
	return courier, nil
}

func (s *CourierService) mutate(ctx context.Context, id primitive.ObjectID, fn func(*models.Courier) error) (*models.Courier, error) {
	courier, err := s.courierRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(courier); err != nil {
		return nil, err
	}
	if err := s.courierRepo.Save(ctx, courier); err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, courier.CollectEvents()...); err != nil {
		s.logger.WithError(err).Warn("failed to publish courier events")
	}
	return courier, nil
}
