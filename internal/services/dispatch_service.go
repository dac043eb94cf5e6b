package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"godispatch/internal/config"
	"godispatch/internal/events"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/utils"
	"godispatch/pkg/logger"
	"godispatch/pkg/maps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DispatchService orchestrates the full dispatch flow: eligibility check,
// courier assignment, route computation and the compensating release when a
// later step fails after a courier was already reserved.
type DispatchService struct {
	deliveryRepo interfaces.DeliveryRepository
	courierRepo  interfaces.CourierRepository
	areaService  *ServiceAreaService
	assignment   *AssignmentService
	optimizer    maps.RouteOptimizer
	fallback     maps.RouteOptimizer
	publisher    events.Publisher
	logger       *logger.Logger

	optimizerTimeout time.Duration
	releaseAttempts  int
	releaseBackoff   time.Duration
}

func NewDispatchService(
	deliveryRepo interfaces.DeliveryRepository,
	courierRepo interfaces.CourierRepository,
	areaService *ServiceAreaService,
	assignment *AssignmentService,
	optimizer maps.RouteOptimizer,
	cfg *config.DispatchConfig,
	publisher events.Publisher,
	log *logger.Logger,
) *DispatchService {
	return &DispatchService{
		deliveryRepo:     deliveryRepo,
		courierRepo:      courierRepo,
		areaService:      areaService,
		assignment:       assignment,
		optimizer:        optimizer,
		fallback:         maps.NewDirectLineEstimator(utils.DefaultCourierSpeedKMH),
		publisher:        publisher,
		logger:           log,
		optimizerTimeout: cfg.OptimizerTimeout,
		releaseAttempts:  utils.ReleaseRetryAttempts,
		releaseBackoff:   utils.ReleaseRetryBackoff,
	}
}

type CreateDeliveryRequest struct {
	TenantID    primitive.ObjectID `json:"tenant_id" binding:"required"`
	OrderID     primitive.ObjectID `json:"order_id" binding:"required"`
	Origin      VertexRequest      `json:"origin" binding:"required"`
	Destination VertexRequest      `json:"destination" binding:"required"`
}

func (s *DispatchService) CreateDelivery(ctx context.Context, req *CreateDeliveryRequest) (*models.Delivery, error) {
	origin, err := models.NewLocation(req.Origin.Latitude, req.Origin.Longitude)
	if err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	destination, err := models.NewLocation(req.Destination.Latitude, req.Destination.Longitude)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	delivery, err := models.NewDelivery(req.TenantID, req.OrderID, origin, destination)
	if err != nil {
		return nil, err
	}
	if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
		return nil, err
	}
	return delivery, nil
}

func (s *DispatchService) GetDelivery(ctx context.Context, id primitive.ObjectID) (*models.Delivery, error) {
	return s.deliveryRepo.GetByID(ctx, id)
}

// Dispatch assigns a courier and a route to a pending delivery.
//
// The pickup must lie inside an active service area of the tenant; otherwise
// the delivery is left untouched and ErrOutsideServiceArea is returned. When
// no courier can be reserved the delivery is marked FAILED with the
// no-courier reason so the sweep can retry it later.
func (s *DispatchService) Dispatch(ctx context.Context, deliveryID primitive.ObjectID) (*models.Delivery, error) {
	delivery, err := s.deliveryRepo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.Status != models.DeliveryStatusPending {
		return nil, fmt.Errorf("%w: delivery is %s, expected %s",
			models.ErrInvalidTransition, delivery.Status, models.DeliveryStatusPending)
	}

	log := s.logger.WithDeliveryID(delivery.ID).WithTenantID(delivery.TenantID)

	if _, err := s.areaService.LocateServingArea(ctx, delivery.TenantID, delivery.Origin); err != nil {
		return nil, err
	}

	courier, err := s.assignment.AssignCourier(ctx, delivery)
	if err != nil {
		if errors.Is(err, models.ErrNoCourierAvailable) {
			if failErr := s.failDelivery(ctx, delivery, models.FailureReasonNoCourier); failErr != nil {
				log.WithError(failErr).Error("failed to record assignment failure")
			}
		}
		return nil, err
	}

	// The courier is reserved from here on; every failure path below must
	// release it.
	route, degradedReason := s.computeRoute(ctx, courier, delivery)

	if err := delivery.Assign(courier.ID, *route); err != nil {
		s.releaseWithRetry(ctx, courier.ID)
		return nil, err
	}
	if degradedReason != "" {
		delivery.MarkRouteDegraded(degradedReason)
	}

	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		s.releaseWithRetry(ctx, courier.ID)
		return nil, fmt.Errorf("failed to persist assignment: %w", err)
	}

	if err := s.publisher.Publish(ctx, delivery.CollectEvents()...); err != nil {
		log.WithError(err).Warn("failed to publish dispatch events")
	}

	log.WithCourierID(courier.ID).
		WithField("route_distance_m", route.Distance.Meters()).
		WithField("route_degraded", route.Degraded).
		Info("delivery dispatched")
	return delivery, nil
}

// computeRoute asks the optimizer for a route from the courier's position
// through the pickup to the destination, bounded by the optimizer timeout. On
// any failure it degrades to a direct-line estimate; dispatch never blocks on
// route optimization.
func (s *DispatchService) computeRoute(ctx context.Context, courier *models.Courier, delivery *models.Delivery) (*models.Route, string) {
	origin := delivery.Origin
	var waypoints []models.Location
	if courier.CurrentLocation != nil && !courier.CurrentLocation.IsZero() {
		origin = *courier.CurrentLocation
		waypoints = []models.Location{delivery.Origin}
	}

	optCtx, cancel := context.WithTimeout(ctx, s.optimizerTimeout)
	defer cancel()

	route, err := s.optimizer.Optimize(optCtx, origin, delivery.Destination, waypoints)
	if err == nil {
		return route, ""
	}

	reason := fmt.Sprintf("route optimization failed: %v", err)
	s.logger.WithDeliveryID(delivery.ID).WithError(err).Warn("falling back to direct-line route")

	route, _ = s.fallback.Optimize(ctx, origin, delivery.Destination, waypoints)
	return route, reason
}

// Cancel fails a non-terminal delivery and releases its courier if one was
// reserved.
func (s *DispatchService) Cancel(ctx context.Context, deliveryID primitive.ObjectID) (*models.Delivery, error) {
	delivery, err := s.deliveryRepo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	courierID := delivery.CourierID
	if err := delivery.Fail(models.FailureReasonCancelled); err != nil {
		return nil, err
	}
	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		return nil, err
	}
	if courierID != nil {
		s.releaseWithRetry(ctx, *courierID)
	}

	if err := s.publisher.Publish(ctx, delivery.CollectEvents()...); err != nil {
		s.logger.WithError(err).Warn("failed to publish cancel events")
	}
	return delivery, nil
}

// MarkPickedUp advances an assigned delivery to PICKED_UP and the courier to
// EN_ROUTE.
func (s *DispatchService) MarkPickedUp(ctx context.Context, deliveryID primitive.ObjectID) (*models.Delivery, error) {
	delivery, err := s.advance(ctx, deliveryID, func(d *models.Delivery) error { return d.MarkPickedUp() })
	if err != nil {
		return nil, err
	}

	if delivery.CourierID != nil {
		courier, err := s.courierRepo.GetByID(ctx, *delivery.CourierID)
		if err != nil {
			s.logger.WithError(err).Error("failed to load courier after pickup")
			return delivery, nil
		}
		if err := courier.StartRoute(); err != nil {
			s.logger.WithCourierID(courier.ID).WithError(err).Error("courier en-route transition rejected")
			return delivery, nil
		}
		if err := s.courierRepo.Save(ctx, courier); err != nil {
			s.logger.WithCourierID(courier.ID).WithError(err).Error("failed to persist courier en-route status")
			return delivery, nil
		}
		if err := s.publisher.Publish(ctx, courier.CollectEvents()...); err != nil {
			s.logger.WithError(err).Warn("failed to publish courier events")
		}
	}
	return delivery, nil
}

// Reassign moves an assigned delivery to a different courier with a freshly
// computed route. The previous courier is released only after the swap is
// persisted; when no alternate courier can be reserved the existing
// assignment stands.
func (s *DispatchService) Reassign(ctx context.Context, deliveryID primitive.ObjectID) (*models.Delivery, error) {
	delivery, err := s.deliveryRepo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.Status != models.DeliveryStatusAssigned || delivery.CourierID == nil {
		return nil, fmt.Errorf("%w: delivery is %s, expected %s",
			models.ErrInvalidTransition, delivery.Status, models.DeliveryStatusAssigned)
	}
	previousID := *delivery.CourierID

	log := s.logger.WithDeliveryID(delivery.ID).WithTenantID(delivery.TenantID)

	// The previous courier is still ASSIGNED, so it is never a candidate here.
	courier, err := s.assignment.AssignCourier(ctx, delivery)
	if err != nil {
		return nil, err
	}

	route, degradedReason := s.computeRoute(ctx, courier, delivery)

	if err := delivery.Reassign(courier.ID, *route); err != nil {
		s.releaseWithRetry(ctx, courier.ID)
		return nil, err
	}
	if degradedReason != "" {
		delivery.MarkRouteDegraded(degradedReason)
	}

	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		s.releaseWithRetry(ctx, courier.ID)
		return nil, fmt.Errorf("failed to persist reassignment: %w", err)
	}
	s.releaseWithRetry(ctx, previousID)

	if err := s.publisher.Publish(ctx, delivery.CollectEvents()...); err != nil {
		log.WithError(err).Warn("failed to publish reassignment events")
	}

	log.WithCourierID(courier.ID).
		WithField("previous_courier_id", previousID.Hex()).
		Info("delivery reassigned")
	return delivery, nil
}

// MarkDelivered completes the delivery and frees the courier's slot.
func (s *DispatchService) MarkDelivered(ctx context.Context, deliveryID primitive.ObjectID) (*models.Delivery, error) {
	delivery, err := s.advance(ctx, deliveryID, func(d *models.Delivery) error { return d.MarkDelivered() })
	if err != nil {
		return nil, err
	}

	if delivery.CourierID != nil {
		courier, err := s.courierRepo.GetByID(ctx, *delivery.CourierID)
		if err != nil {
			s.logger.WithError(err).Error("failed to load courier after delivery completion")
			return delivery, nil
		}
		if err := courier.CompleteDelivery(); err != nil {
			s.logger.WithCourierID(courier.ID).WithError(err).Error("courier completion rejected")
			return delivery, nil
		}
		if err := s.courierRepo.Save(ctx, courier); err != nil {
			s.logger.WithCourierID(courier.ID).WithError(err).Error("failed to persist courier completion")
			return delivery, nil
		}
		if err := s.publisher.Publish(ctx, courier.CollectEvents()...); err != nil {
			s.logger.WithError(err).Warn("failed to publish courier events")
		}
	}
	return delivery, nil
}

// Redispatch reopens a delivery that failed for lack of couriers and runs the
// dispatch flow again.
func (s *DispatchService) Redispatch(ctx context.Context, deliveryID primitive.ObjectID) (*models.Delivery, error) {
	delivery, err := s.deliveryRepo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if err := delivery.Reopen(); err != nil {
		return nil, err
	}
	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, delivery.CollectEvents()...); err != nil {
		s.logger.WithError(err).Warn("failed to publish reopen events")
	}
	return s.Dispatch(ctx, deliveryID)
}

func (s *DispatchService) advance(ctx context.Context, deliveryID primitive.ObjectID, fn func(*models.Delivery) error) (*models.Delivery, error) {
	delivery, err := s.deliveryRepo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if err := fn(delivery); err != nil {
		return nil, err
	}
	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, delivery.CollectEvents()...); err != nil {
		s.logger.WithError(err).Warn("failed to publish delivery events")
	}
	return delivery, nil
}

func (s *DispatchService) failDelivery(ctx context.Context, delivery *models.Delivery, reason string) error {
	if err := delivery.Fail(reason); err != nil {
		return err
	}
	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, delivery.CollectEvents()...); err != nil {
		s.logger.WithError(err).Warn("failed to publish failure events")
	}
	return nil
}

// releaseWithRetry is the compensation for a reservation that could not be
// turned into a persisted assignment. The release must eventually happen or
// the courier is stuck ASSIGNED with no delivery, so transient storage errors
// are retried with backoff before giving up loudly.
func (s *DispatchService) releaseWithRetry(ctx context.Context, courierID primitive.ObjectID) {
	var err error
	for attempt := 1; attempt <= s.releaseAttempts; attempt++ {
		if err = s.courierRepo.Release(ctx, courierID); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(s.releaseBackoff * time.Duration(attempt)):
			continue
		}
		break
	}
	s.logger.WithCourierID(courierID).WithError(err).
		Error("failed to release reserved courier, manual intervention required")
}
