package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"godispatch/internal/events"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/tracker"
	"godispatch/internal/utils"
	"godispatch/pkg/logger"
	"godispatch/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrackingService ingests courier position reports, advances delivery status
// on observed movement and raises advisory deviation and stall signals. None
// of the advisory paths ever blocks or fails a delivery.
type TrackingService struct {
	tracker      tracker.LocationTracker
	deliveryRepo interfaces.DeliveryRepository
	publisher    events.Publisher
	hub          *websocket.Hub
	logger       *logger.Logger

	movementThreshold models.Distance
	offRouteThreshold models.Distance
	offRouteGrace     time.Duration
	stallGrace        time.Duration

	mu       sync.Mutex
	watching map[primitive.ObjectID]*courierWatch

	now func() time.Time
}

// courierWatch is per-courier advisory state. It lives only in memory; a
// restart just restarts the grace periods.
type courierWatch struct {
	deviatingSince *time.Time
	offRouteRaised bool

	lastMovedLocation models.Location
	lastMovedAt       time.Time
	stallRaised       bool
}

func NewTrackingService(
	locTracker tracker.LocationTracker,
	deliveryRepo interfaces.DeliveryRepository,
	publisher events.Publisher,
	hub *websocket.Hub,
	log *logger.Logger,
) *TrackingService {
	return &TrackingService{
		tracker:           locTracker,
		deliveryRepo:      deliveryRepo,
		publisher:         publisher,
		hub:               hub,
		logger:            log,
		movementThreshold: models.Distance(utils.MovementThresholdMeters),
		offRouteThreshold: models.Distance(utils.OffRouteThresholdMeters),
		offRouteGrace:     utils.OffRouteGracePeriod,
		stallGrace:        utils.StallGracePeriod,
		watching:          make(map[primitive.ObjectID]*courierWatch),
		now:               func() time.Time { return time.Now().UTC() },
	}
}

type CourierLocationUpdate struct {
	Latitude  float64   `json:"latitude" binding:"required"`
	Longitude float64   `json:"longitude" binding:"required"`
	Accuracy  float64   `json:"accuracy"`
	Speed     float64   `json:"speed"`
	Timestamp time.Time `json:"timestamp"`
}

// RecordCourierUpdate stores the position and, when the courier has an active
// delivery, drives status progression and deviation checks off it.
func (s *TrackingService) RecordCourierUpdate(ctx context.Context, courierID primitive.ObjectID, update CourierLocationUpdate) error {
	location, err := models.NewLocation(update.Latitude, update.Longitude)
	if err != nil {
		return err
	}
	timestamp := update.Timestamp
	if timestamp.IsZero() {
		timestamp = s.now()
	}

	report := models.LocationReport{
		CourierID: courierID,
		Location:  location,
		Timestamp: timestamp,
		Accuracy:  update.Accuracy,
		Speed:     update.Speed,
	}
	applied, err := s.tracker.Report(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to record location: %w", err)
	}
	if !applied {
		// Out-of-order arrival; a newer position is already on record, so
		// progression and deviation checks must not run on this one.
		s.logger.WithCourierID(courierID).Debug("dropped out-of-order location report")
		return nil
	}

	delivery, err := s.deliveryRepo.FindActiveByCourier(ctx, courierID)
	if err != nil {
		if errors.Is(err, models.ErrDeliveryNotFound) {
			s.clearWatch(courierID)
			return nil
		}
		return err
	}

	s.progressOnMovement(ctx, delivery, location)
	s.checkDeviation(ctx, delivery, courierID, location)

	s.hub.SendDeliveryUpdate(delivery.ID, "courier_location", map[string]interface{}{
		"courier_id": courierID.Hex(),
		"latitude":   location.Latitude(),
		"longitude":  location.Longitude(),
		"speed":      update.Speed,
		"timestamp":  timestamp,
		"status":     delivery.Status,
	})
	return nil
}

// progressOnMovement flips PICKED_UP to IN_TRANSIT once the courier has
// demonstrably left the pickup point.
func (s *TrackingService) progressOnMovement(ctx context.Context, delivery *models.Delivery, location models.Location) {
	if delivery.Status != models.DeliveryStatusPickedUp {
		return
	}
	if location.DistanceTo(delivery.Origin) <= s.movementThreshold {
		return
	}

	if err := delivery.MarkInTransit(); err != nil {
		s.logger.WithDeliveryID(delivery.ID).WithError(err).Warn("in-transit progression rejected")
		return
	}
	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		s.logger.WithDeliveryID(delivery.ID).WithError(err).Error("failed to persist in-transit progression")
		return
	}
	if err := s.publisher.Publish(ctx, delivery.CollectEvents()...); err != nil {
		s.logger.WithError(err).Warn("failed to publish tracking events")
	}
}

// checkDeviation raises off-route and stall signals after their grace
// periods. Each signal fires once per delivery leg until the courier recovers.
func (s *TrackingService) checkDeviation(ctx context.Context, delivery *models.Delivery, courierID primitive.ObjectID, location models.Location) {
	if delivery.Status != models.DeliveryStatusPickedUp && delivery.Status != models.DeliveryStatusInTransit {
		return
	}

	now := s.now()

	s.mu.Lock()
	watch, ok := s.watching[courierID]
	if !ok {
		watch = &courierWatch{lastMovedLocation: location, lastMovedAt: now}
		s.watching[courierID] = watch
	}

	var advisories []models.DomainEvent

	if delivery.Route != nil {
		deviation := utils.DistanceToRoute(location, *delivery.Route)
		if deviation > s.offRouteThreshold {
			if watch.deviatingSince == nil {
				watch.deviatingSince = &now
			} else if !watch.offRouteRaised && now.Sub(*watch.deviatingSince) >= s.offRouteGrace {
				watch.offRouteRaised = true
				advisories = append(advisories, models.NewCourierOffRouteEvent(delivery.ID, courierID, deviation))
			}
		} else {
			watch.deviatingSince = nil
			watch.offRouteRaised = false
		}
	}

	if location.DistanceTo(watch.lastMovedLocation) > s.movementThreshold {
		watch.lastMovedLocation = location
		watch.lastMovedAt = now
		watch.stallRaised = false
	} else if !watch.stallRaised && now.Sub(watch.lastMovedAt) >= s.stallGrace {
		watch.stallRaised = true
		advisories = append(advisories, models.NewCourierStalledEvent(delivery.ID, courierID, watch.lastMovedAt))
	}
	s.mu.Unlock()

	if len(advisories) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, advisories...); err != nil {
		s.logger.WithCourierID(courierID).WithError(err).Warn("failed to publish advisory events")
	}
	for _, advisory := range advisories {
		s.hub.SendDeliveryUpdate(delivery.ID, advisory.EventType(), map[string]interface{}{
			"courier_id": courierID.Hex(),
		})
	}
}

// GetCourierLocation returns the latest known position. ok is false when the
// courier has never reported or its record was evicted as stale.
func (s *TrackingService) GetCourierLocation(ctx context.Context, courierID primitive.ObjectID) (models.LocationReport, bool, error) {
	return s.tracker.CurrentLocation(ctx, courierID)
}

// StopTracking drops the courier from the tracker and clears advisory state,
// e.g. when the courier goes offline.
func (s *TrackingService) StopTracking(ctx context.Context, courierID primitive.ObjectID) error {
	s.clearWatch(courierID)
	return s.tracker.Remove(ctx, courierID)
}

func (s *TrackingService) clearWatch(courierID primitive.ObjectID) {
	s.mu.Lock()
	delete(s.watching, courierID)
	s.mu.Unlock()
}
