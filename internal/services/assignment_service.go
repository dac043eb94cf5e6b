package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"godispatch/internal/config"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/tracker"
	"godispatch/internal/utils"
	"godispatch/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentService selects and reserves a courier for a delivery. Selection
// is nearest-first with idle time as the tie break; reservation goes through
// the repository's compare-and-swap so concurrent dispatches cannot share a
// courier.
type AssignmentService struct {
	courierRepo interfaces.CourierRepository
	tracker     tracker.LocationTracker
	logger      *logger.Logger

	searchRadius models.Distance
	maxRadius    models.Distance
	widenStep    float64
}

func NewAssignmentService(courierRepo interfaces.CourierRepository, locTracker tracker.LocationTracker, cfg *config.DispatchConfig, log *logger.Logger) *AssignmentService {
	return &AssignmentService{
		courierRepo:  courierRepo,
		tracker:      locTracker,
		logger:       log,
		searchRadius: models.Distance(cfg.SearchRadiusKM * 1000),
		maxRadius:    models.Distance(cfg.MaxRadiusKM * 1000),
		widenStep:    utils.SearchRadiusWidenStep,
	}
}

// candidate pairs a courier with the tracker snapshot it was found on.
type candidate struct {
	courier *models.Courier
	nearby  tracker.NearbyCourier
}

// AssignCourier finds the best available courier near the pickup point and
// reserves it. Returns ErrNoCourierAvailable when the widened search exhausts
// every radius, or every candidate loses its reservation race.
func (s *AssignmentService) AssignCourier(ctx context.Context, delivery *models.Delivery) (*models.Courier, error) {
	log := s.logger.WithDeliveryID(delivery.ID).WithTenantID(delivery.TenantID)

	radius := s.searchRadius
	tried := make(map[primitive.ObjectID]bool)

	for {
		candidates, err := s.findCandidates(ctx, delivery, radius, tried)
		if err != nil {
			return nil, err
		}

		for _, cand := range candidates {
			tried[cand.courier.ID] = true

			reserved, err := s.courierRepo.Reserve(ctx, cand.courier.ID)
			if err != nil {
				if errors.Is(err, models.ErrReservationLost) {
					// Another dispatch won this courier; move on.
					log.WithCourierID(cand.courier.ID).Debug("reservation lost, trying next candidate")
					continue
				}
				return nil, err
			}

			log.WithCourierID(reserved.ID).
				WithField("distance_m", cand.nearby.Distance.Meters()).
				WithField("radius_m", radius.Meters()).
				Info("courier reserved")
			return reserved, nil
		}

		if radius >= s.maxRadius {
			return nil, fmt.Errorf("%w: searched up to %s around %s",
				models.ErrNoCourierAvailable, s.maxRadius, delivery.Origin)
		}
		radius = models.Distance(radius.Meters() * s.widenStep)
		if radius > s.maxRadius {
			radius = s.maxRadius
		}
	}
}

// findCandidates returns eligible couriers inside the radius ranked by
// distance ascending, longest-idle first on ties. Couriers already tried in
// this assignment round are skipped.
func (s *AssignmentService) findCandidates(ctx context.Context, delivery *models.Delivery, radius models.Distance, tried map[primitive.ObjectID]bool) ([]candidate, error) {
	nearby, err := s.tracker.FindNearby(ctx, delivery.Origin, radius)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby couriers: %w", err)
	}
	if len(nearby) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, 0, len(nearby))
	byID := make(map[primitive.ObjectID]tracker.NearbyCourier, len(nearby))
	for _, n := range nearby {
		if tried[n.CourierID] {
			continue
		}
		ids = append(ids, n.CourierID)
		byID[n.CourierID] = n
	}
	if len(ids) == 0 {
		return nil, nil
	}

	couriers, err := s.courierRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(couriers))
	for _, c := range couriers {
		if c.TenantID != delivery.TenantID || !c.IsAvailable() {
			continue
		}
		candidates = append(candidates, candidate{courier: c, nearby: byID[c.ID]})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := candidates[i].nearby.Distance, candidates[j].nearby.Distance
		if di != dj {
			return di < dj
		}
		// Equal distance: the courier idle the longest goes first.
		ai, aj := candidates[i].courier.AvailableSince, candidates[j].courier.AvailableSince
		switch {
		case ai == nil:
			return false
		case aj == nil:
			return true
		default:
			return ai.Before(*aj)
		}
	})
	return candidates, nil
}
