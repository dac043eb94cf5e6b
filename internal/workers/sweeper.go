package workers

import (
	"context"
	"time"

	"godispatch/internal/config"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/internal/tracker"
	"godispatch/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Redispatcher retries the dispatch flow for one delivery.
type Redispatcher interface {
	Redispatch(ctx context.Context, deliveryID primitive.ObjectID) (*models.Delivery, error)
}

// Sweeper runs the periodic maintenance loops: evicting stale tracker records
// and retrying deliveries that failed for lack of couriers within the
// re-dispatch window.
type Sweeper struct {
	tracker      tracker.LocationTracker
	deliveryRepo interfaces.DeliveryRepository
	dispatch     Redispatcher
	logger       *logger.Logger

	evictionInterval time.Duration
	sweepInterval    time.Duration
	redispatchWindow time.Duration
}

func NewSweeper(locTracker tracker.LocationTracker, deliveryRepo interfaces.DeliveryRepository, dispatch Redispatcher, trackerCfg *config.TrackerConfig, dispatchCfg *config.DispatchConfig, log *logger.Logger) *Sweeper {
	return &Sweeper{
		tracker:          locTracker,
		deliveryRepo:     deliveryRepo,
		dispatch:         dispatch,
		logger:           log,
		evictionInterval: trackerCfg.EvictionInterval,
		sweepInterval:    dispatchCfg.SweepInterval,
		redispatchWindow: dispatchCfg.RedispatchWindow,
	}
}

// Run blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	evict := time.NewTicker(s.evictionInterval)
	sweep := time.NewTicker(s.sweepInterval)
	defer evict.Stop()
	defer sweep.Stop()

	s.logger.Info("sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-evict.C:
			s.evictStale(ctx)
		case <-sweep.C:
			s.redispatchFailed(ctx)
		}
	}
}

func (s *Sweeper) evictStale(ctx context.Context) {
	evicted, err := s.tracker.EvictStale(ctx)
	if err != nil {
		s.logger.WithError(err).Error("stale eviction failed")
		return
	}
	if evicted > 0 {
		s.logger.WithField("evicted", evicted).Debug("evicted stale tracker records")
	}
}

// redispatchFailed retries only deliveries that failed because no courier was
// available, and only while they are inside the re-dispatch window. Failures
// here are logged and retried on the next tick.
func (s *Sweeper) redispatchFailed(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.redispatchWindow)
	deliveries, err := s.deliveryRepo.FindFailedSince(ctx, cutoff, models.FailureReasonNoCourier)
	if err != nil {
		s.logger.WithError(err).Error("re-dispatch sweep query failed")
		return
	}

	for _, delivery := range deliveries {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.dispatch.Redispatch(ctx, delivery.ID); err != nil {
			s.logger.WithDeliveryID(delivery.ID).WithError(err).Debug("re-dispatch attempt failed")
		} else {
			s.logger.WithDeliveryID(delivery.ID).Info("delivery re-dispatched")
		}
	}
}
