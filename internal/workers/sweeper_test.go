package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"godispatch/internal/config"
	"godispatch/internal/models"
	"godispatch/internal/tracker"
	"godispatch/internal/utils"
	"godispatch/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testSweeperConfigs(interval time.Duration) (*config.TrackerConfig, *config.DispatchConfig) {
	trackerCfg := &config.TrackerConfig{
		Backend:            "memory",
		StalenessThreshold: utils.DefaultStalenessThreshold,
		EvictionInterval:   interval,
	}
	dispatchCfg := &config.DispatchConfig{
		SearchRadiusKM:   utils.DefaultSearchRadiusKM,
		MaxRadiusKM:      utils.MaxSearchRadiusKM,
		OptimizerTimeout: utils.RouteOptimizerTimeout,
		RedispatchWindow: utils.RedispatchWindow,
		SweepInterval:    interval,
	}
	return trackerCfg, dispatchCfg
}

type fakeRedispatcher struct {
	mu    sync.Mutex
	calls []primitive.ObjectID
}

func (f *fakeRedispatcher) Redispatch(_ context.Context, id primitive.ObjectID) (*models.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return nil, nil
}

func (f *fakeRedispatcher) called() []primitive.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]primitive.ObjectID(nil), f.calls...)
}

type fakeDeliveryFinder struct {
	failed []*models.Delivery
}

func (f *fakeDeliveryFinder) Create(context.Context, *models.Delivery) error { return nil }
func (f *fakeDeliveryFinder) GetByID(context.Context, primitive.ObjectID) (*models.Delivery, error) {
	return nil, models.ErrDeliveryNotFound
}
func (f *fakeDeliveryFinder) Save(context.Context, *models.Delivery) error { return nil }
func (f *fakeDeliveryFinder) FindActiveByCourier(context.Context, primitive.ObjectID) (*models.Delivery, error) {
	return nil, models.ErrDeliveryNotFound
}
func (f *fakeDeliveryFinder) FindByTenantAndStatus(context.Context, primitive.ObjectID, models.DeliveryStatus) ([]*models.Delivery, error) {
	return nil, nil
}

func (f *fakeDeliveryFinder) FindFailedSince(_ context.Context, cutoff time.Time, reason string) ([]*models.Delivery, error) {
	var out []*models.Delivery
	for _, d := range f.failed {
		if d.FailureReason == reason && d.FirstFailedAt != nil && !d.FirstFailedAt.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}

func failedDelivery(t *testing.T, reason string, failedAgo time.Duration) *models.Delivery {
	t.Helper()
	d, err := models.NewDelivery(primitive.NewObjectID(), primitive.NewObjectID(),
		models.MustLocation(-25.85, 32.55), models.MustLocation(-25.86, 32.58))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Fail(reason); err != nil {
		t.Fatal(err)
	}
	at := time.Now().UTC().Add(-failedAgo)
	d.FailedAt = &at
	d.FirstFailedAt = &at
	return d
}

func TestRedispatchFailedFiltersByReasonAndWindow(t *testing.T) {
	retryable := failedDelivery(t, models.FailureReasonNoCourier, time.Minute)
	expired := failedDelivery(t, models.FailureReasonNoCourier, time.Hour)
	cancelled := failedDelivery(t, models.FailureReasonCancelled, time.Minute)

	// Retried an hour ago and failed again just now: the first failure is what
	// counts, so it must have aged out despite the fresh FailedAt.
	retried := failedDelivery(t, models.FailureReasonNoCourier, time.Hour)
	now := time.Now().UTC()
	retried.FailedAt = &now

	repo := &fakeDeliveryFinder{failed: []*models.Delivery{retryable, expired, cancelled, retried}}
	dispatcher := &fakeRedispatcher{}
	trackerCfg, dispatchCfg := testSweeperConfigs(time.Minute)
	s := NewSweeper(tracker.NewMemoryTracker(5*time.Minute), repo, dispatcher, trackerCfg, dispatchCfg, logger.NewTestLogger())

	s.redispatchFailed(context.Background())

	calls := dispatcher.called()
	if len(calls) != 1 || calls[0] != retryable.ID {
		t.Errorf("redispatched %v, want only %s", calls, retryable.ID.Hex())
	}
}

func TestEvictStaleDropsOldRecords(t *testing.T) {
	tr := tracker.NewMemoryTracker(time.Minute)
	ctx := context.Background()

	stale := primitive.NewObjectID()
	tr.Report(ctx, models.LocationReport{
		CourierID: stale,
		Location:  models.MustLocation(-25.85, 32.55),
		Timestamp: time.Now().UTC().Add(-time.Hour),
	})

	trackerCfg, dispatchCfg := testSweeperConfigs(time.Minute)
	s := NewSweeper(tr, &fakeDeliveryFinder{}, &fakeRedispatcher{}, trackerCfg, dispatchCfg, logger.NewTestLogger())
	s.evictStale(ctx)

	if _, ok, _ := tr.CurrentLocation(ctx, stale); ok {
		t.Error("stale record survived the sweep")
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	trackerCfg, dispatchCfg := testSweeperConfigs(5 * time.Millisecond)
	s := NewSweeper(tracker.NewMemoryTracker(time.Minute), &fakeDeliveryFinder{}, &fakeRedispatcher{}, trackerCfg, dispatchCfg, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancellation")
	}
}
