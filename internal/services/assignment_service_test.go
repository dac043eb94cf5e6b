package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"godispatch/internal/models"
	"godispatch/internal/tracker"
	"godispatch/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAssignmentFixture(t *testing.T) (*AssignmentService, *fakeCourierRepo, *tracker.MemoryTracker) {
	t.Helper()
	repo := newFakeCourierRepo()
	tr := tracker.NewMemoryTracker(5 * time.Minute)
	svc := NewAssignmentService(repo, tr, testDispatchConfig(), logger.NewTestLogger())
	return svc, repo, tr
}

func addAvailableCourier(t *testing.T, repo *fakeCourierRepo, tr *tracker.MemoryTracker, tenantID primitive.ObjectID, lat, lng float64, availableSince time.Time) *models.Courier {
	t.Helper()
	courier, err := models.NewCourier(tenantID, "courier", "", "motorcycle", 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := courier.GoOnline(); err != nil {
		t.Fatal(err)
	}
	courier.AvailableSince = &availableSince
	loc := models.MustLocation(lat, lng)
	courier.CurrentLocation = &loc
	courier.CollectEvents()
	repo.add(courier)

	_, err = tr.Report(context.Background(), models.LocationReport{
		CourierID: courier.ID,
		Location:  loc,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return courier
}

func pendingDelivery(t *testing.T, tenantID primitive.ObjectID) *models.Delivery {
	t.Helper()
	d, err := models.NewDelivery(tenantID, primitive.NewObjectID(),
		models.MustLocation(-25.85, 32.55), models.MustLocation(-25.86, 32.58))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestAssignCourierPicksNearest(t *testing.T) {
	svc, repo, tr := newAssignmentFixture(t)
	tenantID := primitive.NewObjectID()
	now := time.Now().UTC()

	farther := addAvailableCourier(t, repo, tr, tenantID, -25.87, 32.55, now) // ~2.2 km
	nearest := addAvailableCourier(t, repo, tr, tenantID, -25.852, 32.55, now) // ~220 m
	_ = farther

	courier, err := svc.AssignCourier(context.Background(), pendingDelivery(t, tenantID))
	if err != nil {
		t.Fatalf("AssignCourier: %v", err)
	}
	if courier.ID != nearest.ID {
		t.Errorf("assigned %s, want nearest %s", courier.ID.Hex(), nearest.ID.Hex())
	}
	if got := repo.get(courier.ID); got.Status != models.CourierStatusAssigned {
		t.Errorf("reserved courier status = %s", got.Status)
	}
}

func TestAssignCourierTieBreaksOnIdleTime(t *testing.T) {
	svc, repo, tr := newAssignmentFixture(t)
	tenantID := primitive.NewObjectID()
	now := time.Now().UTC()

	// Same position, different idle times: the longer-idle one wins.
	recent := addAvailableCourier(t, repo, tr, tenantID, -25.852, 32.55, now.Add(-time.Minute))
	longIdle := addAvailableCourier(t, repo, tr, tenantID, -25.852, 32.55, now.Add(-time.Hour))
	_ = recent

	courier, err := svc.AssignCourier(context.Background(), pendingDelivery(t, tenantID))
	if err != nil {
		t.Fatalf("AssignCourier: %v", err)
	}
	if courier.ID != longIdle.ID {
		t.Error("equal-distance tie must go to the longest-idle courier")
	}
}

func TestAssignCourierWidensRadius(t *testing.T) {
	svc, repo, tr := newAssignmentFixture(t)
	tenantID := primitive.NewObjectID()
	now := time.Now().UTC()

	// ~11 km away: outside the initial 3 km radius, inside the 12 km round.
	distant := addAvailableCourier(t, repo, tr, tenantID, -25.95, 32.55, now)

	courier, err := svc.AssignCourier(context.Background(), pendingDelivery(t, tenantID))
	if err != nil {
		t.Fatalf("AssignCourier: %v", err)
	}
	if courier.ID != distant.ID {
		t.Error("widened search should find the distant courier")
	}
}

func TestAssignCourierHonorsConfiguredMaxRadius(t *testing.T) {
	repo := newFakeCourierRepo()
	tr := tracker.NewMemoryTracker(5 * time.Minute)
	cfg := testDispatchConfig()
	cfg.MaxRadiusKM = 5
	svc := NewAssignmentService(repo, tr, cfg, logger.NewTestLogger())
	tenantID := primitive.NewObjectID()

	// ~11 km away: reachable under the default cap, not under this one.
	addAvailableCourier(t, repo, tr, tenantID, -25.95, 32.55, time.Now().UTC())

	_, err := svc.AssignCourier(context.Background(), pendingDelivery(t, tenantID))
	if !errors.Is(err, models.ErrNoCourierAvailable) {
		t.Errorf("expected ErrNoCourierAvailable under the 5 km cap, got %v", err)
	}
}

func TestAssignCourierNoneAvailable(t *testing.T) {
	svc, repo, tr := newAssignmentFixture(t)
	tenantID := primitive.NewObjectID()

	// A courier exists but belongs to another tenant.
	addAvailableCourier(t, repo, tr, primitive.NewObjectID(), -25.852, 32.55, time.Now().UTC())

	_, err := svc.AssignCourier(context.Background(), pendingDelivery(t, tenantID))
	if !errors.Is(err, models.ErrNoCourierAvailable) {
		t.Errorf("expected ErrNoCourierAvailable, got %v", err)
	}
}

func TestAssignCourierSkipsBusyCouriers(t *testing.T) {
	svc, repo, tr := newAssignmentFixture(t)
	tenantID := primitive.NewObjectID()
	now := time.Now().UTC()

	busy := addAvailableCourier(t, repo, tr, tenantID, -25.851, 32.55, now)
	free := addAvailableCourier(t, repo, tr, tenantID, -25.87, 32.55, now)

	// Take the near courier out of play first.
	if _, err := repo.Reserve(context.Background(), busy.ID); err != nil {
		t.Fatal(err)
	}

	courier, err := svc.AssignCourier(context.Background(), pendingDelivery(t, tenantID))
	if err != nil {
		t.Fatalf("AssignCourier: %v", err)
	}
	if courier.ID != free.ID {
		t.Error("busy courier must be skipped for the farther free one")
	}
}

// N concurrent dispatches over one available courier: exactly one wins.
func TestAssignCourierConcurrentSingleWinner(t *testing.T) {
	svc, repo, tr := newAssignmentFixture(t)
	tenantID := primitive.NewObjectID()

	only := addAvailableCourier(t, repo, tr, tenantID, -25.852, 32.55, time.Now().UTC())

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	losses := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AssignCourier(context.Background(), pendingDelivery(t, tenantID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, models.ErrNoCourierAvailable):
				losses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if losses != attempts-1 {
		t.Errorf("losses = %d, want %d", losses, attempts-1)
	}
	if got := repo.get(only.ID); got.ActiveDeliveries != 1 {
		t.Errorf("courier active deliveries = %d, want 1", got.ActiveDeliveries)
	}
}
