package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"godispatch/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// record is an immutable snapshot; updates swap the whole pointer so readers
// never observe a torn position pair.
type record struct {
	location  models.Location
	timestamp time.Time
	accuracy  float64
	speed     float64
}

// MemoryTracker keeps the latest report per courier in a sync.Map of
// *record values. Per-courier writes are independent compare-and-swap loops,
// so reporting volume from one courier cannot stall others, and FindNearby
// iterates without taking any global lock.
type MemoryTracker struct {
	records    sync.Map // primitive.ObjectID -> *record
	staleAfter time.Duration
	now        func() time.Time
}

func NewMemoryTracker(staleAfter time.Duration) *MemoryTracker {
	return &MemoryTracker{
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (t *MemoryTracker) Report(_ context.Context, report models.LocationReport) (bool, error) {
	rec := &record{
		location:  report.Location,
		timestamp: report.Timestamp,
		accuracy:  report.Accuracy,
		speed:     report.Speed,
	}

	for {
		cur, loaded := t.records.LoadOrStore(report.CourierID, rec)
		if !loaded {
			return true, nil
		}
		existing := cur.(*record)
		if report.Timestamp.Before(existing.timestamp) {
			// Out-of-order arrival; the stored report is newer by event time.
			return false, nil
		}
		if t.records.CompareAndSwap(report.CourierID, cur, rec) {
			return true, nil
		}
		// Lost a race against a concurrent report for the same courier;
		// re-read and re-compare timestamps.
	}
}

func (t *MemoryTracker) CurrentLocation(_ context.Context, courierID primitive.ObjectID) (models.LocationReport, bool, error) {
	cur, ok := t.records.Load(courierID)
	if !ok {
		return models.LocationReport{}, false, nil
	}
	rec := cur.(*record)
	return models.LocationReport{
		CourierID: courierID,
		Location:  rec.location,
		Timestamp: rec.timestamp,
		Accuracy:  rec.accuracy,
		Speed:     rec.speed,
	}, true, nil
}

func (t *MemoryTracker) FindNearby(_ context.Context, center models.Location, radius models.Distance) ([]NearbyCourier, error) {
	cutoff := t.now().Add(-t.staleAfter)

	var hits []NearbyCourier
	t.records.Range(func(key, value interface{}) bool {
		rec := value.(*record)
		if rec.timestamp.Before(cutoff) {
			return true
		}
		d := center.DistanceTo(rec.location)
		if d > radius {
			return true
		}
		hits = append(hits, NearbyCourier{
			CourierID:  key.(primitive.ObjectID),
			Location:   rec.location,
			Distance:   d,
			ReportedAt: rec.timestamp,
		})
		return true
	})

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits, nil
}

func (t *MemoryTracker) Remove(_ context.Context, courierID primitive.ObjectID) error {
	t.records.Delete(courierID)
	return nil
}

func (t *MemoryTracker) EvictStale(_ context.Context) (int, error) {
	cutoff := t.now().Add(-t.staleAfter)

	evicted := 0
	t.records.Range(func(key, value interface{}) bool {
		rec := value.(*record)
		if rec.timestamp.Before(cutoff) {
			// CompareAndDelete so a fresh report landing mid-sweep survives.
			if t.records.CompareAndDelete(key, value) {
				evicted++
			}
		}
		return true
	})
	return evicted, nil
}
