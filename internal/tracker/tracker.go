package tracker

import (
	"context"
	"time"

	"godispatch/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NearbyCourier is a FindNearby hit: the courier plus the snapshot it was
// matched on.
type NearbyCourier struct {
	CourierID  primitive.ObjectID
	Location   models.Location
	Distance   models.Distance
	ReportedAt time.Time
}

// LocationTracker is the single source of truth for "where is courier X right
// now". Only the latest report per courier is retained; updates are
// last-write-wins by event timestamp, not arrival order.
type LocationTracker interface {
	// Report applies a position update unless a newer report for the same
	// courier has already been stored. applied is false when the update was
	// dropped as an out-of-order arrival.
	Report(ctx context.Context, report models.LocationReport) (applied bool, err error)

	// CurrentLocation returns the latest known report. ok is false when the
	// courier never reported or was evicted.
	CurrentLocation(ctx context.Context, courierID primitive.ObjectID) (report models.LocationReport, ok bool, err error)

	// FindNearby returns couriers whose last known position is within radius
	// of center, ordered by distance ascending. Reports older than the
	// staleness threshold are excluded even if they are the latest on record.
	FindNearby(ctx context.Context, center models.Location, radius models.Distance) ([]NearbyCourier, error)

	// Remove drops a courier's record, e.g. when going offline.
	Remove(ctx context.Context, courierID primitive.ObjectID) error

	// EvictStale drops records older than the staleness threshold and
	// returns how many were removed.
	EvictStale(ctx context.Context) (int, error)
}
