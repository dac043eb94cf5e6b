package maps

import (
	"context"
	"time"

	"godispatch/internal/models"
	"godispatch/internal/utils"
)

// RouteOptimizer computes the route a courier should drive for a delivery.
// Implementations may call an external service; callers are expected to bound
// the call with a context deadline and fall back to DirectLineEstimator when
// it fails.
type RouteOptimizer interface {
	Optimize(ctx context.Context, origin, destination models.Location, waypoints []models.Location) (*models.Route, error)
}

// DirectLineEstimator produces a degraded straight-line route: haversine
// distance through the waypoints and a duration estimate at a fixed average
// speed. It never fails and never calls out.
type DirectLineEstimator struct {
	AverageSpeedKMH float64
}

func NewDirectLineEstimator(averageSpeedKMH float64) *DirectLineEstimator {
	if averageSpeedKMH <= 0 {
		averageSpeedKMH = utils.DefaultCourierSpeedKMH
	}
	return &DirectLineEstimator{AverageSpeedKMH: averageSpeedKMH}
}

func (e *DirectLineEstimator) Optimize(ctx context.Context, origin, destination models.Location, waypoints []models.Location) (*models.Route, error) {
	points := make([]models.Location, 0, len(waypoints)+2)
	points = append(points, origin)
	points = append(points, waypoints...)
	points = append(points, destination)

	var total models.Distance
	for i := 0; i < len(points)-1; i++ {
		total = total.Add(points[i].DistanceTo(points[i+1]))
	}

	seconds := utils.EstimateDuration(total, e.AverageSpeedKMH)

	return &models.Route{
		StartLocation:   origin,
		EndLocation:     destination,
		Waypoints:       waypoints,
		Distance:        total,
		Duration:        time.Duration(seconds * float64(time.Second)),
		EncodedPolyline: utils.EncodePolyline(points),
		Degraded:        true,
		ComputedAt:      time.Now().UTC(),
	}, nil
}
