package models

import "time"

// Route is the computed path for a delivery: courier position -> pickup ->
// destination. Produced by a RouteOptimizer adapter or, in degraded mode, by
// a direct-line estimate.
type Route struct {
	StartLocation   Location      `json:"start_location" bson:"start_location"`
	EndLocation     Location      `json:"end_location" bson:"end_location"`
	Waypoints       []Location    `json:"waypoints,omitempty" bson:"waypoints,omitempty"`
	Distance        Distance      `json:"distance_meters" bson:"distance_meters"`
	Duration        time.Duration `json:"duration" bson:"duration"`
	EncodedPolyline string        `json:"encoded_polyline,omitempty" bson:"encoded_polyline,omitempty"`
	Degraded        bool          `json:"degraded" bson:"degraded"`
	ComputedAt      time.Time     `json:"computed_at" bson:"computed_at"`
}

// ETA returns the expected arrival time if the route is started at from.
func (r Route) ETA(from time.Time) time.Time {
	return from.Add(r.Duration)
}

// Points returns the full ordered point list including endpoints.
func (r Route) Points() []Location {
	pts := make([]Location, 0, len(r.Waypoints)+2)
	pts = append(pts, r.StartLocation)
	pts = append(pts, r.Waypoints...)
	pts = append(pts, r.EndLocation)
	return pts
}
