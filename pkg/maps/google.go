package maps

import (
	"context"
	"fmt"
	"time"

	"godispatch/internal/models"

	"googlemaps.github.io/maps"
)

// GoogleRouteOptimizer resolves routes through the Google Directions API.
type GoogleRouteOptimizer struct {
	client *maps.Client
}

func NewGoogleRouteOptimizer(apiKey string) (*GoogleRouteOptimizer, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}
	return &GoogleRouteOptimizer{client: client}, nil
}

func (g *GoogleRouteOptimizer) Optimize(ctx context.Context, origin, destination models.Location, waypoints []models.Location) (*models.Route, error) {
	req := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Latitude(), origin.Longitude()),
		Destination: fmt.Sprintf("%f,%f", destination.Latitude(), destination.Longitude()),
		Mode:        maps.TravelModeDriving,
	}

	if len(waypoints) > 0 {
		wps := make([]string, len(waypoints))
		for i, wp := range waypoints {
			wps[i] = fmt.Sprintf("%f,%f", wp.Latitude(), wp.Longitude())
		}
		req.Waypoints = wps
	}

	resp, _, err := g.client.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("directions request returned no routes")
	}

	best := resp[0]
	var distanceMeters float64
	var duration time.Duration
	for _, leg := range best.Legs {
		distanceMeters += float64(leg.Distance.Meters)
		duration += leg.Duration
	}

	return &models.Route{
		StartLocation:   origin,
		EndLocation:     destination,
		Waypoints:       waypoints,
		Distance:        models.Distance(distanceMeters),
		Duration:        duration,
		EncodedPolyline: best.OverviewPolyline.Points,
		ComputedAt:      time.Now().UTC(),
	}, nil
}
