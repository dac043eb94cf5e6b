package models

import (
	"fmt"
	"math"
)

// Location is a WGS84 point stored GeoJSON-style ([lng, lat]) so MongoDB
// 2dsphere indexes can consume it directly. Treat values as immutable.
type Location struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"required,len=2"`
}

func NewLocation(lat, lng float64) (Location, error) {
	if lat < -90 || lat > 90 {
		return Location{}, fmt.Errorf("%w: latitude %f out of range [-90, 90]", ErrInvalidGeometry, lat)
	}
	if lng < -180 || lng > 180 {
		return Location{}, fmt.Errorf("%w: longitude %f out of range [-180, 180]", ErrInvalidGeometry, lng)
	}
	return Location{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
	}, nil
}

// MustLocation panics on invalid coordinates. Intended for fixtures and
// literals that are known valid.
func MustLocation(lat, lng float64) Location {
	l, err := NewLocation(lat, lng)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) >= 2 {
		return l.Coordinates[1]
	}
	return 0
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) >= 1 {
		return l.Coordinates[0]
	}
	return 0
}

func (l Location) IsZero() bool {
	return len(l.Coordinates) == 0
}

func (l Location) Equal(other Location) bool {
	return l.Latitude() == other.Latitude() && l.Longitude() == other.Longitude()
}

// DistanceTo returns the haversine distance to another location.
func (l Location) DistanceTo(other Location) Distance {
	lat1Rad := l.Latitude() * math.Pi / 180
	lon1Rad := l.Longitude() * math.Pi / 180
	lat2Rad := other.Latitude() * math.Pi / 180
	lon2Rad := other.Longitude() * math.Pi / 180

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return Distance(earthRadiusMeters * c)
}

func (l Location) String() string {
	return fmt.Sprintf("%.6f,%.6f", l.Latitude(), l.Longitude())
}

const earthRadiusMeters = 6371000.0
