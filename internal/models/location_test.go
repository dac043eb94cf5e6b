package models

import (
	"errors"
	"math"
	"testing"
)

func TestNewLocationValidatesRange(t *testing.T) {
	if _, err := NewLocation(-25.85, 32.55); err != nil {
		t.Fatalf("valid coordinates rejected: %v", err)
	}
	if _, err := NewLocation(91, 0); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("latitude 91: %v", err)
	}
	if _, err := NewLocation(0, -181); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("longitude -181: %v", err)
	}
}

func TestLocationStoresGeoJSONOrder(t *testing.T) {
	l := MustLocation(-25.85, 32.55)
	if l.Type != "Point" {
		t.Errorf("type = %q", l.Type)
	}
	// GeoJSON order is [lng, lat].
	if l.Coordinates[0] != 32.55 || l.Coordinates[1] != -25.85 {
		t.Errorf("coordinates = %v", l.Coordinates)
	}
}

func TestDistanceToKnownPairs(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Location
		wantKM float64
	}{
		{"same point", MustLocation(-25.85, 32.55), MustLocation(-25.85, 32.55), 0},
		{"one degree of latitude", MustLocation(0, 0), MustLocation(1, 0), 111.2},
		{"maputo to matola", MustLocation(-25.9653, 32.5892), MustLocation(-25.9622, 32.4589), 13.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.DistanceTo(tt.b).Kilometers()
			if math.Abs(got-tt.wantKM) > tt.wantKM*0.01+0.01 {
				t.Errorf("distance = %.2f km, want ~%.2f", got, tt.wantKM)
			}
		})
	}
}

func TestDistanceConstructors(t *testing.T) {
	d, err := Kilometers(3)
	if err != nil {
		t.Fatal(err)
	}
	if d.Meters() != 3000 {
		t.Errorf("Meters() = %v", d.Meters())
	}

	if _, err := Meters(-1); err == nil {
		t.Error("negative distance must be rejected")
	}
}
