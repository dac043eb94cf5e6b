package models

import (
	"errors"
	"math"
	"testing"
)

func mustBoundary(t *testing.T, coords [][2]float64) Boundary {
	t.Helper()
	vertices := make([]Location, len(coords))
	for i, c := range coords {
		vertices[i] = MustLocation(c[0], c[1])
	}
	b, err := NewBoundary(vertices)
	if err != nil {
		t.Fatalf("NewBoundary: %v", err)
	}
	return b
}

// A unit square around Maputo, roughly 0.1 degrees on each side.
func squareBoundary(t *testing.T) Boundary {
	return mustBoundary(t, [][2]float64{
		{-25.90, 32.50},
		{-25.90, 32.60},
		{-25.80, 32.60},
		{-25.80, 32.50},
	})
}

func TestNewBoundaryRejectsDegenerate(t *testing.T) {
	tests := []struct {
		name     string
		vertices []Location
	}{
		{"too few vertices", []Location{MustLocation(1, 1), MustLocation(2, 2)}},
		{"empty vertex", []Location{MustLocation(1, 1), {}, MustLocation(2, 2)}},
		{"zero-length edge", []Location{
			MustLocation(1, 1), MustLocation(1, 1), MustLocation(2, 2),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBoundary(tt.vertices)
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("expected ErrInvalidGeometry, got %v", err)
			}
		})
	}
}

func TestBoundaryContains(t *testing.T) {
	square := squareBoundary(t)

	tests := []struct {
		name string
		lat  float64
		lng  float64
		want bool
	}{
		{"interior point", -25.85, 32.55, true},
		{"exterior point", -25.70, 32.55, false},
		{"far away", 10.0, 100.0, false},
		{"on edge", -25.90, 32.55, true},
		{"on vertex", -25.90, 32.50, true},
		{"just outside edge", -25.9001, 32.55, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := square.Contains(MustLocation(tt.lat, tt.lng)); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.lat, tt.lng, got, tt.want)
			}
		})
	}
}

func TestBoundaryContainsConcavePolygon(t *testing.T) {
	// An L-shape; the notch at the top right is outside.
	l := mustBoundary(t, [][2]float64{
		{0.0, 0.0},
		{0.0, 4.0},
		{2.0, 4.0},
		{2.0, 2.0},
		{4.0, 2.0},
		{4.0, 0.0},
	})

	if !l.Contains(MustLocation(1.0, 1.0)) {
		t.Error("point in the wide arm should be contained")
	}
	if !l.Contains(MustLocation(1.0, 3.0)) {
		t.Error("point in the tall arm should be contained")
	}
	if l.Contains(MustLocation(3.0, 3.0)) {
		t.Error("point in the notch should not be contained")
	}
}

func TestBoundaryIntersects(t *testing.T) {
	square := squareBoundary(t)

	if !square.Intersects(square) {
		t.Error("a boundary must intersect itself")
	}

	overlapping := mustBoundary(t, [][2]float64{
		{-25.85, 32.55},
		{-25.85, 32.65},
		{-25.75, 32.65},
		{-25.75, 32.55},
	})
	if !square.Intersects(overlapping) {
		t.Error("overlapping squares should intersect")
	}

	disjoint := mustBoundary(t, [][2]float64{
		{-25.60, 32.50},
		{-25.60, 32.60},
		{-25.50, 32.60},
		{-25.50, 32.50},
	})
	if square.Intersects(disjoint) {
		t.Error("disjoint squares should not intersect")
	}

	// Fully inside: no edge crossings, containment must still be detected.
	inner := mustBoundary(t, [][2]float64{
		{-25.88, 32.52},
		{-25.88, 32.58},
		{-25.82, 32.58},
		{-25.82, 32.52},
	})
	if !square.Intersects(inner) {
		t.Error("contained square should intersect")
	}
	if !inner.Intersects(square) {
		t.Error("intersection should be symmetric")
	}
}

func TestBoundaryAreaSquareMeters(t *testing.T) {
	square := squareBoundary(t)

	// 0.1 deg of latitude is about 11.1 km; 0.1 deg of longitude at -25.85
	// shrinks by cos(lat). Expect roughly 111 km^2 scaled by cos.
	latSide := 0.1 * earthRadiusMeters * math.Pi / 180
	lngSide := latSide * math.Cos(-25.85*math.Pi/180)
	want := latSide * lngSide

	got := square.AreaSquareMeters()
	if math.Abs(got-want)/want > 0.01 {
		t.Errorf("AreaSquareMeters() = %.0f, want within 1%% of %.0f", got, want)
	}
}

func TestBoundaryGeoJSONClosesRing(t *testing.T) {
	square := squareBoundary(t)
	poly := square.GeoJSON()

	if len(poly) != 1 {
		t.Fatalf("expected one ring, got %d", len(poly))
	}
	ring := poly[0]
	if len(ring) != len(square.Vertices)+1 {
		t.Fatalf("ring length = %d, want %d", len(ring), len(square.Vertices)+1)
	}
	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		t.Error("ring must be closed (first vertex repeated at end)")
	}
}

func TestBoundaryBoundingBox(t *testing.T) {
	square := squareBoundary(t)
	sw, ne := square.BoundingBox()

	if sw.Latitude() != -25.90 || sw.Longitude() != 32.50 {
		t.Errorf("sw = %v", sw)
	}
	if ne.Latitude() != -25.80 || ne.Longitude() != 32.60 {
		t.Errorf("ne = %v", ne)
	}
}
