package models

import (
	"fmt"
	"math"
)

// Boundary is a simple (non-self-intersecting) closed polygon given as an
// ordered ring of vertices. The last vertex connects implicitly back to the
// first. Points exactly on an edge count as contained.
type Boundary struct {
	Vertices []Location `json:"vertices" bson:"vertices" validate:"required,min=3"`
}

const onSegmentEpsilon = 1e-9

func NewBoundary(vertices []Location) (Boundary, error) {
	if len(vertices) < 3 {
		return Boundary{}, fmt.Errorf("%w: boundary needs at least 3 vertices, got %d", ErrInvalidGeometry, len(vertices))
	}
	for i, v := range vertices {
		if v.IsZero() {
			return Boundary{}, fmt.Errorf("%w: vertex %d is empty", ErrInvalidGeometry, i)
		}
		next := vertices[(i+1)%len(vertices)]
		if v.Equal(next) {
			return Boundary{}, fmt.Errorf("%w: zero-length edge at vertex %d", ErrInvalidGeometry, i)
		}
	}
	ring := make([]Location, len(vertices))
	copy(ring, vertices)
	return Boundary{Vertices: ring}, nil
}

// Contains reports whether a point lies inside the polygon using the
// ray-casting odd-even rule. Edge membership is inclusive: a point on any
// edge or vertex is contained.
func (b Boundary) Contains(point Location) bool {
	x, y := point.Longitude(), point.Latitude()

	j := len(b.Vertices) - 1
	inside := false
	for i := 0; i < len(b.Vertices); i++ {
		xi, yi := b.Vertices[i].Longitude(), b.Vertices[i].Latitude()
		xj, yj := b.Vertices[j].Longitude(), b.Vertices[j].Latitude()

		if pointOnSegment(x, y, xi, yi, xj, yj) {
			return true
		}
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Intersects reports whether two polygons overlap: any pair of edges crosses,
// or one polygon's vertex lies inside the other (which covers full
// containment without edge crossings).
func (b Boundary) Intersects(other Boundary) bool {
	for i := range b.Vertices {
		a1 := b.Vertices[i]
		a2 := b.Vertices[(i+1)%len(b.Vertices)]
		for j := range other.Vertices {
			b1 := other.Vertices[j]
			b2 := other.Vertices[(j+1)%len(other.Vertices)]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	for _, v := range b.Vertices {
		if other.Contains(v) {
			return true
		}
	}
	for _, v := range other.Vertices {
		if b.Contains(v) {
			return true
		}
	}
	return false
}

// AreaSquareMeters computes the polygon area with the shoelace formula over a
// local equirectangular projection anchored at the ring's mean latitude. Good
// enough for city-scale service areas; PostGIS-grade accuracy is not a goal.
func (b Boundary) AreaSquareMeters() float64 {
	refLat := 0.0
	for _, v := range b.Vertices {
		refLat += v.Latitude()
	}
	refLat = refLat / float64(len(b.Vertices)) * math.Pi / 180

	metersPerDegLat := earthRadiusMeters * math.Pi / 180
	metersPerDegLng := metersPerDegLat * math.Cos(refLat)

	area := 0.0
	n := len(b.Vertices)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		xi := b.Vertices[i].Longitude() * metersPerDegLng
		yi := b.Vertices[i].Latitude() * metersPerDegLat
		xj := b.Vertices[j].Longitude() * metersPerDegLng
		yj := b.Vertices[j].Latitude() * metersPerDegLat
		area += xi*yj - xj*yi
	}
	return math.Abs(area) / 2
}

// Centroid returns the arithmetic mean of the vertices.
func (b Boundary) Centroid() Location {
	var sumLat, sumLng float64
	for _, v := range b.Vertices {
		sumLat += v.Latitude()
		sumLng += v.Longitude()
	}
	n := float64(len(b.Vertices))
	return Location{Type: "Point", Coordinates: []float64{sumLng / n, sumLat / n}}
}

// BoundingBox returns southwest and northeast corners of the ring.
func (b Boundary) BoundingBox() (sw, ne Location) {
	minLat, maxLat := b.Vertices[0].Latitude(), b.Vertices[0].Latitude()
	minLng, maxLng := b.Vertices[0].Longitude(), b.Vertices[0].Longitude()
	for _, v := range b.Vertices[1:] {
		minLat = math.Min(minLat, v.Latitude())
		maxLat = math.Max(maxLat, v.Latitude())
		minLng = math.Min(minLng, v.Longitude())
		maxLng = math.Max(maxLng, v.Longitude())
	}
	sw = Location{Type: "Point", Coordinates: []float64{minLng, minLat}}
	ne = Location{Type: "Point", Coordinates: []float64{maxLng, maxLat}}
	return sw, ne
}

// GeoJSON returns the ring as a closed GeoJSON polygon coordinate array
// (first vertex repeated at the end), for $geoIntersects queries.
func (b Boundary) GeoJSON() [][][]float64 {
	ring := make([][]float64, 0, len(b.Vertices)+1)
	for _, v := range b.Vertices {
		ring = append(ring, []float64{v.Longitude(), v.Latitude()})
	}
	ring = append(ring, []float64{b.Vertices[0].Longitude(), b.Vertices[0].Latitude()})
	return [][][]float64{ring}
}

func pointOnSegment(px, py, x1, y1, x2, y2 float64) bool {
	cross := (x2-x1)*(py-y1) - (y2-y1)*(px-x1)
	if math.Abs(cross) > onSegmentEpsilon {
		return false
	}
	return px >= math.Min(x1, x2)-onSegmentEpsilon && px <= math.Max(x1, x2)+onSegmentEpsilon &&
		py >= math.Min(y1, y2)-onSegmentEpsilon && py <= math.Max(y1, y2)+onSegmentEpsilon
}

func segmentsIntersect(a1, a2, b1, b2 Location) bool {
	d1 := orientation(b1, b2, a1)
	d2 := orientation(b1, b2, a2)
	d3 := orientation(a1, a2, b1)
	d4 := orientation(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	if d1 == 0 && pointOnSegment(a1.Longitude(), a1.Latitude(), b1.Longitude(), b1.Latitude(), b2.Longitude(), b2.Latitude()) {
		return true
	}
	if d2 == 0 && pointOnSegment(a2.Longitude(), a2.Latitude(), b1.Longitude(), b1.Latitude(), b2.Longitude(), b2.Latitude()) {
		return true
	}
	if d3 == 0 && pointOnSegment(b1.Longitude(), b1.Latitude(), a1.Longitude(), a1.Latitude(), a2.Longitude(), a2.Latitude()) {
		return true
	}
	if d4 == 0 && pointOnSegment(b2.Longitude(), b2.Latitude(), a1.Longitude(), a1.Latitude(), a2.Longitude(), a2.Latitude()) {
		return true
	}
	return false
}

func orientation(p, q, r Location) float64 {
	return (q.Longitude()-p.Longitude())*(r.Latitude()-p.Latitude()) -
		(q.Latitude()-p.Latitude())*(r.Longitude()-p.Longitude())
}
