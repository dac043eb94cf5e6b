package utils

import (
	"math"

	"godispatch/internal/models"
)

func IsValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// CalculateBearing returns the initial bearing in degrees from one location
// to another.
func CalculateBearing(from, to models.Location) float64 {
	lat1Rad := from.Latitude() * math.Pi / 180
	lat2Rad := to.Latitude() * math.Pi / 180
	dLon := (to.Longitude() - from.Longitude()) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dLon)

	bearing := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}

// EstimateDuration converts a distance into travel time at the given average
// speed, falling back to a default city speed when the input is unusable.
func EstimateDuration(distance models.Distance, averageSpeedKMH float64) float64 {
	if averageSpeedKMH <= 0 {
		averageSpeedKMH = DefaultCourierSpeedKMH
	}
	return distance.Kilometers() / averageSpeedKMH * 3600 // seconds
}

// DistanceToSegment returns the shortest distance from a point to the segment
// between two locations, computed on a local planar approximation around the
// point. Used for off-route deviation checks.
func DistanceToSegment(point, a, b models.Location) models.Distance {
	metersPerDegLat := 6371000.0 * math.Pi / 180
	metersPerDegLng := metersPerDegLat * math.Cos(point.Latitude()*math.Pi/180)

	px := point.Longitude() * metersPerDegLng
	py := point.Latitude() * metersPerDegLat
	ax := a.Longitude() * metersPerDegLng
	ay := a.Latitude() * metersPerDegLat
	bx := b.Longitude() * metersPerDegLng
	by := b.Latitude() * metersPerDegLat

	dx, dy := bx-ax, by-ay
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return point.DistanceTo(a)
	}

	t := ((px-ax)*dx + (py-ay)*dy) / lengthSq
	t = math.Max(0, math.Min(1, t))

	cx, cy := ax+t*dx, ay+t*dy
	return models.Distance(math.Hypot(px-cx, py-cy))
}

// DistanceToRoute returns the minimum distance from a point to any segment of
// the route's point sequence.
func DistanceToRoute(point models.Location, route models.Route) models.Distance {
	pts := route.Points()
	if len(pts) == 1 {
		return point.DistanceTo(pts[0])
	}
	min := models.Distance(math.MaxFloat64)
	for i := 0; i < len(pts)-1; i++ {
		if d := DistanceToSegment(point, pts[i], pts[i+1]); d < min {
			min = d
		}
	}
	return min
}

// EncodePolyline encodes locations with the Google polyline algorithm.
func EncodePolyline(points []models.Location) string {
	encoded := ""
	prevLat, prevLng := 0, 0

	for _, point := range points {
		lat := int(math.Round(point.Latitude() * 1e5))
		lng := int(math.Round(point.Longitude() * 1e5))

		encoded += encodeSignedNumber(lat - prevLat)
		encoded += encodeSignedNumber(lng - prevLng)

		prevLat, prevLng = lat, lng
	}
	return encoded
}

func encodeSignedNumber(num int) string {
	sgnNum := num << 1
	if num < 0 {
		sgnNum = ^sgnNum
	}
	return encodeNumber(sgnNum)
}

func encodeNumber(num int) string {
	encoded := ""
	for num >= 0x20 {
		encoded += string(rune((0x20 | (num & 0x1f)) + 63))
		num >>= 5
	}
	encoded += string(rune(num + 63))
	return encoded
}
