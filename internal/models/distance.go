package models

import "fmt"

// Distance is a non-negative length in meters.
type Distance float64

func Meters(m float64) (Distance, error) {
	if m < 0 {
		return 0, fmt.Errorf("distance cannot be negative: %f", m)
	}
	return Distance(m), nil
}

func Kilometers(km float64) (Distance, error) {
	return Meters(km * 1000)
}

func (d Distance) Meters() float64 {
	return float64(d)
}

func (d Distance) Kilometers() float64 {
	return float64(d) / 1000
}

func (d Distance) Add(other Distance) Distance {
	return d + other
}

func (d Distance) LessThan(other Distance) bool {
	return d < other
}

func (d Distance) GreaterThan(other Distance) bool {
	return d > other
}

func (d Distance) String() string {
	if d >= 1000 {
		return fmt.Sprintf("%.2f km", d.Kilometers())
	}
	return fmt.Sprintf("%.0f m", float64(d))
}
