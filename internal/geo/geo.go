// Package geo holds the geolocation gate used by check-in: great-circle
// distance, the radius admission check and bounded position acquisition.
package geo

import (
	"math"
)

const (
	// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
	EarthRadiusMeters = 6371e3

	// DefaultCheckInRadius is how close a user must be to a gym to check in.
	DefaultCheckInRadius = 100.0

	// DefaultNearbyRadius bounds the nearest-gym lookup.
	DefaultNearbyRadius = 500.0
)

// Point is a WGS 84 coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether p lies within the legal coordinate ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	phi1 := a.Latitude * math.Pi / 180
	phi2 := b.Latitude * math.Pi / 180
	dPhi := (b.Latitude - a.Latitude) * math.Pi / 180
	dLambda := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// IsWithinRadius reports whether user is at most radiusMeters from target.
// The boundary is inclusive.
func IsWithinRadius(user, target Point, radiusMeters float64) bool {
	return Distance(user, target) <= radiusMeters
}

// Box is a latitude/longitude rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Contains reports whether p lies inside b, edges included.
func (b Box) Contains(p Point) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLon && p.Longitude <= b.MaxLon
}

// BoundingBox returns a rectangle enclosing every point within
// radiusMeters of center. It is a coarse prefilter for Distance and does
// not wrap across the antimeridian.
func BoundingBox(center Point, radiusMeters float64) Box {
	r := radiusMeters / EarthRadiusMeters
	dLat := r * 180 / math.Pi
	dLon := 180.0
	if s := math.Sin(r) / math.Cos(center.Latitude*math.Pi/180); s > 0 && s < 1 {
		dLon = math.Asin(s) * 180 / math.Pi
	}
	return Box{
		MinLat: math.Max(center.Latitude-dLat, -90),
		MaxLat: math.Min(center.Latitude+dLat, 90),
		MinLon: math.Max(center.Longitude-dLon, -180),
		MaxLon: math.Min(center.Longitude+dLon, 180),
	}
}
