// Package geo provides great-circle distance and bearing calculations
// for geographic coordinates in the WGS84 system.
package geo

import "math"

// Constants for coordinate calculations and unit conversion.
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusM is the Earth's mean radius in meters (WGS84)
	EarthRadiusM = 6371000.0

	// FeetToMeters converts feet to meters
	FeetToMeters = 0.3048

	// MetersToFeet converts meters to feet
	MetersToFeet = 3.28084

	// KnotsToMetersPerSecond converts knots to meters per second
	KnotsToMetersPerSecond = 0.514444444

	// FeetPerMinuteToMetersPerSecond converts ft/min to m/s
	FeetPerMinuteToMetersPerSecond = 5.08e-3
)

// Coordinate represents a position on Earth's surface.
type Coordinate struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64
}

// Distance calculates the great-circle distance between two points
// using the Haversine formula. Returns distance in meters.
//
// The intermediate value is clamped to [0, 1] so that floating point
// rounding near antipodal points cannot push the inner square root out
// of its domain. Any two valid coordinates produce a finite
// non-negative result; out-of-range inputs are the caller's problem.
func Distance(a, b Coordinate) float64 {
	lat1Rad := a.Latitude * DegreesToRadians
	lon1Rad := a.Longitude * DegreesToRadians
	lat2Rad := b.Latitude * DegreesToRadians
	lon2Rad := b.Longitude * DegreesToRadians

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	// Haversine formula
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Clamp against rounding: h may land a hair outside [0, 1]
	if h < 0 {
		h = 0
	} else if h > 1 {
		h = 1
	}

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusM * c
}

// Bearing calculates the initial bearing (forward azimuth) from one point
// to another along a great circle.
// Returns bearing in degrees (0-360), where 0/360 = North, 90 = East.
func Bearing(from, to Coordinate) float64 {
	lat1 := from.Latitude * DegreesToRadians
	lon1 := from.Longitude * DegreesToRadians
	lat2 := to.Latitude * DegreesToRadians
	lon2 := to.Longitude * DegreesToRadians

	dLon := lon2 - lon1
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := math.Atan2(y, x) * RadiansToDegrees

	// Normalize to 0-360
	if bearing < 0 {
		bearing += 360
	}

	return bearing
}
