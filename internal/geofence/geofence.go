// Package geofence decides whether a reported position lies within the
// allowed radius of a checkpoint.
package geofence

import (
	"math"

	dErrors "tripmate/pkg/domain-errors"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distance.
const EarthRadiusMeters = 6_371_000.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// NewPoint validates coordinate ranges.
func NewPoint(lat, lon float64) (Point, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return Point{}, dErrors.New(dErrors.CodeValidation, "latitude must be within [-90, 90]")
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return Point{}, dErrors.New(dErrors.CodeValidation, "longitude must be within [-180, 180]")
	}
	return Point{Latitude: lat, Longitude: lon}, nil
}

// Distance returns the haversine great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Validate reports whether point lies within maxMeters of checkpoint.
// The boundary itself is inside.
func Validate(point, checkpoint Point, maxMeters float64) bool {
	return Distance(point, checkpoint) <= maxMeters
}

// Fence binds a checkpoint and radius so callers do not pass them around.
type Fence struct {
	Checkpoint Point
	MaxMeters  float64
}

// Contains reports whether p is inside the fence.
func (f Fence) Contains(p Point) bool {
	return Validate(p, f.Checkpoint, f.MaxMeters)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
