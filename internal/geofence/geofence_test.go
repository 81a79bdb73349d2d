package geofence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tripmate/pkg/domain-errors"
)

var checkpoint = Point{Latitude: 13.0179, Longitude: 80.2533}

// northOf returns the point exactly meters due north of p along the meridian.
func northOf(p Point, meters float64) Point {
	return Point{
		Latitude:  p.Latitude + (meters/EarthRadiusMeters)*180/math.Pi,
		Longitude: p.Longitude,
	}
}

func TestDistance(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		assert.InDelta(t, 0, Distance(checkpoint, checkpoint), 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		other := Point{Latitude: 12.9716, Longitude: 77.5946}
		assert.InDelta(t, Distance(checkpoint, other), Distance(other, checkpoint), 1e-6)
	})

	t.Run("chennai to bengaluru is roughly 290 km", func(t *testing.T) {
		other := Point{Latitude: 12.9716, Longitude: 77.5946}
		assert.InDelta(t, 290_000, Distance(checkpoint, other), 5_000)
	})

	t.Run("meridian offset matches arc length", func(t *testing.T) {
		assert.InDelta(t, 1234.5, Distance(checkpoint, northOf(checkpoint, 1234.5)), 1e-3)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		point  Point
		max    float64
		inside bool
	}{
		{name: "exact checkpoint", point: checkpoint, max: 50_000, inside: true},
		{name: "well inside", point: northOf(checkpoint, 10_000), max: 50_000, inside: true},
		{name: "just past the radius", point: northOf(checkpoint, 50_001), max: 50_000, inside: false},
		{name: "far away", point: Point{Latitude: 20.0, Longitude: 80.0}, max: 50_000, inside: false},
		{name: "zero radius at checkpoint", point: checkpoint, max: 0, inside: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.inside, Validate(tt.point, checkpoint, tt.max))
		})
	}
}

func TestValidate_BoundaryIsInside(t *testing.T) {
	p := northOf(checkpoint, 50_000)
	d := Distance(p, checkpoint)
	assert.True(t, Validate(p, checkpoint, d), "distance equal to the limit is accepted")
	assert.False(t, Validate(p, checkpoint, math.Nextafter(d, 0)))
}

func TestFence_Contains(t *testing.T) {
	f := Fence{Checkpoint: checkpoint, MaxMeters: 50_000}
	assert.True(t, f.Contains(checkpoint))
	assert.False(t, f.Contains(Point{Latitude: 20.0, Longitude: 80.0}))
}

func TestNewPoint(t *testing.T) {
	p, err := NewPoint(13.0179, 80.2533)
	require.NoError(t, err)
	assert.Equal(t, checkpoint, p)

	for _, tc := range []struct{ lat, lon float64 }{
		{91, 0}, {-91, 0}, {0, 181}, {0, -181}, {math.NaN(), 0}, {0, math.NaN()},
	} {
		_, err := NewPoint(tc.lat, tc.lon)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	}
}
