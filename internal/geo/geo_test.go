package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeopt/internal/apperror"
)

func TestDistanceFloor(t *testing.T) {
	p := Point{Lat: 41.0082, Lng: 28.9784}
	d, err := Distance(p, p)
	require.NoError(t, err)
	assert.Equal(t, MinLegKm, d)

	// ~50 m apart: raw road distance is below the floor.
	q := Point{Lat: 41.0086, Lng: 28.9786}
	d, err = Distance(p, q)
	require.NoError(t, err)
	assert.Equal(t, MinLegKm, d)
}

func TestDistanceRoadFactor(t *testing.T) {
	// Taksim to Kadikoy, roughly 6.4 km great-circle.
	a := Point{Lat: 41.0369, Lng: 28.9850}
	b := Point{Lat: 40.9901, Lng: 29.0290}
	raw := Haversine(a, b)
	assert.InDelta(t, 6.4, raw, 0.3)

	d, err := Distance(a, b)
	require.NoError(t, err)
	assert.InDelta(t, raw*RoadFactor, d, 1e-9)
	assert.InDelta(t, d, Road(b, a), 1e-9)
}

func TestDistanceInvalid(t *testing.T) {
	ok := Point{Lat: 41, Lng: 29}
	bad := []Point{
		{Lat: 91, Lng: 0},
		{Lat: 0, Lng: -181},
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.Inf(1)},
	}
	for _, b := range bad {
		_, err := Distance(ok, b)
		assert.True(t, apperror.Is(err, apperror.CodeInvalidCoordinate), "%v", b)
		_, err = Distance(b, ok)
		assert.Error(t, err)
	}
}

func TestCentroid(t *testing.T) {
	c := Centroid([]Point{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}})
	assert.Equal(t, Point{Lat: 2, Lng: 3}, c)
	assert.Equal(t, Point{}, Centroid(nil))
}
