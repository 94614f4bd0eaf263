package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPointConvertsDegrees(t *testing.T) {
	p := NewPoint(1.0, 2.0, 3.0)
	assert.Equal(t, Radians(1.0), p.Lat)
	assert.Equal(t, Radians(2.0), p.Lon)
	assert.Equal(t, 3.0, p.Elevation)

	lat, lon := p.Degrees()
	assert.InDelta(t, 1.0, lat, 1e-12)
	assert.InDelta(t, 2.0, lon, 1e-12)
}

func TestNewPointNormalizesLongitude(t *testing.T) {
	tests := []struct {
		lon  float64
		want float64
	}{
		{180, 180},
		{-180, 180},
		{190, -170},
		{-190, 170},
		{45, 45},
	}
	for _, tt := range tests {
		p := NewPoint(0, tt.lon, 0)
		_, got := p.Degrees()
		assert.InDelta(t, tt.want, got, 1e-9, "lon %v", tt.lon)
	}
}

func TestDistanceMeters(t *testing.T) {
	assert.Equal(t, 0.0, Point{}.DistanceMeters(Point{}))

	d := NewPoint(1.0, 2.0, 0).DistanceMeters(NewPoint(1.0, 3.0, 0))
	assert.InDelta(t, 111178.144, d, 0.001)
}

func TestDistanceOneDegreeAlongMeridian(t *testing.T) {
	pairs := [][4]float64{
		{89, 0, 90, 0},
		{81, 2, 80, 2},
		{71, 2, 70, 2},
		{61, 2, 60, 2},
		{51, 2, 50, 2},
		{46, 2, 45, 2},
		{41, 2, 40, 2},
		{31, 2, 30, 2},
		{21, 2, 20, 2},
		{11, 2, 10, 2},
		{1, 2, 0, 2},
		{0, 2, 1, 2},
		{0, -20, 1, -20},
	}
	for _, pr := range pairs {
		a := NewPoint(pr[0], pr[1], 3)
		b := NewPoint(pr[2], pr[3], 3)
		assert.InDelta(t, 111195.080, a.DistanceMeters(b), 0.001, "%v", pr)
	}
}

func TestDistanceAntipodalIsStable(t *testing.T) {
	d := NewPoint(0, 0, 0).DistanceMeters(NewPoint(0, 180, 0))
	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, math.Pi*EarthRadius, d, 1e-6)
}

func TestBearing(t *testing.T) {
	origin := NewPoint(0, 90, 0)
	tests := []struct {
		name    string
		to      Point
		degrees float64
		signed  float64
	}{
		{"north", NewPoint(1, 90, 0), 0, 0},
		{"east", NewPoint(0, 91, 0), 90, 90},
		{"west", NewPoint(0, 89, 0), 270, -90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.degrees, origin.BearingDegrees(tt.to), 0.0005)
			assert.InDelta(t, tt.signed, Degrees(origin.BearingRadians(tt.to)), 0.0005)
		})
	}

	south := NewPoint(1, 90, 0).BearingDegrees(NewPoint(0, 90, 0))
	assert.InDelta(t, 180, south, 0.0005)
}

func TestElevationAndSlope(t *testing.T) {
	low := NewPoint(0, 90, 99)
	high := NewPoint(0, 89, 100)

	assert.Equal(t, 1.0, low.ElevationDiff(high))
	assert.Equal(t, -1.0, high.ElevationDiff(low))
	assert.Equal(t, 0.0, NewPoint(0, 90, 0).ElevationDiff(NewPoint(0, 89, 0)))

	d := low.DistanceMeters(high)
	assert.InDelta(t, math.Atan2(1, d), low.SlopeRadians(high), 1e-15)
	assert.InDelta(t, 100/d, low.SlopePercent(high), 1e-12)
	assert.Less(t, high.SlopeRadians(low), 0.0)
}

func TestSlopeOfCoincidentPoints(t *testing.T) {
	a := NewPoint(10, 20, 5)
	assert.Equal(t, 0.0, a.SlopePercent(NewPoint(10, 20, 15)))
	assert.Equal(t, 0.0, a.SlopeRadians(a))
	assert.InDelta(t, math.Pi/2, a.SlopeRadians(NewPoint(10, 20, 15)), 1e-15)
}

func TestProjectArguments(t *testing.T) {
	origin := NewPoint(10, 20, 3)
	brg, dist := 15.0, 1.0

	_, err := Project(origin, &brg, nil, EarthRadius)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidProjection))

	_, err = Project(origin, nil, &dist, EarthRadius)
	assert.ErrorIs(t, err, ErrInvalidProjection)

	same, err := Project(origin, nil, nil, EarthRadius)
	require.NoError(t, err)
	assert.Equal(t, origin, same)

	zero := 0.0
	p, err := Project(origin, &brg, &zero, EarthRadius)
	require.NoError(t, err)
	assert.InDelta(t, origin.Lat, p.Lat, 1e-15)
	assert.InDelta(t, origin.Lon, p.Lon, 1e-15)
	assert.Equal(t, origin.Elevation, p.Elevation)
}

func TestDestinationInverseConsistency(t *testing.T) {
	targets := [][2]Point{
		{NewPoint(10, 20, 3), NewPoint(11, 20, 3)},
		{NewPoint(45, 7, 0), NewPoint(45.01, 7.02, 0)},
		{NewPoint(-33.9, 151.2, 0), NewPoint(-34.2, 150.8, 0)},
		{NewPoint(0, 179.9, 0), NewPoint(0.1, -179.9, 0)},
	}
	for _, tt := range targets {
		from, to := tt[0], tt[1]
		brg := from.BearingDegrees(to)
		dist := from.DistanceMeters(to)

		got, err := Project(from, &brg, &dist, EarthRadius)
		require.NoError(t, err)
		assert.InDelta(t, to.Lat, got.Lat, 1e-10)
		assert.InDelta(t, to.Lon, got.Lon, 1e-10)
	}
}

func TestDestinationDefaultsRadius(t *testing.T) {
	from := NewPoint(50, 5, 0)
	assert.Equal(t, from.Destination(33, 1500, EarthRadius), from.Destination(33, 1500, 0))
}
