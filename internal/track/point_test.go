package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-simulator/internal/geo"
)

func fullPoint() Point {
	return Point{
		Point:         geo.Point{Lat: 3, Lon: 4, Elevation: 2},
		Index:         1,
		TotalDistance: 6,
		Distance:      7,
		Slope:         8,
		Bearing:       5,
		Speed:         9,
		HeartRate:     10,
		Watts:         11,
		Radius:        12,
		Time:          time.Date(2021, 6, 15, 8, 30, 13, 0, time.UTC),
	}
}

func TestZeroPoint(t *testing.T) {
	var p Point
	assert.Equal(t, 0, p.Index)
	assert.Equal(t, 0.0, p.Lat)
	assert.Equal(t, 0.0, p.Lon)
	assert.Equal(t, 0.0, p.Elevation)
	assert.Equal(t, 0.0, p.TotalDistance)
	assert.Equal(t, 0.0, p.Radius)
	assert.True(t, p.Time.IsZero())
}

func TestNewPoint(t *testing.T) {
	p := NewPoint(2.0, 1.0, 3.0)
	assert.Equal(t, geo.Radians(2.0), p.Lat)
	assert.Equal(t, geo.Radians(1.0), p.Lon)
	assert.Equal(t, 3.0, p.Elevation)

	lat, lon, brg, slp := p.Degrees()
	assert.InDelta(t, 2.0, lat, 1e-12)
	assert.InDelta(t, 1.0, lon, 1e-12)
	assert.Equal(t, 0.0, brg)
	assert.Equal(t, 0.0, slp)
}

func TestEqual(t *testing.T) {
	p1 := fullPoint()
	p2 := fullPoint()
	assert.True(t, p1.Equal(p1))
	assert.True(t, p1.Equal(p2))
	assert.True(t, p2.Equal(p1))

	p2.TotalDistance++
	assert.False(t, p1.Equal(p2))
	assert.False(t, p2.Equal(p1))
	p2.TotalDistance = p1.TotalDistance
	assert.True(t, p1.Equal(p2))

	p2.Time = p1.Time.In(time.FixedZone("CEST", 2*3600))
	assert.True(t, p1.Equal(p2), "same instant in another zone")

	p2.Time = p1.Time.Add(time.Second)
	assert.False(t, p1.Equal(p2))

	p2 = fullPoint()
	p2.Elevation = 99
	assert.False(t, p1.Equal(p2))
}

func TestEqualPoints(t *testing.T) {
	p1 := fullPoint()
	p2 := fullPoint()
	p2.TotalDistance = p1.TotalDistance + 1

	l1 := []Point{p1, p1}
	l2 := []Point{p1, p2}
	l3 := []Point{p2, p1}

	assert.True(t, EqualPoints(l1, l1))
	assert.True(t, EqualPoints(l2, l2))
	assert.True(t, EqualPoints(l3, l3))
	assert.False(t, EqualPoints(l1, l2))
	assert.False(t, EqualPoints(l2, l1))
	assert.False(t, EqualPoints(l1, l3))
	assert.False(t, EqualPoints(l3, l1))
	assert.False(t, EqualPoints(l1, l1[:1]))
	assert.True(t, EqualPoints(nil, []Point{}))
}

func TestProject(t *testing.T) {
	origin := NewPoint(10, 20, 3)
	brg := 15.0

	_, err := Project(origin.Point, &brg, nil, 0)
	assert.ErrorIs(t, err, geo.ErrInvalidProjection)

	zero := 0.0
	same, err := Project(origin.Point, &brg, &zero, 0)
	require.NoError(t, err)
	assert.InDelta(t, origin.Lat, same.Lat, 1e-15)
	assert.InDelta(t, origin.Lon, same.Lon, 1e-15)
	assert.Equal(t, origin.Elevation, same.Elevation)
	assert.Equal(t, geo.EarthRadius, same.Radius)
	assert.Equal(t, geo.Radians(15), same.Bearing)

	target := NewPoint(11, 20, 3)
	b := origin.BearingDegrees(target.Point)
	d := origin.DistanceMeters(target.Point)
	got, err := Project(origin.Point, &b, &d, geo.EarthRadius)
	require.NoError(t, err)
	assert.InDelta(t, target.Lat, got.Lat, 1e-12)
	assert.InDelta(t, target.Lon, got.Lon, 1e-12)
	assert.Equal(t, target.Elevation, got.Elevation)
}

func TestString(t *testing.T) {
	p := NewPoint(2.0, 1.0, 3.0)
	assert.Equal(t,
		"{lat:  +2.000000, lon:   +1.000000, ele:     3.000, tot:       0.000, dis:   0.000, slp: +0.000000, brg:   +0.000000, spd:  0.000, hrt:   0.0, wts:   0.00, tim: }",
		p.String())
}
