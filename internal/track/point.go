package track

import (
	"fmt"
	"time"

	"ride-simulator/internal/geo"
)

// Point is one recorded sample along a route.
//
// Index, TotalDistance, Distance, Slope and Bearing are derived by path.New:
// Distance, Slope and Bearing describe the segment to the next point and stay
// zero on the last point.
type Point struct {
	geo.Point

	Index         int
	TotalDistance float64 // meters from the first point
	Distance      float64 // meters to the next point
	Slope         float64 // radians to the next point, positive uphill
	Bearing       float64 // radians to the next point

	Speed     float64 // m/s
	HeartRate float64 // bpm
	Watts     float64
	Radius    float64 // sphere radius used when built by projection
	Time      time.Time
}

// NewPoint creates a Point from signed decimal degrees and elevation in meters.
func NewPoint(latDeg, lonDeg, ele float64) Point {
	return Point{Point: geo.NewPoint(latDeg, lonDeg, ele)}
}

// Project creates the point reached from origin after distance meters on
// bearingDeg. The result keeps the radius used and the bearing in radians.
func Project(origin geo.Point, bearingDeg, distance *float64, radius float64) (Point, error) {
	if radius <= 0 {
		radius = geo.EarthRadius
	}
	gp, err := geo.Project(origin, bearingDeg, distance, radius)
	if err != nil {
		return Point{}, err
	}
	p := Point{Point: gp, Radius: radius}
	if bearingDeg != nil {
		p.Bearing = geo.Radians(*bearingDeg)
	}
	return p, nil
}

// Equal reports whether every field of p and o matches.
func (p Point) Equal(o Point) bool {
	return p.Point == o.Point &&
		p.Index == o.Index &&
		p.TotalDistance == o.TotalDistance &&
		p.Distance == o.Distance &&
		p.Slope == o.Slope &&
		p.Bearing == o.Bearing &&
		p.Speed == o.Speed &&
		p.HeartRate == o.HeartRate &&
		p.Watts == o.Watts &&
		p.Radius == o.Radius &&
		p.Time.Equal(o.Time)
}

// EqualPoints compares two sequences point by point.
func EqualPoints(a, b []Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Degrees returns latitude, longitude, bearing and slope in degrees.
func (p Point) Degrees() (lat, lon, bearing, slope float64) {
	lat, lon = p.Point.Degrees()
	return lat, lon, geo.Degrees(p.Bearing), geo.Degrees(p.Slope)
}

func (p Point) String() string {
	lat, lon, brg, slp := p.Degrees()
	tim := ""
	if !p.Time.IsZero() {
		tim = p.Time.Format(time.RFC3339)
	}
	return fmt.Sprintf("{lat: %+10.6f, lon: %+11.6f, ele: %9.3f, tot: %11.3f, dis: %7.3f, slp: %+9.6f, brg: %+11.6f, spd: %6.3f, hrt: %5.1f, wts: %6.2f, tim: %s}",
		lat, lon, p.Elevation, p.TotalDistance, p.Distance, slp, brg, p.Speed, p.HeartRate, p.Watts, tim)
}
