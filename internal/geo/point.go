package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadius is the mean Earth radius in meters used by default for
// distance and projection.
const EarthRadius = 6_371_008.7714

// ErrInvalidProjection is returned when only one of bearing and distance is given.
var ErrInvalidProjection = errors.New("bearing and distance must be given together")

// Point is a position on a sphere. Lat and Lon are radians, Elevation is meters.
type Point struct {
	Lat       float64
	Lon       float64
	Elevation float64
}

// NewPoint builds a Point from signed decimal degrees.
func NewPoint(latDeg, lonDeg, ele float64) Point {
	return Point{
		Lat:       clampLat(radians(latDeg)),
		Lon:       normalizeLon(radians(lonDeg)),
		Elevation: ele,
	}
}

// Project returns the point reached from origin after travelling distance
// meters on the initial bearing bearingDeg. Both nil returns origin unchanged.
func Project(origin Point, bearingDeg, distance *float64, radius float64) (Point, error) {
	switch {
	case bearingDeg == nil && distance == nil:
		return origin, nil
	case bearingDeg == nil:
		return Point{}, fmt.Errorf("project: distance without bearing: %w", ErrInvalidProjection)
	case distance == nil:
		return Point{}, fmt.Errorf("project: bearing without distance: %w", ErrInvalidProjection)
	}
	return origin.Destination(*bearingDeg, *distance, radius), nil
}

// Destination projects p along bearingDeg for distance meters on a sphere of
// the given radius (EarthRadius when radius <= 0).
func (p Point) Destination(bearingDeg, distance, radius float64) Point {
	if radius <= 0 {
		radius = EarthRadius
	}
	brg := radians(bearingDeg)
	d := distance / radius
	lat := math.Asin(math.Sin(p.Lat)*math.Cos(d) + math.Cos(p.Lat)*math.Sin(d)*math.Cos(brg))
	lon := p.Lon + math.Atan2(math.Sin(brg)*math.Sin(d)*math.Cos(p.Lat), math.Cos(d)-math.Sin(p.Lat)*math.Sin(lat))
	return Point{Lat: clampLat(lat), Lon: normalizeLon(lon), Elevation: p.Elevation}
}

// DistanceMeters is the haversine great-circle distance to other on EarthRadius.
func (p Point) DistanceMeters(other Point) float64 {
	return p.DistanceMetersRadius(other, EarthRadius)
}

// DistanceMetersRadius is DistanceMeters on a sphere of the given radius.
func (p Point) DistanceMetersRadius(other Point, radius float64) float64 {
	sinLat := math.Sin((other.Lat - p.Lat) / 2)
	sinLon := math.Sin((other.Lon - p.Lon) / 2)
	a := sinLat*sinLat + math.Cos(p.Lat)*math.Cos(other.Lat)*sinLon*sinLon
	// rounding can push a just outside [0,1] for coincident or antipodal points
	a = math.Max(0, math.Min(1, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return radius * c
}

// BearingRadians is the initial bearing to other in (-π, π], 0 = north.
func (p Point) BearingRadians(other Point) float64 {
	dLon := other.Lon - p.Lon
	y := math.Sin(dLon) * math.Cos(other.Lat)
	x := math.Cos(p.Lat)*math.Sin(other.Lat) - math.Sin(p.Lat)*math.Cos(other.Lat)*math.Cos(dLon)
	return math.Atan2(y, x)
}

// BearingDegrees is the initial bearing to other in [0, 360).
func (p Point) BearingDegrees(other Point) float64 {
	b := p.BearingRadians(other)
	if b < 0 {
		b += 2 * math.Pi
	}
	return degrees(b)
}

// ElevationDiff returns other.Elevation - p.Elevation.
func (p Point) ElevationDiff(other Point) float64 {
	return other.Elevation - p.Elevation
}

// SlopeRadians is the grade to other as an angle, positive uphill.
func (p Point) SlopeRadians(other Point) float64 {
	return math.Atan2(p.ElevationDiff(other), p.DistanceMeters(other))
}

// SlopePercent is the grade to other in percent. Coincident points have slope 0.
func (p Point) SlopePercent(other Point) float64 {
	d := p.DistanceMeters(other)
	if d == 0 {
		return 0
	}
	return p.ElevationDiff(other) / d * 100
}

// Degrees returns latitude and longitude in decimal degrees.
func (p Point) Degrees() (lat, lon float64) {
	return degrees(p.Lat), degrees(p.Lon)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Radians converts decimal degrees to radians.
func Radians(deg float64) float64 { return radians(deg) }

// Degrees converts radians to decimal degrees.
func Degrees(rad float64) float64 { return degrees(rad) }

func clampLat(lat float64) float64 {
	return math.Max(-math.Pi/2, math.Min(math.Pi/2, lat))
}

// normalizeLon maps lon into (-π, π].
func normalizeLon(lon float64) float64 {
	if lon > -math.Pi && lon <= math.Pi {
		return lon
	}
	lon = math.Mod(lon+math.Pi, 2*math.Pi)
	if lon <= 0 {
		lon += 2 * math.Pi
	}
	return lon - math.Pi
}
