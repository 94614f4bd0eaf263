package export

import (
	"github.com/twpayne/go-polyline"

	"ride-simulator/internal/track"
)

// EncodePolyline encodes the points in the Google encoded polyline format
// with five decimal digits.
func EncodePolyline(pts []track.Point) string {
	coords := make([][]float64, len(pts))
	for i, tp := range pts {
		lat, lon := tp.Point.Degrees()
		coords[i] = []float64{lat, lon}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline returns the [lat, lon] pairs of an encoded polyline.
func DecodePolyline(s string) ([][]float64, error) {
	coords, _, err := polyline.DecodeCoords([]byte(s))
	return coords, err
}
