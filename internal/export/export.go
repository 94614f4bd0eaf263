// Package export writes annotated paths to interchange formats and uploads
// the results to S3-compatible object storage.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"ride-simulator/internal/ingest"
	"ride-simulator/internal/path"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	GeoJSON  Format = "geojson"
	Parquet  Format = "parquet"
	GPX      Format = "gpx"
	CSV      Format = "csv"
	Polyline Format = "polyline"
)

// Formats lists every supported export format.
var Formats = []Format{GeoJSON, Parquet, GPX, CSV, Polyline}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownFormat)
}

// Ext is the file extension conventionally used for f.
func (f Format) Ext() string {
	if f == Polyline {
		return "txt"
	}
	return string(f)
}

func (f Format) ContentType() string {
	switch f {
	case GeoJSON:
		return "application/geo+json"
	case Parquet:
		return "application/vnd.apache.parquet"
	case GPX:
		return "application/gpx+xml"
	case CSV:
		return "text/csv"
	}
	return "text/plain"
}

// Write encodes the annotated points of p as f. name labels the ride where
// the format has room for it.
func Write(w io.Writer, f Format, name string, p *path.Path) error {
	switch f {
	case GeoJSON:
		return WriteGeoJSON(w, name, p)
	case Parquet:
		return WriteParquet(w, name, p.Points())
	case GPX:
		return WriteGPX(w, name, p.Points())
	case CSV:
		return ingest.WriteCSV(w, p.Points(), true)
	case Polyline:
		_, err := fmt.Fprintln(w, EncodePolyline(p.Points()))
		return err
	}
	return fmt.Errorf("%q: %w", f, ErrUnknownFormat)
}
