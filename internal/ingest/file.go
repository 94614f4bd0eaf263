// Package ingest adapts ride files (GPX, TCX, FIT and the CSV interchange
// format) into raw track points for path.New.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ride-simulator/internal/path"
	"ride-simulator/internal/track"
)

var ErrUnknownFormat = errors.New("unknown file format")

type Format string

const (
	GPX Format = "gpx"
	TCX Format = "tcx"
	FIT Format = "fit"
	CSV Format = "csv"
)

// Observer is told how many points each read produced.
type Observer interface {
	PointsRead(format string, n int)
}

// FormatOf picks the format from the file extension.
func FormatOf(name string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch f := Format(ext); f {
	case GPX, TCX, FIT, CSV:
		return f, nil
	}
	return "", fmt.Errorf("%q: %w", name, ErrUnknownFormat)
}

// Read decodes r as format f.
func Read(r io.Reader, f Format) ([]track.Point, error) {
	switch f {
	case GPX:
		return ReadGPX(r)
	case TCX:
		return ReadTCX(r)
	case FIT:
		return ReadFIT(r)
	case CSV:
		return ReadCSV(r)
	}
	return nil, fmt.Errorf("%q: %w", f, ErrUnknownFormat)
}

// ReadFile reads the points of the named file. obs may be nil.
func ReadFile(name string, obs Observer) ([]track.Point, error) {
	f, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	pts, err := Read(fh, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if obs != nil {
		obs.PointsRead(string(f), len(pts))
	}
	return pts, nil
}

// Open reads the named file and builds its path.
func Open(name string, obs Observer, opts ...path.Option) (*path.Path, error) {
	pts, err := ReadFile(name, obs)
	if err != nil {
		return nil, err
	}
	return path.New(pts, opts...), nil
}

// WriteCSVFile writes points to name with a header row.
func WriteCSVFile(name string, points []track.Point) error {
	fh, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := WriteCSV(fh, points, true); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
