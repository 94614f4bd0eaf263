// Package path annotates an ordered sequence of track points with cumulative
// distance and per-segment geometry, and indexes it per kilometer so that
// distance lookups scan at most about one kilometer of points.
package path

import (
	"log"
	"math"

	"ride-simulator/internal/geo"
	"ride-simulator/internal/track"
)

// kmMeters is the spacing of the distance index.
const kmMeters = 1000.0

// KmIndexEntry points at the track point covering a kilometer boundary.
type KmIndexEntry struct {
	Index    int
	Distance float64 // cumulative meters at Index
}

// Observer is notified of anomalies met while building and querying a Path.
type Observer interface {
	DistanceAnomaly()
	QueryMiss()
}

// Option configures New.
type Option func(*Path)

// WithLogger sets the logger used for non-fatal diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(p *Path) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(p *Path) { p.obs = o }
}

// WithRadius overrides the sphere radius used for segment distances.
func WithRadius(r float64) Option {
	return func(p *Path) {
		if r > 0 {
			p.radius = r
		}
	}
}

// Path owns an annotated track and its kilometer index. It is read-only once
// built; callers must not modify the points returned by Points.
type Path struct {
	points  []track.Point
	kmIndex []KmIndexEntry

	radius float64
	logger *log.Logger
	obs    Observer
}

// New annotates a copy of points and builds the kilometer index in one pass.
// Sequences shorter than two points produce a path of length zero.
func New(points []track.Point, opts ...Option) *Path {
	p := &Path{
		radius: geo.EarthRadius,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.build(points)
	return p
}

// fold carries the one-step lookback of the annotation pass.
type fold struct {
	prev      track.Point
	prevTotal float64
	km        float64
}

func (p *Path) build(raw []track.Point) {
	out := make([]track.Point, len(raw))
	copy(out, raw)
	p.points = out

	if len(out) < 2 {
		for i := range out {
			out[i].Index = 0
			clearDerived(&out[i])
		}
		p.kmIndex = []KmIndexEntry{{Index: 0, Distance: 0}}
		return
	}

	var acc fold
	for i := range out {
		cur := out[i]
		cur.Index = i
		clearDerived(&cur)

		if i > 0 {
			dist := acc.prev.DistanceMetersRadius(cur.Point, p.radius)
			if dist < 0 {
				p.logger.Printf("warning: negative distance %.3f between point %d and %d", dist, i-1, i)
				if p.obs != nil {
					p.obs.DistanceAnomaly()
				}
			}
			cur.TotalDistance = acc.prevTotal + dist

			// the previous record is final once its successor is known
			prev := acc.prev
			prev.Distance = dist
			prev.Slope = math.Atan2(prev.ElevationDiff(cur.Point), dist)
			prev.Bearing = prev.BearingRadians(cur.Point)
			out[i-1] = prev
		}

		kmx := cur.TotalDistance / kmMeters
		for kmx >= acc.km {
			if kmx == acc.km {
				p.kmIndex = append(p.kmIndex, KmIndexEntry{Index: i, Distance: cur.TotalDistance})
			} else {
				p.kmIndex = append(p.kmIndex, KmIndexEntry{Index: i - 1, Distance: acc.prevTotal})
			}
			acc.km++
		}

		out[i] = cur
		acc.prev = cur
		acc.prevTotal = cur.TotalDistance
	}

	last := len(out) - 1
	p.kmIndex = append(p.kmIndex, KmIndexEntry{Index: last, Distance: out[last].TotalDistance})
}

func clearDerived(tp *track.Point) {
	tp.TotalDistance = 0
	tp.Distance = 0
	tp.Slope = 0
	tp.Bearing = 0
}

// TotalDistance is the route length in meters.
func (p *Path) TotalDistance() float64 {
	return p.kmIndex[len(p.kmIndex)-1].Distance
}

// Len returns the number of track points.
func (p *Path) Len() int { return len(p.points) }

// Points returns the annotated track.
func (p *Path) Points() []track.Point { return p.points }

// KmIndex returns the kilometer index, closing sentinel included.
func (p *Path) KmIndex() []KmIndexEntry { return p.kmIndex }

// TrackPoint returns the point whose segment covers distance, that is the
// first point with TotalDistance <= distance <= TotalDistance+Distance.
// At exactly TotalDistance() this is the penultimate point, whose segment
// ends there, rather than the zero-length last point.
func (p *Path) TrackPoint(distance float64) (track.Point, bool) {
	i, ok := p.find(distance)
	if !ok {
		if p.obs != nil {
			p.obs.QueryMiss()
		}
		return track.Point{}, false
	}
	return p.points[i], true
}

func (p *Path) find(distance float64) (int, bool) {
	if math.IsNaN(distance) {
		return 0, false
	}
	bucket := math.Floor(distance / kmMeters)
	if bucket < 0 || bucket >= float64(len(p.kmIndex)) {
		return 0, false
	}
	for j := p.kmIndex[int(bucket)].Index; j < len(p.points); j++ {
		pt := &p.points[j]
		if pt.TotalDistance > distance {
			break
		}
		// adjacent points may coincide, so both ends are inclusive
		if distance <= pt.TotalDistance+pt.Distance {
			return j, true
		}
	}
	return 0, false
}

// SlopeRadians returns the slope of the segment covering distance, or 0.
func (p *Path) SlopeRadians(distance float64) float64 {
	pt, ok := p.TrackPoint(distance)
	if !ok {
		return 0
	}
	return pt.Slope
}

// Locate returns the position at distance along the route. The point is
// projected from the start of the covering segment along its bearing and the
// elevation is interpolated linearly.
func (p *Path) Locate(distance float64) (geo.Point, bool) {
	pt, ok := p.TrackPoint(distance)
	if !ok {
		return geo.Point{}, false
	}
	offset := distance - pt.TotalDistance
	if offset <= 0 || pt.Distance <= 0 {
		return pt.Point, true
	}
	next := p.points[pt.Index+1]
	loc := pt.Point.Destination(geo.Degrees(pt.Bearing), offset, p.radius)
	loc.Elevation = pt.Elevation + (next.Elevation-pt.Elevation)*offset/pt.Distance
	return loc, true
}
