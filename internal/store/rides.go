// Package store keeps raw ride points in PostgreSQL. Derived geometry and the
// kilometer index are rebuilt by path.New after loading and never stored.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"ride-simulator/internal/geo"
	"ride-simulator/internal/track"
)

var ErrRideNotFound = errors.New("ride not found")

const schema = `
CREATE TABLE IF NOT EXISTS rides (
  id               uuid PRIMARY KEY,
  name             text NOT NULL,
  source_format    text NOT NULL,
  created_at       timestamptz NOT NULL DEFAULT now(),
  point_count      integer NOT NULL,
  total_distance_m double precision NOT NULL
);
CREATE TABLE IF NOT EXISTS ride_points (
  ride_id     uuid NOT NULL REFERENCES rides(id) ON DELETE CASCADE,
  idx         integer NOT NULL,
  lat         double precision NOT NULL,
  lon         double precision NOT NULL,
  elevation   double precision NOT NULL,
  speed       double precision NOT NULL DEFAULT 0,
  heart_rate  double precision NOT NULL DEFAULT 0,
  watts       double precision NOT NULL DEFAULT 0,
  recorded_at timestamptz,
  PRIMARY KEY (ride_id, idx)
);`

var pointColumns = []string{"ride_id", "idx", "lat", "lon", "elevation", "speed", "heart_rate", "watts", "recorded_at"}

// Summary describes a stored ride without its points.
type Summary struct {
	ID            uuid.UUID
	Name          string
	SourceFormat  string
	CreatedAt     time.Time
	PointCount    int
	TotalDistance float64 // meters
}

type Ride struct {
	Summary
	Points []track.Point
}

type Store struct {
	db Querier
}

func New(db Querier) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveRide stores the raw points of a ride in one transaction and returns
// its new ID. totalDistance is recorded for listings only.
func (s *Store) SaveRide(ctx context.Context, name, format string, points []track.Point, totalDistance float64) (uuid.UUID, error) {
	id := uuid.New()
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `INSERT INTO rides (id, name, source_format, point_count, total_distance_m) VALUES ($1, $2, $3, $4, $5)`,
		id.String(), name, format, len(points), totalDistance)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert ride: %w", err)
	}

	rows := make([][]any, len(points))
	for i, p := range points {
		lat, lon := p.Point.Degrees()
		var at any
		if !p.Time.IsZero() {
			at = p.Time
		}
		rows[i] = []any{id.String(), i, lat, lon, p.Elevation, p.Speed, p.HeartRate, p.Watts, at}
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"ride_points"}, pointColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return uuid.Nil, fmt.Errorf("copy points: %w", err)
	}
	if int(n) != len(points) {
		return uuid.Nil, fmt.Errorf("copy points: wrote %d of %d", n, len(points))
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (s *Store) ListRides(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.Query(ctx, `SELECT id::text, name, source_format, created_at, point_count, total_distance_m FROM rides ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query rides: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// LoadRide returns a stored ride with its raw points in recorded order.
func (s *Store) LoadRide(ctx context.Context, id uuid.UUID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `SELECT id::text, name, source_format, created_at, point_count, total_distance_m FROM rides WHERE id = $1`, id.String())
	sum, err := scanSummary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRideNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `SELECT lat, lon, elevation, speed, heart_rate, watts, recorded_at FROM ride_points WHERE ride_id = $1 ORDER BY idx`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	ride := &Ride{Summary: sum, Points: make([]track.Point, 0, sum.PointCount)}
	for rows.Next() {
		var lat, lon, ele float64
		var p track.Point
		var at pgtype.Timestamptz
		if err := rows.Scan(&lat, &lon, &ele, &p.Speed, &p.HeartRate, &p.Watts, &at); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		p.Point = geo.NewPoint(lat, lon, ele)
		if at.Valid {
			p.Time = at.Time
		}
		ride.Points = append(ride.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ride, nil
}

func (s *Store) DeleteRide(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM rides WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete ride: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", id, ErrRideNotFound)
	}
	return nil
}

func scanSummary(row pgx.Row) (Summary, error) {
	var sum Summary
	var id string
	if err := row.Scan(&id, &sum.Name, &sum.SourceFormat, &sum.CreatedAt, &sum.PointCount, &sum.TotalDistance); err != nil {
		return Summary{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Summary{}, fmt.Errorf("ride id %q: %w", id, err)
	}
	sum.ID = parsed
	return sum, nil
}
