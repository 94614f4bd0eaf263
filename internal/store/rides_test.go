package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-simulator/internal/track"
)

var errDB = errors.New("db down")

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func ridePoints() []track.Point {
	a := track.NewPoint(46, 7, 500)
	a.Speed = 5
	a.HeartRate = 120
	a.Watts = 180
	a.Time = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	b := track.NewPoint(46.001, 7.001, 505)
	return []track.Point{a, b}
}

func TestEnsureSchema(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS rides`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, New(mock).EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRide(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO rides`).
		WithArgs(pgxmock.AnyArg(), "morning", "gpx", 2, 136.5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"ride_points"}, pointColumns).WillReturnResult(2)
	mock.ExpectCommit()

	id, err := New(mock).SaveRide(context.Background(), "morning", "gpx", ridePoints(), 136.5)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRideRollsBackOnCopyError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO rides`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"ride_points"}, pointColumns).WillReturnError(errDB)
	mock.ExpectRollback()

	_, err := New(mock).SaveRide(context.Background(), "morning", "gpx", ridePoints(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDB)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRide(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	recorded := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id::text, name, source_format, created_at, point_count, total_distance_m FROM rides WHERE id`).
		WithArgs(id.String()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "source_format", "created_at", "point_count", "total_distance_m"}).
			AddRow(id.String(), "morning", "tcx", created, 2, 136.5))
	mock.ExpectQuery(`SELECT lat, lon, elevation, speed, heart_rate, watts, recorded_at FROM ride_points`).
		WithArgs(id.String()).
		WillReturnRows(pgxmock.NewRows([]string{"lat", "lon", "elevation", "speed", "heart_rate", "watts", "recorded_at"}).
			AddRow(46.0, 7.0, 500.0, 5.0, 120.0, 180.0, recorded).
			AddRow(46.001, 7.001, 505.0, 0.0, 0.0, 0.0, recorded.Add(time.Second)))

	ride, err := New(mock).LoadRide(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, ride.ID)
	assert.Equal(t, "morning", ride.Name)
	assert.Equal(t, "tcx", ride.SourceFormat)
	assert.Equal(t, 2, ride.PointCount)
	require.Len(t, ride.Points, 2)

	want := ridePoints()
	assert.Equal(t, want[0].Point, ride.Points[0].Point)
	assert.Equal(t, 180.0, ride.Points[0].Watts)
	assert.True(t, recorded.Equal(ride.Points[0].Time))
	assert.Equal(t, want[1].Point, ride.Points[1].Point)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRideNotFound(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	mock.ExpectQuery(`FROM rides WHERE id`).WithArgs(id.String()).WillReturnError(pgx.ErrNoRows)

	_, err := New(mock).LoadRide(context.Background(), id)
	assert.ErrorIs(t, err, ErrRideNotFound)
}

func TestListRides(t *testing.T) {
	mock := newMock(t)
	a, b := uuid.New(), uuid.New()
	now := time.Now()
	mock.ExpectQuery(`FROM rides ORDER BY created_at DESC`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "source_format", "created_at", "point_count", "total_distance_m"}).
			AddRow(a.String(), "b", "gpx", now, 10, 2500.0).
			AddRow(b.String(), "a", "fit", now.Add(-time.Hour), 3, 12.0))

	rides, err := New(mock).ListRides(context.Background())
	require.NoError(t, err)
	require.Len(t, rides, 2)
	assert.Equal(t, a, rides[0].ID)
	assert.Equal(t, 2500.0, rides[0].TotalDistance)
	assert.Equal(t, "fit", rides[1].SourceFormat)

	mock.ExpectQuery(`FROM rides`).WillReturnError(errDB)
	_, err = New(mock).ListRides(context.Background())
	assert.ErrorIs(t, err, errDB)
}

func TestDeleteRide(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	mock.ExpectExec(`DELETE FROM rides`).WithArgs(id.String()).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM rides`).WithArgs(id.String()).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	s := New(mock)
	require.NoError(t, s.DeleteRide(context.Background(), id))
	assert.ErrorIs(t, s.DeleteRide(context.Background(), id), ErrRideNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
