package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalpoint/consult-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAvailabilityRepositoryListActiveByDoctorDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "doctor_id", "day_of_week", "start_time", "end_time", "active", "created_at"}).
		AddRow("w1", "doc-1", 1, "09:00", "12:00", true, time.Now())
	mock.ExpectQuery("SELECT id, doctor_id, day_of_week, start_time, end_time, active, created_at").
		WithArgs("doc-1", 1).
		WillReturnRows(rows)

	windows, err := repo.ListActiveByDoctorDay(context.Background(), "doc-1", 1)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "09:00", windows[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryReplaceForDoctor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_windows WHERE doctor_id = $1")).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO availability_windows").
		WithArgs(sqlmock.AnyArg(), "doc-1", 1, "09:00", "12:00", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.ReplaceForDoctor(context.Background(), "doc-1", []models.AvailabilityWindow{
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", Active: true},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryReplaceForDoctorEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_windows WHERE doctor_id = $1")).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceForDoctor(context.Background(), "doc-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
