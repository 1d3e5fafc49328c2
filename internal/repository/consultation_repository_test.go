package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalpoint/consult-api/internal/models"
)

func TestConsultationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	mock.ExpectExec("INSERT INTO consultations").
		WithArgs(sqlmock.AnyArg(), "doc-1", "pat-1", sqlmock.AnyArg(), 30, "VIDEO", "SCHEDULED", 150.0, false, nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	consultation := &models.Consultation{
		DoctorID:        "doc-1",
		PatientID:       "pat-1",
		ScheduledAt:     time.Now().Add(24 * time.Hour),
		DurationMinutes: 30,
		Type:            models.TypeVideo,
		Status:          models.StatusScheduled,
		Fee:             150,
	}
	require.NoError(t, repo.Create(context.Background(), consultation))
	assert.NotEmpty(t, consultation.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationRepositoryListActiveBetween(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	day := time.Date(2030, time.January, 7, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "doctor_id", "patient_id", "scheduled_at", "duration_minutes", "type", "status", "fee", "paid", "notes", "prescription", "meeting_link", "created_at", "updated_at"}).
		AddRow("c1", "doc-1", "pat-1", day.Add(10*time.Hour), 30, "VIDEO", "SCHEDULED", 150.0, false, nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("status IN ('SCHEDULED', 'CONFIRMED', 'IN_PROGRESS')")).
		WithArgs("doc-1", day, day.AddDate(0, 0, 1)).
		WillReturnRows(rows)

	consultations, err := repo.ListActiveBetween(context.Background(), "doc-1", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, consultations, 1)
	assert.Equal(t, models.StatusScheduled, consultations[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationRepositoryCountActiveBetween(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	at := time.Date(2030, time.January, 7, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM consultations WHERE doctor_id = $1 AND scheduled_at BETWEEN $2 AND $3")).
		WithArgs("doc-1", at.Add(-2*time.Hour), at.Add(2*time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	total, err := repo.CountActiveBetween(context.Background(), "doc-1", at.Add(-2*time.Hour), at.Add(2*time.Hour), "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationRepositoryCountActiveBetweenExcludesSelf(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	at := time.Date(2030, time.January, 7, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("AND id <> $4")).
		WithArgs("doc-1", at.Add(-2*time.Hour), at.Add(2*time.Hour), "c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	total, err := repo.CountActiveBetween(context.Background(), "doc-1", at.Add(-2*time.Hour), at.Add(2*time.Hour), "c1")
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	mock.ExpectExec("UPDATE consultations SET").
		WithArgs(sqlmock.AnyArg(), 30, "VIDEO", "CANCELLED", false, nil, nil, nil, sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	consultation := &models.Consultation{
		ID:              "c1",
		ScheduledAt:     time.Now().Add(24 * time.Hour),
		DurationMinutes: 30,
		Type:            models.TypeVideo,
		Status:          models.StatusCancelled,
	}
	require.NoError(t, repo.Update(context.Background(), consultation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConsultationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "doctor_id", "patient_id", "scheduled_at", "duration_minutes", "type", "status", "fee", "paid", "notes", "prescription", "meeting_link", "created_at", "updated_at"}).
		AddRow("c1", "doc-1", "pat-1", time.Now(), 30, "VIDEO", "SCHEDULED", 150.0, false, nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM consultations WHERE 1=1 AND patient_id = $1 ORDER BY scheduled_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("pat-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM consultations WHERE 1=1 AND patient_id = $1")).
		WithArgs("pat-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	consultations, total, err := repo.List(context.Background(), models.ConsultationFilter{PatientID: "pat-1"})
	require.NoError(t, err)
	assert.Len(t, consultations, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
