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

func TestDoctorRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDoctorRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "full_name", "specialty", "bio", "consultation_fee", "active", "created_at", "updated_at"}).
		AddRow("d1", "u1", "Dr. Reyes", "Cardiology", nil, 150.0, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, full_name, specialty, bio, consultation_fee, active, created_at, updated_at FROM doctors WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM doctors WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	doctors, total, err := repo.List(context.Background(), models.DoctorFilter{})
	require.NoError(t, err)
	assert.Len(t, doctors, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDoctorRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDoctorRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "full_name", "specialty", "bio", "consultation_fee", "active", "created_at", "updated_at"}).
		AddRow("d1", "u1", "Dr. Reyes", "Cardiology", nil, 150.0, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM doctors WHERE id = $1")).
		WithArgs("d1").
		WillReturnRows(rows)

	doctor, err := repo.FindByID(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Reyes", doctor.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDoctorRepositoryCreateAndDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDoctorRepository(db)

	mock.ExpectExec("INSERT INTO doctors").
		WithArgs(sqlmock.AnyArg(), "u1", "Dr. Reyes", "Cardiology", sqlmock.AnyArg(), 150.0, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Doctor{UserID: "u1", FullName: "Dr. Reyes", Specialty: "Cardiology", ConsultationFee: 150, Active: true})
	require.NoError(t, err)

	mock.ExpectExec("UPDATE doctors SET active = FALSE").
		WithArgs("d1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "d1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
