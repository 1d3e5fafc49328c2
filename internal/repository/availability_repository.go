package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vitalpoint/consult-api/internal/models"
)

// AvailabilityRepository manages a doctor's recurring weekly windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByDoctor returns every window of a doctor, active or not, ordered by
// day and start time.
func (r *AvailabilityRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.AvailabilityWindow, error) {
	const query = `SELECT id, doctor_id, day_of_week, start_time, end_time, active, created_at
		FROM availability_windows WHERE doctor_id = $1 ORDER BY day_of_week, start_time`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, doctorID); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return windows, nil
}

// ListActiveByDoctorDay returns the active windows for one weekday.
func (r *AvailabilityRepository) ListActiveByDoctorDay(ctx context.Context, doctorID string, dayOfWeek int) ([]models.AvailabilityWindow, error) {
	const query = `SELECT id, doctor_id, day_of_week, start_time, end_time, active, created_at
		FROM availability_windows WHERE doctor_id = $1 AND day_of_week = $2 AND active = TRUE ORDER BY start_time`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, doctorID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list active availability windows: %w", err)
	}
	return windows, nil
}

// ReplaceForDoctor swaps a doctor's whole weekly schedule in one transaction.
// Admin schedule changes are full replaces, never incremental patches.
func (r *AvailabilityRepository) ReplaceForDoctor(ctx context.Context, doctorID string, windows []models.AvailabilityWindow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin availability replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM availability_windows WHERE doctor_id = $1`, doctorID); err != nil {
		return fmt.Errorf("clear availability windows: %w", err)
	}

	const insert = `INSERT INTO availability_windows (id, doctor_id, day_of_week, start_time, end_time, active, created_at)
		VALUES (:id, :doctor_id, :day_of_week, :start_time, :end_time, :active, :created_at)`
	now := time.Now().UTC()
	for i := range windows {
		window := &windows[i]
		window.DoctorID = doctorID
		if window.ID == "" {
			window.ID = uuid.NewString()
		}
		if window.CreatedAt.IsZero() {
			window.CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insert, window); err != nil {
			return fmt.Errorf("insert availability window: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit availability replace: %w", err)
	}
	return nil
}
