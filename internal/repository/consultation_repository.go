package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vitalpoint/consult-api/internal/models"
)

// ConsultationRepository manages persistence for consultations. Rows are
// never deleted here; cancellation is a status update.
type ConsultationRepository struct {
	db *sqlx.DB
}

// NewConsultationRepository constructs a ConsultationRepository.
func NewConsultationRepository(db *sqlx.DB) *ConsultationRepository {
	return &ConsultationRepository{db: db}
}

const consultationColumns = "id, doctor_id, patient_id, scheduled_at, duration_minutes, type, status, fee, paid, notes, prescription, meeting_link, created_at, updated_at"

// activeStatusPredicate matches the statuses that occupy time.
const activeStatusPredicate = "status IN ('SCHEDULED', 'CONFIRMED', 'IN_PROGRESS')"

// Create inserts a new consultation row.
func (r *ConsultationRepository) Create(ctx context.Context, consultation *models.Consultation) error {
	if consultation.ID == "" {
		consultation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if consultation.CreatedAt.IsZero() {
		consultation.CreatedAt = now
	}
	consultation.UpdatedAt = now

	const query = `INSERT INTO consultations (id, doctor_id, patient_id, scheduled_at, duration_minutes, type, status, fee, paid, notes, prescription, meeting_link, created_at, updated_at)
		VALUES (:id, :doctor_id, :patient_id, :scheduled_at, :duration_minutes, :type, :status, :fee, :paid, :notes, :prescription, :meeting_link, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, consultation); err != nil {
		return fmt.Errorf("create consultation: %w", err)
	}
	return nil
}

// FindByID fetches a consultation by ID.
func (r *ConsultationRepository) FindByID(ctx context.Context, id string) (*models.Consultation, error) {
	query := fmt.Sprintf("SELECT %s FROM consultations WHERE id = $1", consultationColumns)
	var consultation models.Consultation
	if err := r.db.GetContext(ctx, &consultation, query, id); err != nil {
		return nil, err
	}
	return &consultation, nil
}

// Update persists every mutable field of a consultation.
func (r *ConsultationRepository) Update(ctx context.Context, consultation *models.Consultation) error {
	consultation.UpdatedAt = time.Now().UTC()
	const query = `UPDATE consultations SET scheduled_at = :scheduled_at, duration_minutes = :duration_minutes, type = :type, status = :status, paid = :paid, notes = :notes, prescription = :prescription, meeting_link = :meeting_link, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, consultation); err != nil {
		return fmt.Errorf("update consultation: %w", err)
	}
	return nil
}

// ListActiveBetween returns time-occupying consultations of a doctor whose
// scheduled_at falls in [from, to). Used by the slot generator for a whole
// day and by conflict detection for a proximity window.
func (r *ConsultationRepository) ListActiveBetween(ctx context.Context, doctorID string, from, to time.Time) ([]models.Consultation, error) {
	query := fmt.Sprintf("SELECT %s FROM consultations WHERE doctor_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3 AND %s ORDER BY scheduled_at",
		consultationColumns, activeStatusPredicate)
	var consultations []models.Consultation
	if err := r.db.SelectContext(ctx, &consultations, query, doctorID, from, to); err != nil {
		return nil, fmt.Errorf("list active consultations: %w", err)
	}
	return consultations, nil
}

// CountActiveBetween counts time-occupying consultations of a doctor with
// scheduled_at in the inclusive [from, to] range, optionally excluding one
// consultation (the one being rescheduled).
func (r *ConsultationRepository) CountActiveBetween(ctx context.Context, doctorID string, from, to time.Time, excludeID string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM consultations WHERE doctor_id = $1 AND scheduled_at BETWEEN $2 AND $3 AND %s", activeStatusPredicate)
	args := []interface{}{doctorID, from, to}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count active consultations: %w", err)
	}
	return total, nil
}

// List returns consultations matching filters along with total count.
func (r *ConsultationRepository) List(ctx context.Context, filter models.ConsultationFilter) ([]models.Consultation, int, error) {
	base := "FROM consultations WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.DoctorID != "" {
		conditions = append(conditions, fmt.Sprintf("doctor_id = $%d", len(args)+1))
		args = append(args, filter.DoctorID)
	}
	if filter.PatientID != "" {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", len(args)+1))
		args = append(args, filter.PatientID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY scheduled_at DESC LIMIT %d OFFSET %d", consultationColumns, base, size, offset)
	var consultations []models.Consultation
	if err := r.db.SelectContext(ctx, &consultations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list consultations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count consultations: %w", err)
	}

	return consultations, total, nil
}
