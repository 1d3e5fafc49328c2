package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vitalpoint/consult-api/internal/models"
)

// DoctorRepository manages persistence for the doctor directory.
type DoctorRepository struct {
	db *sqlx.DB
}

// NewDoctorRepository constructs a DoctorRepository.
func NewDoctorRepository(db *sqlx.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

const doctorColumns = "id, user_id, full_name, specialty, bio, consultation_fee, active, created_at, updated_at"

// List returns doctors matching filters along with total count.
func (r *DoctorRepository) List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, int, error) {
	base := "FROM doctors WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Specialty != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(specialty) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Specialty)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(specialty) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]string{
		"full_name":        "full_name",
		"specialty":        "specialty",
		"consultation_fee": "consultation_fee",
		"created_at":       "created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", doctorColumns, base, column, order, size, offset)
	var doctors []models.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	return doctors, total, nil
}

// FindByID fetches a doctor by ID.
func (r *DoctorRepository) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	query := fmt.Sprintf("SELECT %s FROM doctors WHERE id = $1", doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// FindByUserID fetches the doctor record owned by a platform user.
func (r *DoctorRepository) FindByUserID(ctx context.Context, userID string) (*models.Doctor, error) {
	query := fmt.Sprintf("SELECT %s FROM doctors WHERE user_id = $1", doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, userID); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// Create inserts a new doctor record.
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doctor.CreatedAt.IsZero() {
		doctor.CreatedAt = now
	}
	doctor.UpdatedAt = now

	const query = `INSERT INTO doctors (id, user_id, full_name, specialty, bio, consultation_fee, active, created_at, updated_at)
		VALUES (:id, :user_id, :full_name, :specialty, :bio, :consultation_fee, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

// Update modifies an existing doctor record.
func (r *DoctorRepository) Update(ctx context.Context, doctor *models.Doctor) error {
	doctor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE doctors SET full_name = :full_name, specialty = :specialty, bio = :bio, consultation_fee = :consultation_fee, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return fmt.Errorf("update doctor: %w", err)
	}
	return nil
}

// Deactivate sets a doctor's active flag to false.
func (r *DoctorRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE doctors SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate doctor: %w", err)
	}
	return nil
}

// Exists reports whether a doctor row is present.
func (r *DoctorRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	if err := r.db.GetContext(ctx, &one, "SELECT 1 FROM doctors WHERE id = $1 LIMIT 1", id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check doctor exists: %w", err)
	}
	return true, nil
}
