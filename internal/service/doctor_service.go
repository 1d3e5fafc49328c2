package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vitalpoint/consult-api/internal/models"
	appErrors "github.com/vitalpoint/consult-api/pkg/errors"
)

type doctorRepository interface {
	List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, int, error)
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
	Create(ctx context.Context, doctor *models.Doctor) error
	Update(ctx context.Context, doctor *models.Doctor) error
	Deactivate(ctx context.Context, id string) error
}

// CreateDoctorRequest registers a doctor in the directory.
type CreateDoctorRequest struct {
	UserID          string  `json:"user_id" validate:"required"`
	FullName        string  `json:"full_name" validate:"required"`
	Specialty       string  `json:"specialty" validate:"required"`
	Bio             *string `json:"bio"`
	ConsultationFee float64 `json:"consultation_fee" validate:"min=0"`
}

// UpdateDoctorRequest partially updates a doctor record.
type UpdateDoctorRequest struct {
	FullName        *string  `json:"full_name"`
	Specialty       *string  `json:"specialty"`
	Bio             *string  `json:"bio"`
	ConsultationFee *float64 `json:"consultation_fee" validate:"omitempty,min=0"`
	Active          *bool    `json:"active"`
}

// DoctorService manages the doctor directory consulted by booking and slot
// generation.
type DoctorService struct {
	repo      doctorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDoctorService constructs a DoctorService.
func NewDoctorService(repo doctorRepository, validate *validator.Validate, logger *zap.Logger) *DoctorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoctorService{repo: repo, validator: validate, logger: logger}
}

// List returns doctors matching the filter with pagination metadata.
func (s *DoctorService) List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, *models.Pagination, error) {
	doctors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doctors")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return doctors, pagination, nil
}

// Get fetches a single doctor.
func (s *DoctorService) Get(ctx context.Context, id string) (*models.Doctor, error) {
	doctor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	return doctor, nil
}

// Create registers a new, immediately active doctor.
func (s *DoctorService) Create(ctx context.Context, req CreateDoctorRequest) (*models.Doctor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid doctor payload")
	}

	doctor := &models.Doctor{
		UserID:          req.UserID,
		FullName:        req.FullName,
		Specialty:       req.Specialty,
		Bio:             req.Bio,
		ConsultationFee: req.ConsultationFee,
		Active:          true,
	}

	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create doctor")
	}

	s.logger.Info("doctor created", zap.String("doctor_id", doctor.ID), zap.String("specialty", doctor.Specialty))
	return doctor, nil
}

// Update applies the provided fields to an existing doctor.
func (s *DoctorService) Update(ctx context.Context, id string, req UpdateDoctorRequest) (*models.Doctor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid doctor payload")
	}

	doctor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		doctor.FullName = *req.FullName
	}
	if req.Specialty != nil {
		doctor.Specialty = *req.Specialty
	}
	if req.Bio != nil {
		doctor.Bio = req.Bio
	}
	if req.ConsultationFee != nil {
		doctor.ConsultationFee = *req.ConsultationFee
	}
	if req.Active != nil {
		doctor.Active = *req.Active
	}

	if err := s.repo.Update(ctx, doctor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update doctor")
	}
	return doctor, nil
}

// Deactivate removes a doctor from circulation. Existing consultations are
// untouched; only new bookings and slot listings stop.
func (s *DoctorService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate doctor")
	}
	s.logger.Info("doctor deactivated", zap.String("doctor_id", id))
	return nil
}
