package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vitalpoint/consult-api/internal/models"
	"github.com/vitalpoint/consult-api/internal/repository"
	appErrors "github.com/vitalpoint/consult-api/pkg/errors"
)

type availabilityRepository interface {
	ListByDoctor(ctx context.Context, doctorID string) ([]models.AvailabilityWindow, error)
	ReplaceForDoctor(ctx context.Context, doctorID string, windows []models.AvailabilityWindow) error
}

type availabilityDoctorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Doctor, error)
}

// AvailabilityWindowInput is one weekly window in a schedule replacement.
type AvailabilityWindowInput struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Active    *bool  `json:"active"`
}

// SetAvailabilityRequest replaces a doctor's entire weekly schedule.
type SetAvailabilityRequest struct {
	Windows []AvailabilityWindowInput `json:"windows" validate:"dive"`
}

// AvailabilityService manages doctors' recurring weekly schedules.
type AvailabilityService struct {
	repo      availabilityRepository
	doctors   availabilityDoctorRepository
	cache     *repository.CacheRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService. The cache may be nil.
func NewAvailabilityService(
	repo availabilityRepository,
	doctors availabilityDoctorRepository,
	cache *repository.CacheRepository,
	validate *validator.Validate,
	logger *zap.Logger,
) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		repo:      repo,
		doctors:   doctors,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// ListForDoctor returns every window of a doctor, active and inactive.
func (s *AvailabilityService) ListForDoctor(ctx context.Context, doctorID string) ([]models.AvailabilityWindow, error) {
	if _, err := s.loadDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	windows, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}
	if windows == nil {
		windows = []models.AvailabilityWindow{}
	}
	return windows, nil
}

// Replace swaps the doctor's whole weekly schedule. Only an admin or the
// doctor themselves may do this. An empty window list is a valid schedule:
// the doctor simply stops offering slots.
func (s *AvailabilityService) Replace(ctx context.Context, doctorID string, claims *models.JWTClaims, req SetAvailabilityRequest) ([]models.AvailabilityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	if _, err := s.loadDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, doctorID, claims); err != nil {
		return nil, err
	}

	windows := make([]models.AvailabilityWindow, 0, len(req.Windows))
	for i, input := range req.Windows {
		start, ok := models.ClockMinutes(input.StartTime)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("window %d: start time must be HH:MM", i))
		}
		end, ok := models.ClockMinutes(input.EndTime)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("window %d: end time must be HH:MM", i))
		}
		if start >= end {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("window %d: start time must be before end time", i))
		}

		active := true
		if input.Active != nil {
			active = *input.Active
		}
		windows = append(windows, models.AvailabilityWindow{
			DoctorID:  doctorID,
			DayOfWeek: input.DayOfWeek,
			StartTime: input.StartTime,
			EndTime:   input.EndTime,
			Active:    active,
		})
	}

	if err := s.repo.ReplaceForDoctor(ctx, doctorID, windows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace availability")
	}

	if err := s.cache.DeleteByPattern(ctx, slotCachePattern(doctorID)); err != nil {
		s.logger.Warn("failed to invalidate slot cache", zap.String("doctor_id", doctorID), zap.Error(err))
	}

	s.logger.Info("availability replaced",
		zap.String("doctor_id", doctorID),
		zap.Int("windows", len(windows)))
	return windows, nil
}

func (s *AvailabilityService) loadDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	doctor, err := s.doctors.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	return doctor, nil
}

func (s *AvailabilityService) authorize(ctx context.Context, doctorID string, claims *models.JWTClaims) error {
	if claims.IsAdmin() {
		return nil
	}
	if claims.Role == models.RoleDoctor {
		doctor, err := s.doctors.FindByUserID(ctx, claims.UserID)
		if err == nil && doctor.ID == doctorID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "schedule belongs to another doctor")
}
