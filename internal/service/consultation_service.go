package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vitalpoint/consult-api/internal/models"
	"github.com/vitalpoint/consult-api/internal/repository"
	appErrors "github.com/vitalpoint/consult-api/pkg/errors"
)

// conflictWindow is the coarse proximity range the booking path uses for
// conflict detection: any time-occupying consultation whose start lies
// within this distance of the candidate blocks it. The slot generator uses
// exact interval containment instead; the two definitions deliberately
// coexist (see DESIGN.md).
const conflictWindow = 2 * time.Hour

type consultationRepository interface {
	Create(ctx context.Context, consultation *models.Consultation) error
	FindByID(ctx context.Context, id string) (*models.Consultation, error)
	Update(ctx context.Context, consultation *models.Consultation) error
	List(ctx context.Context, filter models.ConsultationFilter) ([]models.Consultation, int, error)
	CountActiveBetween(ctx context.Context, doctorID string, from, to time.Time, excludeID string) (int, error)
}

type consultationDoctorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Doctor, error)
}

type consultationAvailabilityRepository interface {
	ListActiveByDoctorDay(ctx context.Context, doctorID string, dayOfWeek int) ([]models.AvailabilityWindow, error)
}

// BookConsultationRequest is the patient-facing booking payload.
type BookConsultationRequest struct {
	DoctorID        string                  `json:"doctor_id" validate:"required"`
	ScheduledAt     time.Time               `json:"scheduled_at" validate:"required"`
	DurationMinutes int                     `json:"duration_minutes" validate:"omitempty,min=10,max=120"`
	Type            models.ConsultationType `json:"type" validate:"required,oneof=VIDEO AUDIO CHAT IN_PERSON"`
}

// RescheduleConsultationRequest moves an existing consultation.
type RescheduleConsultationRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// AdminUpdateConsultationRequest is the staff escape hatch: fields are set
// directly, without time or conflict re-validation.
type AdminUpdateConsultationRequest struct {
	Status       *models.ConsultationStatus `json:"status" validate:"omitempty,oneof=SCHEDULED CONFIRMED IN_PROGRESS COMPLETED CANCELLED NO_SHOW"`
	Notes        *string                    `json:"notes"`
	Prescription *string                    `json:"prescription"`
	MeetingLink  *string                    `json:"meeting_link"`
	Paid         *bool                      `json:"paid"`
}

// ConsultationService owns the booking lifecycle: book, reschedule, cancel
// and the administrative update path.
type ConsultationService struct {
	repo      consultationRepository
	doctors   consultationDoctorRepository
	windows   consultationAvailabilityRepository
	cache     *repository.CacheRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewConsultationService constructs a ConsultationService. The cache may be nil.
func NewConsultationService(
	repo consultationRepository,
	doctors consultationDoctorRepository,
	windows consultationAvailabilityRepository,
	cache *repository.CacheRepository,
	validate *validator.Validate,
	logger *zap.Logger,
) *ConsultationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsultationService{
		repo:      repo,
		doctors:   doctors,
		windows:   windows,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Book validates and creates a consultation in SCHEDULED state. The fee is
// snapshotted from the doctor's current rate and never changes afterwards.
func (s *ConsultationService) Book(ctx context.Context, patientID string, req BookConsultationRequest) (*models.Consultation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	doctor, err := s.doctors.FindByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	if !doctor.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "doctor is not accepting consultations")
	}

	if !req.ScheduledAt.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled time must be in the future")
	}

	within, err := s.withinAvailability(ctx, req.DoctorID, req.ScheduledAt)
	if err != nil {
		return nil, err
	}
	if !within {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requested time is outside the doctor's availability")
	}

	conflict, err := s.hasConflict(ctx, req.DoctorID, req.ScheduledAt, "")
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, appErrors.Clone(appErrors.ErrConflict, "requested time conflicts with an existing consultation")
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = models.DefaultDurationMinutes
	}

	consultation := &models.Consultation{
		DoctorID:        req.DoctorID,
		PatientID:       patientID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: duration,
		Type:            req.Type,
		Status:          models.StatusScheduled,
		Fee:             doctor.ConsultationFee,
	}

	if err := s.repo.Create(ctx, consultation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create consultation")
	}

	s.invalidateSlots(ctx, req.DoctorID)
	return consultation, nil
}

// Reschedule moves a consultation to a new future time. Only SCHEDULED and
// CONFIRMED consultations may move, and a successful move always lands back
// in SCHEDULED: confirmation has to be obtained again.
func (s *ConsultationService) Reschedule(ctx context.Context, id string, claims *models.JWTClaims, req RescheduleConsultationRequest) (*models.Consultation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}

	consultation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(consultation, claims); err != nil {
		return nil, err
	}

	if consultation.Status != models.StatusScheduled && consultation.Status != models.StatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only scheduled or confirmed consultations can be rescheduled")
	}

	if !req.ScheduledAt.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled time must be in the future")
	}

	conflict, err := s.hasConflict(ctx, consultation.DoctorID, req.ScheduledAt, consultation.ID)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, appErrors.Clone(appErrors.ErrConflict, "requested time conflicts with an existing consultation")
	}

	consultation.ScheduledAt = req.ScheduledAt
	consultation.Status = models.StatusScheduled

	if err := s.repo.Update(ctx, consultation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update consultation")
	}

	s.invalidateSlots(ctx, consultation.DoctorID)
	return consultation, nil
}

// Cancel marks a consultation CANCELLED. Cancellation is terminal and is a
// data mutation only; nothing running is interrupted.
func (s *ConsultationService) Cancel(ctx context.Context, id string, claims *models.JWTClaims) (*models.Consultation, error) {
	consultation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(consultation, claims); err != nil {
		return nil, err
	}

	switch consultation.Status {
	case models.StatusCancelled:
		return nil, appErrors.Clone(appErrors.ErrValidation, "consultation is already cancelled")
	case models.StatusCompleted:
		return nil, appErrors.Clone(appErrors.ErrValidation, "a completed consultation cannot be cancelled")
	}

	consultation.Status = models.StatusCancelled

	if err := s.repo.Update(ctx, consultation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update consultation")
	}

	s.invalidateSlots(ctx, consultation.DoctorID)
	return consultation, nil
}

// AdminUpdate sets status, notes, prescription, meeting link or payment flag
// directly. No time or conflict re-validation happens here; that is the
// point of the staff path.
func (s *ConsultationService) AdminUpdate(ctx context.Context, id string, req AdminUpdateConsultationRequest) (*models.Consultation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	consultation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		consultation.Status = *req.Status
	}
	if req.Notes != nil {
		consultation.Notes = req.Notes
	}
	if req.Prescription != nil {
		consultation.Prescription = req.Prescription
	}
	if req.MeetingLink != nil {
		consultation.MeetingLink = req.MeetingLink
	}
	if req.Paid != nil {
		consultation.Paid = *req.Paid
	}

	if err := s.repo.Update(ctx, consultation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update consultation")
	}

	s.invalidateSlots(ctx, consultation.DoctorID)
	return consultation, nil
}

// Get returns a consultation to its patient, its doctor, or an admin.
func (s *ConsultationService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Consultation, error) {
	consultation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, consultation, claims); err != nil {
		return nil, err
	}
	return consultation, nil
}

// List returns consultations visible to the caller. Patients see their own;
// doctors see their practice; admins see everything the filter selects.
func (s *ConsultationService) List(ctx context.Context, filter models.ConsultationFilter, claims *models.JWTClaims) ([]models.Consultation, *models.Pagination, error) {
	switch {
	case claims.IsAdmin():
	case claims.Role == models.RoleDoctor:
		doctor, err := s.doctors.FindByUserID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "no doctor profile for caller")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor profile")
		}
		filter.DoctorID = doctor.ID
	default:
		filter.PatientID = claims.UserID
	}

	consultations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list consultations")
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
	return consultations, pagination, nil
}

func (s *ConsultationService) load(ctx context.Context, id string) (*models.Consultation, error) {
	consultation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consultation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load consultation")
	}
	return consultation, nil
}

func (s *ConsultationService) authorizeOwner(consultation *models.Consultation, claims *models.JWTClaims) error {
	if claims.IsAdmin() {
		return nil
	}
	if consultation.PatientID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "consultation belongs to another patient")
	}
	return nil
}

func (s *ConsultationService) authorizeRead(ctx context.Context, consultation *models.Consultation, claims *models.JWTClaims) error {
	if claims.IsAdmin() || consultation.PatientID == claims.UserID {
		return nil
	}
	if claims.Role == models.RoleDoctor {
		doctor, err := s.doctors.FindByUserID(ctx, claims.UserID)
		if err == nil && doctor.ID == consultation.DoctorID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "consultation belongs to another patient")
}

// hasConflict applies the coarse booking-path conflict rule: any
// time-occupying consultation whose start falls within ±2h of the candidate,
// other than the excluded one, blocks it.
func (s *ConsultationService) hasConflict(ctx context.Context, doctorID string, candidate time.Time, excludeID string) (bool, error) {
	total, err := s.repo.CountActiveBetween(ctx, doctorID, candidate.Add(-conflictWindow), candidate.Add(conflictWindow), excludeID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check conflicts")
	}
	return total > 0, nil
}

// withinAvailability checks the booking instant against the doctor's active
// windows for that weekday, half-open: start is bookable, end is not.
func (s *ConsultationService) withinAvailability(ctx context.Context, doctorID string, at time.Time) (bool, error) {
	local := at.In(time.Local)
	windows, err := s.windows.ListActiveByDoctorDay(ctx, doctorID, int(local.Weekday()))
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}

	minute := local.Hour()*60 + local.Minute()
	for _, window := range windows {
		start, ok := models.ClockMinutes(window.StartTime)
		if !ok {
			continue
		}
		end, ok := models.ClockMinutes(window.EndTime)
		if !ok {
			continue
		}
		if minute >= start && minute < end {
			return true, nil
		}
	}
	return false, nil
}

func (s *ConsultationService) invalidateSlots(ctx context.Context, doctorID string) {
	if err := s.cache.DeleteByPattern(ctx, slotCachePattern(doctorID)); err != nil {
		s.logger.Warn("failed to invalidate slot cache", zap.String("doctor_id", doctorID), zap.Error(err))
	}
}
