package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vitalpoint/consult-api/internal/models"
	"github.com/vitalpoint/consult-api/internal/repository"
	appErrors "github.com/vitalpoint/consult-api/pkg/errors"
)

// SlotIntervalMinutes is the platform-wide slot granularity. It is fixed and
// independent of any individual consultation's duration.
const SlotIntervalMinutes = 30

type slotDoctorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

type slotAvailabilityRepository interface {
	ListActiveByDoctorDay(ctx context.Context, doctorID string, dayOfWeek int) ([]models.AvailabilityWindow, error)
}

type slotConsultationRepository interface {
	ListActiveBetween(ctx context.Context, doctorID string, from, to time.Time) ([]models.Consultation, error)
}

// SlotService derives bookable start instants for a doctor and date from the
// doctor's weekly availability and the day's existing consultations.
type SlotService struct {
	doctors       slotDoctorRepository
	windows       slotAvailabilityRepository
	consultations slotConsultationRepository
	cache         *repository.CacheRepository
	cacheTTL      time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewSlotService constructs a SlotService. The cache may be nil.
func NewSlotService(
	doctors slotDoctorRepository,
	windows slotAvailabilityRepository,
	consultations slotConsultationRepository,
	cache *repository.CacheRepository,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &SlotService{
		doctors:       doctors,
		windows:       windows,
		consultations: consultations,
		cache:         cache,
		cacheTTL:      cacheTTL,
		logger:        logger,
		now:           time.Now,
	}
}

func slotCacheKey(doctorID, date string) string {
	return fmt.Sprintf("slots:doctor:%s:%s", doctorID, date)
}

func slotCachePattern(doctorID string) string {
	return fmt.Sprintf("slots:doctor:%s:*", doctorID)
}

// ListAvailable returns the bookable start instants for the given doctor and
// calendar date ("2006-01-02"), in chronological order. A day without
// availability yields an empty slice, not an error. Overlapping windows may
// yield duplicate instants; callers get them as stored.
func (s *SlotService) ListAvailable(ctx context.Context, doctorID, dateStr string) ([]time.Time, error) {
	doctor, err := s.doctors.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	if !doctor.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "doctor is not accepting consultations")
	}

	// The calendar date is interpreted in the server's local civil time,
	// the same frame availability windows are expressed in.
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}

	now := s.now()

	var cached []time.Time
	if err := s.cache.Get(ctx, slotCacheKey(doctorID, dateStr), &cached); err == nil {
		return dropPast(cached, now), nil
	}

	slots, err := s.generate(ctx, doctorID, date, now)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, slotCacheKey(doctorID, dateStr), slots, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache slot list", zap.String("doctor_id", doctorID), zap.Error(err))
	}

	return slots, nil
}

func (s *SlotService) generate(ctx context.Context, doctorID string, date time.Time, now time.Time) ([]time.Time, error) {
	windows, err := s.windows.ListActiveByDoctorDay(ctx, doctorID, int(date.Weekday()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	if len(windows) == 0 {
		return []time.Time{}, nil
	}

	booked, err := s.consultations.ListActiveBetween(ctx, doctorID, date, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load consultations")
	}

	slots := []time.Time{}
	for _, window := range windows {
		start, ok := models.ClockMinutes(window.StartTime)
		if !ok {
			s.logger.Warn("skipping window with malformed start time", zap.String("window_id", window.ID), zap.String("start_time", window.StartTime))
			continue
		}
		end, ok := models.ClockMinutes(window.EndTime)
		if !ok {
			s.logger.Warn("skipping window with malformed end time", zap.String("window_id", window.ID), zap.String("end_time", window.EndTime))
			continue
		}

		// Half-open walk: the last slot starts strictly before end.
		for minute := start; minute < end; minute += SlotIntervalMinutes {
			candidate := date.Add(time.Duration(minute) * time.Minute)
			if !candidate.After(now) {
				continue
			}
			if occupied(booked, candidate) {
				continue
			}
			slots = append(slots, candidate)
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots, nil
}

// occupied reports whether any booked consultation's [start, end) interval
// contains the candidate. A candidate exactly at an end boundary is free.
func occupied(booked []models.Consultation, candidate time.Time) bool {
	for i := range booked {
		start, end := booked[i].Interval()
		if !candidate.Before(start) && candidate.Before(end) {
			return true
		}
	}
	return false
}

func dropPast(slots []time.Time, now time.Time) []time.Time {
	kept := make([]time.Time, 0, len(slots))
	for _, slot := range slots {
		if slot.After(now) {
			kept = append(kept, slot)
		}
	}
	return kept
}
