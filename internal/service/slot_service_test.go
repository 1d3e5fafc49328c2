package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitalpoint/consult-api/internal/models"
)

type mockSlotDoctorRepo struct {
	doctors map[string]*models.Doctor
}

func (m *mockSlotDoctorRepo) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	if doctor, ok := m.doctors[id]; ok {
		cp := *doctor
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockSlotWindowRepo struct {
	windows map[int][]models.AvailabilityWindow
}

func (m *mockSlotWindowRepo) ListActiveByDoctorDay(ctx context.Context, doctorID string, dayOfWeek int) ([]models.AvailabilityWindow, error) {
	return m.windows[dayOfWeek], nil
}

type mockSlotConsultationRepo struct {
	booked []models.Consultation
}

func (m *mockSlotConsultationRepo) ListActiveBetween(ctx context.Context, doctorID string, from, to time.Time) ([]models.Consultation, error) {
	var result []models.Consultation
	for _, c := range m.booked {
		if !c.ScheduledAt.Before(from) && c.ScheduledAt.Before(to) {
			result = append(result, c)
		}
	}
	return result, nil
}

// monday is a fixed future Monday used throughout the slot tests.
var monday = time.Date(2030, time.January, 7, 0, 0, 0, 0, time.Local)

func newSlotServiceForTest(windows map[int][]models.AvailabilityWindow, booked []models.Consultation) *SlotService {
	doctors := &mockSlotDoctorRepo{doctors: map[string]*models.Doctor{
		"doc-1": {ID: "doc-1", FullName: "Dr. Reyes", Active: true},
		"doc-2": {ID: "doc-2", FullName: "Dr. Inactive", Active: false},
	}}
	svc := NewSlotService(doctors, &mockSlotWindowRepo{windows: windows}, &mockSlotConsultationRepo{booked: booked}, nil, time.Minute, zap.NewNop())
	svc.now = func() time.Time { return monday.Add(-24 * time.Hour) }
	return svc
}

func mondayWindow(start, end string) map[int][]models.AvailabilityWindow {
	return map[int][]models.AvailabilityWindow{
		int(monday.Weekday()): {
			{ID: "w1", DoctorID: "doc-1", DayOfWeek: int(monday.Weekday()), StartTime: start, EndTime: end, Active: true},
		},
	}
}

func TestSlotServiceFullDay(t *testing.T) {
	svc := newSlotServiceForTest(mondayWindow("09:00", "17:00"), nil)

	slots, err := svc.ListAvailable(context.Background(), "doc-1", "2030-01-07")
	require.NoError(t, err)

	require.Len(t, slots, 16)
	assert.Equal(t, monday.Add(9*time.Hour), slots[0])
	assert.Equal(t, monday.Add(16*time.Hour+30*time.Minute), slots[15])
}

func TestSlotServiceEndTimeExcluded(t *testing.T) {
	svc := newSlotServiceForTest(mondayWindow("09:00", "10:00"), nil)

	slots, err := svc.ListAvailable(context.Background(), "doc-1", "2030-01-07")
	require.NoError(t, err)

	require.Len(t, slots, 2)
	assert.Equal(t, monday.Add(9*time.Hour), slots[0])
	assert.Equal(t, monday.Add(9*time.Hour+30*time.Minute), slots[1])
}

func TestSlotServiceBookedSlotRemoved(t *testing.T) {
	booked := []models.Consultation{
		{ID: "c1", DoctorID: "doc-1", ScheduledAt: monday.Add(10 * time.Hour), DurationMinutes: 30, Status: models.StatusScheduled},
	}
	svc := newSlotServiceForTest(mondayWindow("09:00", "12:00"), booked)

	slots, err := svc.ListAvailable(context.Background(), "doc-1", "2030-01-07")
	require.NoError(t, err)

	assert.NotContains(t, slots, monday.Add(10*time.Hour))
	assert.Contains(t, slots, monday.Add(9*time.Hour+30*time.Minute))
	assert.Contains(t, slots, monday.Add(10*time.Hour+30*time.Minute))
}

func TestSlotServiceBookingEndBoundaryIsFree(t *testing.T) {
	// A 30-minute booking at 10:00 occupies [10:00, 10:30); 10:30 stays free.
	booked := []models.Consultation{
		{ID: "c1", DoctorID: "doc-1", ScheduledAt: monday.Add(10 * time.Hour), DurationMinutes: 30, Status: models.StatusScheduled},
	}
	svc := newSlotServiceForTest(mondayWindow("10:00", "11:00"), booked)

	slots, err := svc.ListAvailable(context.Background(), "doc-1", "2030-01-07")
	require.NoError(t, err)

	require.Len(t, slots, 1)
	assert.Equal(t, monday.Add(10*time.Hour+30*time.Minute), slots[0])
}

func TestSlotServiceLongBookingBlocksSpannedSlots(t *testing.T) {
	booked := []models.Consultation{
		{ID: "c1", DoctorID: "doc-1", ScheduledAt: monday.Add(10 * time.Hour), DurationMinutes: 60, Status: models.StatusScheduled},
	}
	svc := newSlotServiceForTest(mondayWindow("09:00", "12:00"), booked)

	slots, err := svc.ListAvailable(context.Background(), "doc-1", "2030-01-07")
	require.NoError(t, err)

	assert.NotContains(t, slots, monday.Add(10*time.Hour))
	assert.NotContains(t, slots, monday.Add(10*time.Hour+30*time.Minute))
	assert.Contains(t, slots, monday.Add(11*time.Hour))
}

func TestSlotServiceNoWindowsYieldsEmpty(t *testing.T) {
	svc := newSlotServiceForTest(map[int][]models.AvailabilityWindow{}, nil)

	slots, err := svc.ListAvailable(context.Background(), "doc-1", "2030-01-07")
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.NotNil(t, slots)
}

func TestSlotServicePastSlotsFiltered(t *testing.T) {
	svc := newSlotServiceForTest(mondayWindow("09:00", "12:00"), nil)
	// Mid-morning: 09:00, 09:30 and 10:00 are gone; 10:00 itself is not
	// after now and is dropped too.
	svc.now = func() time.Time { return monday.Add(10 * time.Hour) }

	slots, err := svc.ListAvailable(context.Background(), "doc-1", "2030-01-07")
	require.NoError(t, err)

	require.Len(t, slots, 3)
	assert.Equal(t, monday.Add(10*time.Hour+30*time.Minute), slots[0])
}

func TestSlotServiceUnknownDoctor(t *testing.T) {
	svc := newSlotServiceForTest(mondayWindow("09:00", "12:00"), nil)

	_, err := svc.ListAvailable(context.Background(), "missing", "2030-01-07")
	require.Error(t, err)
}

func TestSlotServiceInactiveDoctor(t *testing.T) {
	svc := newSlotServiceForTest(mondayWindow("09:00", "12:00"), nil)

	_, err := svc.ListAvailable(context.Background(), "doc-2", "2030-01-07")
	require.Error(t, err)
}

func TestSlotServiceInvalidDate(t *testing.T) {
	svc := newSlotServiceForTest(mondayWindow("09:00", "12:00"), nil)

	_, err := svc.ListAvailable(context.Background(), "doc-1", "07-01-2030")
	require.Error(t, err)
}

func TestSlotServiceMultipleWindowsSorted(t *testing.T) {
	windows := map[int][]models.AvailabilityWindow{
		int(monday.Weekday()): {
			{ID: "w2", DoctorID: "doc-1", DayOfWeek: int(monday.Weekday()), StartTime: "14:00", EndTime: "15:00", Active: true},
			{ID: "w1", DoctorID: "doc-1", DayOfWeek: int(monday.Weekday()), StartTime: "09:00", EndTime: "10:00", Active: true},
		},
	}
	svc := newSlotServiceForTest(windows, nil)

	slots, err := svc.ListAvailable(context.Background(), "doc-1", "2030-01-07")
	require.NoError(t, err)

	require.Len(t, slots, 4)
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Before(slots[i]))
	}
}

func TestSlotServiceOverlappingWindowsPreserveDuplicates(t *testing.T) {
	// Two identical windows each contribute their own walk; the shared
	// instants are kept, not deduplicated.
	windows := map[int][]models.AvailabilityWindow{
		int(monday.Weekday()): {
			{ID: "w1", DoctorID: "doc-1", DayOfWeek: int(monday.Weekday()), StartTime: "09:00", EndTime: "10:00", Active: true},
			{ID: "w2", DoctorID: "doc-1", DayOfWeek: int(monday.Weekday()), StartTime: "09:00", EndTime: "10:00", Active: true},
		},
	}
	svc := newSlotServiceForTest(windows, nil)

	slots, err := svc.ListAvailable(context.Background(), "doc-1", "2030-01-07")
	require.NoError(t, err)

	require.Len(t, slots, 4)
	assert.Equal(t, monday.Add(9*time.Hour), slots[0])
	assert.Equal(t, monday.Add(9*time.Hour), slots[1])
	assert.Equal(t, monday.Add(9*time.Hour+30*time.Minute), slots[2])
	assert.Equal(t, monday.Add(9*time.Hour+30*time.Minute), slots[3])
}

func TestSlotServiceIdempotentForSameInputs(t *testing.T) {
	svc := newSlotServiceForTest(mondayWindow("09:00", "11:00"), nil)

	first, err := svc.ListAvailable(context.Background(), "doc-1", "2030-01-07")
	require.NoError(t, err)
	second, err := svc.ListAvailable(context.Background(), "doc-1", "2030-01-07")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
