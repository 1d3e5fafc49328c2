package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalpoint/consult-api/internal/models"
	"github.com/vitalpoint/consult-api/internal/service"
	appErrors "github.com/vitalpoint/consult-api/pkg/errors"
)

type doctorServiceMock struct {
	listResp   []models.Doctor
	getResp    *models.Doctor
	getErr     error
	lastFilter models.DoctorFilter
}

func (m *doctorServiceMock) List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, nil
}

func (m *doctorServiceMock) Get(ctx context.Context, id string) (*models.Doctor, error) {
	return m.getResp, m.getErr
}

func (m *doctorServiceMock) Create(ctx context.Context, req service.CreateDoctorRequest) (*models.Doctor, error) {
	return &models.Doctor{ID: "d1", FullName: req.FullName}, nil
}

func (m *doctorServiceMock) Update(ctx context.Context, id string, req service.UpdateDoctorRequest) (*models.Doctor, error) {
	return m.getResp, m.getErr
}

func (m *doctorServiceMock) Deactivate(ctx context.Context, id string) error {
	return m.getErr
}

type availabilityServiceMock struct {
	windows []models.AvailabilityWindow
	err     error
}

func (m *availabilityServiceMock) ListForDoctor(ctx context.Context, doctorID string) ([]models.AvailabilityWindow, error) {
	return m.windows, m.err
}

func (m *availabilityServiceMock) Replace(ctx context.Context, doctorID string, claims *models.JWTClaims, req service.SetAvailabilityRequest) ([]models.AvailabilityWindow, error) {
	return m.windows, m.err
}

type slotServiceMock struct {
	slots    []time.Time
	err      error
	lastDate string
}

func (m *slotServiceMock) ListAvailable(ctx context.Context, doctorID, date string) ([]time.Time, error) {
	m.lastDate = date
	return m.slots, m.err
}

func TestDoctorHandlerListSlots(t *testing.T) {
	slotsMock := &slotServiceMock{slots: []time.Time{time.Now().Add(24 * time.Hour)}}
	handler := NewDoctorHandler(&doctorServiceMock{}, &availabilityServiceMock{}, slotsMock)

	c, w := testContext(t, http.MethodGet, "/doctors/d1/slots?date=2030-01-07", nil)
	c.Params = gin.Params{{Key: "id", Value: "d1"}}

	handler.ListSlots(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2030-01-07", slotsMock.lastDate)
}

func TestDoctorHandlerListSlotsMissingDate(t *testing.T) {
	handler := NewDoctorHandler(&doctorServiceMock{}, &availabilityServiceMock{}, &slotServiceMock{})

	c, w := testContext(t, http.MethodGet, "/doctors/d1/slots", nil)
	c.Params = gin.Params{{Key: "id", Value: "d1"}}

	handler.ListSlots(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDoctorHandlerListSlotsUnknownDoctor(t *testing.T) {
	handler := NewDoctorHandler(&doctorServiceMock{}, &availabilityServiceMock{}, &slotServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "doctor not found")})

	c, w := testContext(t, http.MethodGet, "/doctors/missing/slots?date=2030-01-07", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.ListSlots(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDoctorHandlerListParsesFilters(t *testing.T) {
	mockSvc := &doctorServiceMock{listResp: []models.Doctor{{ID: "d1"}}}
	handler := NewDoctorHandler(mockSvc, &availabilityServiceMock{}, &slotServiceMock{})

	c, w := testContext(t, http.MethodGet, "/doctors?specialty=Cardiology&active=true&page=2", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cardiology", mockSvc.lastFilter.Specialty)
	require.NotNil(t, mockSvc.lastFilter.Active)
	assert.True(t, *mockSvc.lastFilter.Active)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
}

func TestDoctorHandlerListRejectsBadActive(t *testing.T) {
	handler := NewDoctorHandler(&doctorServiceMock{}, &availabilityServiceMock{}, &slotServiceMock{})

	c, w := testContext(t, http.MethodGet, "/doctors?active=maybe", nil)

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDoctorHandlerSetAvailabilityForbidden(t *testing.T) {
	handler := NewDoctorHandler(&doctorServiceMock{}, &availabilityServiceMock{err: appErrors.ErrForbidden}, &slotServiceMock{})

	c, w := testContext(t, http.MethodPut, "/doctors/d1/availability", []byte(`{"windows":[]}`))
	c.Params = gin.Params{{Key: "id", Value: "d1"}}

	handler.SetAvailability(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
