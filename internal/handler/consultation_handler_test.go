package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalpoint/consult-api/internal/middleware"
	"github.com/vitalpoint/consult-api/internal/models"
	"github.com/vitalpoint/consult-api/internal/service"
	appErrors "github.com/vitalpoint/consult-api/pkg/errors"
)

type consultationServiceMock struct {
	bookResp       *models.Consultation
	bookErr        error
	getResp        *models.Consultation
	getErr         error
	listResp       []models.Consultation
	rescheduleResp *models.Consultation
	rescheduleErr  error
	cancelResp     *models.Consultation
	cancelErr      error
	updateResp     *models.Consultation
	updateErr      error
	bookCalled     bool
	lastPatientID  string
	lastFilter     models.ConsultationFilter
}

func (m *consultationServiceMock) Book(ctx context.Context, patientID string, req service.BookConsultationRequest) (*models.Consultation, error) {
	m.bookCalled = true
	m.lastPatientID = patientID
	return m.bookResp, m.bookErr
}

func (m *consultationServiceMock) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Consultation, error) {
	return m.getResp, m.getErr
}

func (m *consultationServiceMock) List(ctx context.Context, filter models.ConsultationFilter, claims *models.JWTClaims) ([]models.Consultation, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, nil
}

func (m *consultationServiceMock) Reschedule(ctx context.Context, id string, claims *models.JWTClaims, req service.RescheduleConsultationRequest) (*models.Consultation, error) {
	return m.rescheduleResp, m.rescheduleErr
}

func (m *consultationServiceMock) Cancel(ctx context.Context, id string, claims *models.JWTClaims) (*models.Consultation, error) {
	return m.cancelResp, m.cancelErr
}

func (m *consultationServiceMock) AdminUpdate(ctx context.Context, id string, req service.AdminUpdateConsultationRequest) (*models.Consultation, error) {
	return m.updateResp, m.updateErr
}

type summaryExporterMock struct {
	payload []byte
	err     error
}

func (m *summaryExporterMock) ConsultationSummaryPDF(ctx context.Context, id string, claims *models.JWTClaims) ([]byte, string, error) {
	return m.payload, "summary.pdf", m.err
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "pat-1", Role: models.RolePatient})
	return c, w
}

func TestConsultationHandlerBook(t *testing.T) {
	mockSvc := &consultationServiceMock{
		bookResp: &models.Consultation{ID: "c1", DoctorID: "doc-1", PatientID: "pat-1", Status: models.StatusScheduled},
	}
	handler := NewConsultationHandler(mockSvc, &summaryExporterMock{})

	payload, _ := json.Marshal(service.BookConsultationRequest{
		DoctorID:    "doc-1",
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Type:        models.TypeVideo,
	})
	c, w := testContext(t, http.MethodPost, "/consultations", payload)

	handler.Book(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.bookCalled)
	assert.Equal(t, "pat-1", mockSvc.lastPatientID)
}

func TestConsultationHandlerBookInvalidBody(t *testing.T) {
	handler := NewConsultationHandler(&consultationServiceMock{}, &summaryExporterMock{})

	c, w := testContext(t, http.MethodPost, "/consultations", []byte(`{"doctor_id":`))

	handler.Book(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsultationHandlerBookConflict(t *testing.T) {
	mockSvc := &consultationServiceMock{bookErr: appErrors.ErrConflict}
	handler := NewConsultationHandler(mockSvc, &summaryExporterMock{})

	payload, _ := json.Marshal(service.BookConsultationRequest{
		DoctorID:    "doc-1",
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Type:        models.TypeVideo,
	})
	c, w := testContext(t, http.MethodPost, "/consultations", payload)

	handler.Book(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestConsultationHandlerGetForbidden(t *testing.T) {
	mockSvc := &consultationServiceMock{getErr: appErrors.ErrForbidden}
	handler := NewConsultationHandler(mockSvc, &summaryExporterMock{})

	c, w := testContext(t, http.MethodGet, "/consultations/c1", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.Get(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestConsultationHandlerListParsesFilters(t *testing.T) {
	mockSvc := &consultationServiceMock{
		listResp: []models.Consultation{{ID: "c1"}},
	}
	handler := NewConsultationHandler(mockSvc, &summaryExporterMock{})

	c, w := testContext(t, http.MethodGet, "/consultations?status=SCHEDULED&page=2&page_size=5", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastFilter.Status)
	assert.Equal(t, models.StatusScheduled, *mockSvc.lastFilter.Status)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 5, mockSvc.lastFilter.PageSize)
}

func TestConsultationHandlerListRejectsBadFrom(t *testing.T) {
	handler := NewConsultationHandler(&consultationServiceMock{}, &summaryExporterMock{})

	c, w := testContext(t, http.MethodGet, "/consultations?from=yesterday", nil)

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsultationHandlerCancelInvalidState(t *testing.T) {
	mockSvc := &consultationServiceMock{cancelErr: appErrors.Clone(appErrors.ErrValidation, "consultation is already cancelled")}
	handler := NewConsultationHandler(mockSvc, &summaryExporterMock{})

	c, w := testContext(t, http.MethodPost, "/consultations/c1/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.Cancel(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsultationHandlerReschedule(t *testing.T) {
	mockSvc := &consultationServiceMock{
		rescheduleResp: &models.Consultation{ID: "c1", Status: models.StatusScheduled},
	}
	handler := NewConsultationHandler(mockSvc, &summaryExporterMock{})

	payload, _ := json.Marshal(service.RescheduleConsultationRequest{ScheduledAt: time.Now().Add(48 * time.Hour)})
	c, w := testContext(t, http.MethodPost, "/consultations/c1/reschedule", payload)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.Reschedule(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestConsultationHandlerSummaryPDF(t *testing.T) {
	handler := NewConsultationHandler(&consultationServiceMock{}, &summaryExporterMock{payload: []byte("%PDF-1.4")})

	c, w := testContext(t, http.MethodGet, "/consultations/c1/summary.pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.SummaryPDF(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}
