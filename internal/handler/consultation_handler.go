package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vitalpoint/consult-api/internal/models"
	"github.com/vitalpoint/consult-api/internal/service"
	appErrors "github.com/vitalpoint/consult-api/pkg/errors"
	"github.com/vitalpoint/consult-api/pkg/response"
)

type consultationService interface {
	Book(ctx context.Context, patientID string, req service.BookConsultationRequest) (*models.Consultation, error)
	Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Consultation, error)
	List(ctx context.Context, filter models.ConsultationFilter, claims *models.JWTClaims) ([]models.Consultation, *models.Pagination, error)
	Reschedule(ctx context.Context, id string, claims *models.JWTClaims, req service.RescheduleConsultationRequest) (*models.Consultation, error)
	Cancel(ctx context.Context, id string, claims *models.JWTClaims) (*models.Consultation, error)
	AdminUpdate(ctx context.Context, id string, req service.AdminUpdateConsultationRequest) (*models.Consultation, error)
}

type summaryExporter interface {
	ConsultationSummaryPDF(ctx context.Context, id string, claims *models.JWTClaims) ([]byte, string, error)
}

// ConsultationHandler exposes the booking lifecycle over HTTP.
type ConsultationHandler struct {
	service  consultationService
	exporter summaryExporter
}

// NewConsultationHandler creates a new handler.
func NewConsultationHandler(svc consultationService, exporter summaryExporter) *ConsultationHandler {
	return &ConsultationHandler{service: svc, exporter: exporter}
}

// Book godoc
// @Summary Book a consultation
// @Description Book a consultation with a doctor at a given time
// @Tags Consultations
// @Accept json
// @Produce json
// @Param payload body service.BookConsultationRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /consultations [post]
func (h *ConsultationHandler) Book(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.BookConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}

	consultation, err := h.service.Book(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, consultation)
}

// Get godoc
// @Summary Get consultation
// @Description Fetch a single consultation visible to the caller
// @Tags Consultations
// @Produce json
// @Param id path string true "Consultation ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /consultations/{id} [get]
func (h *ConsultationHandler) Get(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	consultation, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, consultation, nil)
}

// List godoc
// @Summary List consultations
// @Description List consultations visible to the caller
// @Tags Consultations
// @Produce json
// @Param status query string false "Status filter"
// @Param from query string false "From (RFC3339)"
// @Param to query string false "To (RFC3339)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /consultations [get]
func (h *ConsultationHandler) List(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.ConsultationFilter{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.ConsultationStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be RFC3339"))
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be RFC3339"))
			return
		}
		filter.To = &to
	}

	consultations, pagination, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, consultations, pagination)
}

// Reschedule godoc
// @Summary Reschedule consultation
// @Description Move a consultation to a new future time
// @Tags Consultations
// @Accept json
// @Produce json
// @Param id path string true "Consultation ID"
// @Param payload body service.RescheduleConsultationRequest true "New time"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /consultations/{id}/reschedule [post]
func (h *ConsultationHandler) Reschedule(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RescheduleConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reschedule payload"))
		return
	}

	consultation, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, consultation, nil)
}

// Cancel godoc
// @Summary Cancel consultation
// @Description Cancel a scheduled consultation
// @Tags Consultations
// @Produce json
// @Param id path string true "Consultation ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /consultations/{id}/cancel [post]
func (h *ConsultationHandler) Cancel(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	consultation, err := h.service.Cancel(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, consultation, nil)
}

// AdminUpdate godoc
// @Summary Update consultation (staff)
// @Description Set status, notes, prescription, meeting link or payment flag
// @Tags Consultations
// @Accept json
// @Produce json
// @Param id path string true "Consultation ID"
// @Param payload body service.AdminUpdateConsultationRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /consultations/{id} [patch]
func (h *ConsultationHandler) AdminUpdate(c *gin.Context) {
	var req service.AdminUpdateConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	consultation, err := h.service.AdminUpdate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, consultation, nil)
}

// SummaryPDF godoc
// @Summary Download consultation summary
// @Description Download a printable PDF summary of a consultation
// @Tags Consultations
// @Produce application/pdf
// @Param id path string true "Consultation ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /consultations/{id}/summary.pdf [get]
func (h *ConsultationHandler) SummaryPDF(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, filename, err := h.exporter.ConsultationSummaryPDF(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", payload)
}
