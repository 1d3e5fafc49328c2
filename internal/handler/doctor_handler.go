package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vitalpoint/consult-api/internal/models"
	"github.com/vitalpoint/consult-api/internal/service"
	appErrors "github.com/vitalpoint/consult-api/pkg/errors"
	"github.com/vitalpoint/consult-api/pkg/response"
)

type doctorService interface {
	List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Doctor, error)
	Create(ctx context.Context, req service.CreateDoctorRequest) (*models.Doctor, error)
	Update(ctx context.Context, id string, req service.UpdateDoctorRequest) (*models.Doctor, error)
	Deactivate(ctx context.Context, id string) error
}

type availabilityService interface {
	ListForDoctor(ctx context.Context, doctorID string) ([]models.AvailabilityWindow, error)
	Replace(ctx context.Context, doctorID string, claims *models.JWTClaims, req service.SetAvailabilityRequest) ([]models.AvailabilityWindow, error)
}

type slotService interface {
	ListAvailable(ctx context.Context, doctorID, date string) ([]time.Time, error)
}

// DoctorHandler exposes the doctor directory, weekly schedules and slot
// listings over HTTP.
type DoctorHandler struct {
	doctors      doctorService
	availability availabilityService
	slots        slotService
}

// NewDoctorHandler creates a new handler.
func NewDoctorHandler(doctors doctorService, availability availabilityService, slots slotService) *DoctorHandler {
	return &DoctorHandler{doctors: doctors, availability: availability, slots: slots}
}

// List godoc
// @Summary List doctors
// @Description List doctors with filtering and pagination
// @Tags Doctors
// @Produce json
// @Param specialty query string false "Specialty filter"
// @Param active query bool false "Active filter"
// @Param search query string false "Name or specialty search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /doctors [get]
func (h *DoctorHandler) List(c *gin.Context) {
	filter := models.DoctorFilter{
		Specialty: c.Query("specialty"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be a boolean"))
			return
		}
		filter.Active = &active
	}

	doctors, pagination, err := h.doctors.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doctors, pagination)
}

// Get godoc
// @Summary Get doctor
// @Description Fetch a single doctor by ID
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /doctors/{id} [get]
func (h *DoctorHandler) Get(c *gin.Context) {
	doctor, err := h.doctors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// Create godoc
// @Summary Register doctor
// @Description Register a new doctor in the directory
// @Tags Doctors
// @Accept json
// @Produce json
// @Param payload body service.CreateDoctorRequest true "Doctor payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /doctors [post]
func (h *DoctorHandler) Create(c *gin.Context) {
	var req service.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid doctor payload"))
		return
	}

	doctor, err := h.doctors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, doctor)
}

// Update godoc
// @Summary Update doctor
// @Description Update an existing doctor record
// @Tags Doctors
// @Accept json
// @Produce json
// @Param id path string true "Doctor ID"
// @Param payload body service.UpdateDoctorRequest true "Doctor payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /doctors/{id} [patch]
func (h *DoctorHandler) Update(c *gin.Context) {
	var req service.UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid doctor payload"))
		return
	}

	doctor, err := h.doctors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doctor, nil)
}

// Deactivate godoc
// @Summary Deactivate doctor
// @Description Remove a doctor from booking circulation
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /doctors/{id} [delete]
func (h *DoctorHandler) Deactivate(c *gin.Context) {
	if err := h.doctors.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetAvailability godoc
// @Summary Get weekly availability
// @Description List a doctor's recurring weekly windows
// @Tags Availability
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /doctors/{id}/availability [get]
func (h *DoctorHandler) GetAvailability(c *gin.Context) {
	windows, err := h.availability.ListForDoctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// SetAvailability godoc
// @Summary Replace weekly availability
// @Description Replace a doctor's entire weekly schedule
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Doctor ID"
// @Param payload body service.SetAvailabilityRequest true "Weekly windows"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /doctors/{id}/availability [put]
func (h *DoctorHandler) SetAvailability(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}

	windows, err := h.availability.Replace(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, windows, nil)
}

// ListSlots godoc
// @Summary List bookable slots
// @Description List bookable start times for a doctor on a calendar date
// @Tags Availability
// @Produce json
// @Param id path string true "Doctor ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /doctors/{id}/slots [get]
func (h *DoctorHandler) ListSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}

	slots, err := h.slots.ListAvailable(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, slots, nil)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
