package handlers

import (
	"net/http"

	"clinic-console-server/internal/models"
	"clinic-console-server/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// AppointmentHandler handles appointment registry requests
type AppointmentHandler struct {
	appointments AppointmentServiceInterface
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(appointments AppointmentServiceInterface) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// List handles GET /api/appointments?patient_id=...
// Patients list their own upcoming appointments; staff may pass any patient id
func (h *AppointmentHandler) List(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	patientID := c.Query("patient_id")

	appointments, err := h.appointments.ListUpcoming(actor, patientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appointments": appointments})
}

// Schedule handles POST /api/appointments
func (h *AppointmentHandler) Schedule(c *gin.Context) {
	actor := middleware.ActorFromContext(c)

	var req models.ScheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Patient, title, time and duration are required"})
		return
	}

	appt, err := h.appointments.Schedule(actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, appt)
}

// SetStatus handles PATCH /api/appointments/:id/status
func (h *AppointmentHandler) SetStatus(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	appointmentID := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	if err := h.appointments.SetStatus(actor, appointmentID, req.Status); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}
