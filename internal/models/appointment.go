package models

import (
	"fmt"
	"time"
)

// AppointmentStatus is the lifecycle state of an appointment.
// completed, cancelled and no_show are terminal.
type AppointmentStatus string

const (
	AppointmentScheduled  AppointmentStatus = "scheduled"
	AppointmentConfirmed  AppointmentStatus = "confirmed"
	AppointmentInProgress AppointmentStatus = "in_progress"
	AppointmentCompleted  AppointmentStatus = "completed"
	AppointmentCancelled  AppointmentStatus = "cancelled"
	AppointmentNoShow     AppointmentStatus = "no_show"
)

// ParseAppointmentStatus validates an appointment status literal
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	switch AppointmentStatus(s) {
	case AppointmentScheduled, AppointmentConfirmed, AppointmentInProgress,
		AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
		return AppointmentStatus(s), nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// IsTerminal reports whether no further status transitions are allowed
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled || s == AppointmentNoShow
}

// Appointment is a scheduled consultation for a patient
type Appointment struct {
	ID              string            `json:"id"`
	PatientID       string            `json:"patient_id"`
	AttendantID     *string           `json:"attendant_id"`
	ScheduledAt     time.Time         `json:"scheduled_at"`
	DurationMinutes int               `json:"duration_minutes"`
	Status          AppointmentStatus `json:"status"`
	Title           string            `json:"title"`
	Description     *string           `json:"description"`
	Notes           *string           `json:"notes"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ScheduleAppointmentRequest is the request body for booking an appointment
type ScheduleAppointmentRequest struct {
	PatientID       string    `json:"patient_id" binding:"required"`
	Title           string    `json:"title" binding:"required"`
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required"`
	Description     string    `json:"description"`
}
