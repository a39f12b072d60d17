package db

import (
	"database/sql"
	"fmt"
	"time"

	"clinic-console-server/internal/models"

	"github.com/google/uuid"
)

// AppointmentRepository defines the interface for appointment data access
type AppointmentRepository interface {
	Create(appt *models.Appointment) error
	GetByID(id string) (*models.Appointment, error)
	// ListUpcoming returns a patient's appointments with scheduled_at strictly
	// after the given time, ascending.
	ListUpcoming(patientID string, after time.Time) ([]*models.Appointment, error)
	SetStatus(id string, status models.AppointmentStatus) error
}

type appointmentRepository struct {
	db *sql.DB
}

// NewAppointmentRepository creates a new AppointmentRepository
func NewAppointmentRepository(db *sql.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

const appointmentColumns = `id, patient_id, attendant_id, scheduled_at, duration_minutes, status, title, description, notes, created_at, updated_at`

func scanAppointment(scanner interface{ Scan(...any) error }, appt *models.Appointment) error {
	var attendantID, description, notes sql.NullString
	err := scanner.Scan(
		&appt.ID,
		&appt.PatientID,
		&attendantID,
		&appt.ScheduledAt,
		&appt.DurationMinutes,
		&appt.Status,
		&appt.Title,
		&description,
		&notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if attendantID.Valid {
		appt.AttendantID = &attendantID.String
	}
	if description.Valid {
		appt.Description = &description.String
	}
	if notes.Valid {
		appt.Notes = &notes.String
	}
	return nil
}

// Create inserts a new appointment, assigning ID and timestamps when missing
func (r *appointmentRepository) Create(appt *models.Appointment) error {
	if appt == nil {
		return fmt.Errorf("appointment cannot be nil")
	}
	if appt.PatientID == "" {
		return fmt.Errorf("patient ID is required")
	}
	if appt.Title == "" {
		return fmt.Errorf("title is required")
	}

	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	now := time.Now()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = appt.CreatedAt
	if appt.Status == "" {
		appt.Status = models.AppointmentScheduled
	}

	query := `
		INSERT INTO appointments (id, patient_id, attendant_id, scheduled_at, duration_minutes, status, title, description, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		appt.ID,
		appt.PatientID,
		appt.AttendantID,
		appt.ScheduledAt,
		appt.DurationMinutes,
		appt.Status,
		appt.Title,
		appt.Description,
		appt.Notes,
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

// GetByID retrieves an appointment by ID, returning nil when absent
func (r *appointmentRepository) GetByID(id string) (*models.Appointment, error) {
	if id == "" {
		return nil, fmt.Errorf("appointment ID cannot be empty")
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ?`

	appt := &models.Appointment{}
	err := scanAppointment(r.db.QueryRow(query, id), appt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return appt, nil
}

// ListUpcoming returns future appointments for a patient, soonest first
func (r *appointmentRepository) ListUpcoming(patientID string, after time.Time) ([]*models.Appointment, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient ID cannot be empty")
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE patient_id = ? AND scheduled_at > ? ORDER BY scheduled_at ASC, id ASC`

	rows, err := r.db.Query(query, patientID, after)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*models.Appointment
	for rows.Next() {
		appt := &models.Appointment{}
		if err := scanAppointment(rows, appt); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, appt)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return appointments, nil
}

// SetStatus transitions the appointment status and bumps updated_at
func (r *appointmentRepository) SetStatus(id string, status models.AppointmentStatus) error {
	if id == "" {
		return fmt.Errorf("appointment ID cannot be empty")
	}

	_, err := r.db.Exec(`UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set appointment status: %w", err)
	}
	return nil
}
