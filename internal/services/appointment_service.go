package services

import (
	"fmt"
	"sync"
	"time"

	"clinic-console-server/internal/bus"
	"clinic-console-server/internal/db"
	"clinic-console-server/internal/models"
	"clinic-console-server/pkg/logger"

	"go.uber.org/zap"
)

// AppointmentService owns the per-patient appointment registry
type AppointmentService struct {
	apptRepo    db.AppointmentRepository
	profileRepo db.ProfileRepository
	bus         bus.Bus

	now func() time.Time
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(apptRepo db.AppointmentRepository, profileRepo db.ProfileRepository, changeBus bus.Bus) *AppointmentService {
	return &AppointmentService{
		apptRepo:    apptRepo,
		profileRepo: profileRepo,
		bus:         changeBus,
		now:         time.Now,
	}
}

// ListUpcoming returns a patient's future appointments, soonest first.
// Patients may only list their own; staff may list any patient's.
func (s *AppointmentService) ListUpcoming(actor models.Actor, patientID string) ([]*models.Appointment, error) {
	if actor.IsZero() {
		return nil, ErrSession
	}
	if patientID == "" {
		patientID = actor.ID
	}
	if actor.Role == models.RolePatient && patientID != actor.ID {
		return nil, fmt.Errorf("%w: patients see only their own appointments", ErrForbidden)
	}

	appointments, err := s.apptRepo.ListUpcoming(patientID, s.now())
	if err != nil {
		return nil, transientErrorf("list appointments: %v", err)
	}
	if appointments == nil {
		appointments = []*models.Appointment{}
	}
	return appointments, nil
}

// Schedule books an appointment for a patient. Staff only; an attendant
// booking becomes the appointment's attendant.
func (s *AppointmentService) Schedule(actor models.Actor, req models.ScheduleAppointmentRequest) (*models.Appointment, error) {
	if actor.IsZero() {
		return nil, ErrSession
	}
	if actor.Role == models.RolePatient {
		return nil, fmt.Errorf("%w: appointments are booked by staff", ErrForbidden)
	}

	if req.PatientID == "" {
		return nil, validationErrorf("patient ID is required")
	}
	if req.Title == "" {
		return nil, validationErrorf("title is required")
	}
	if req.DurationMinutes <= 0 {
		return nil, validationErrorf("duration must be positive")
	}
	if !req.ScheduledAt.After(s.now()) {
		return nil, validationErrorf("scheduled time must be in the future")
	}

	patient, err := s.profileRepo.GetByID(req.PatientID)
	if err != nil {
		return nil, transientErrorf("look up patient: %v", err)
	}
	if patient == nil {
		return nil, fmt.Errorf("%w: patient %s", ErrNotFound, req.PatientID)
	}

	appt := &models.Appointment{
		PatientID:       req.PatientID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Title:           req.Title,
	}
	if actor.Role == models.RoleAttendant {
		attendantID := actor.ID
		appt.AttendantID = &attendantID
	}
	if req.Description != "" {
		appt.Description = &req.Description
	}

	if err := s.apptRepo.Create(appt); err != nil {
		return nil, transientErrorf("create appointment: %v", err)
	}

	s.publish(bus.Event{
		Table:     bus.TableAppointments,
		Op:        bus.OpInsert,
		RowID:     appt.ID,
		PatientID: appt.PatientID,
	})

	logger.Info("Appointment scheduled",
		zap.String("appointment_id", appt.ID),
		zap.String("patient_id", appt.PatientID),
		zap.Time("scheduled_at", appt.ScheduledAt),
	)

	return appt, nil
}

// SetStatus transitions an appointment through its lifecycle. Terminal
// states accept no further transitions.
func (s *AppointmentService) SetStatus(actor models.Actor, appointmentID, status string) error {
	if actor.IsZero() {
		return ErrSession
	}
	if actor.Role == models.RolePatient {
		return fmt.Errorf("%w: appointment status is managed by staff", ErrForbidden)
	}

	parsed, err := models.ParseAppointmentStatus(status)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	appt, err := s.apptRepo.GetByID(appointmentID)
	if err != nil {
		return transientErrorf("look up appointment: %v", err)
	}
	if appt == nil {
		return fmt.Errorf("%w: appointment %s", ErrNotFound, appointmentID)
	}
	if appt.Status.IsTerminal() {
		return validationErrorf("appointment %s is already %s", appointmentID, appt.Status)
	}

	if err := s.apptRepo.SetStatus(appointmentID, parsed); err != nil {
		return transientErrorf("set appointment status: %v", err)
	}

	s.publish(bus.Event{
		Table:     bus.TableAppointments,
		Op:        bus.OpUpdate,
		RowID:     appointmentID,
		PatientID: appt.PatientID,
	})
	return nil
}

func (s *AppointmentService) publish(event bus.Event) {
	if err := s.bus.Publish(event); err != nil {
		logger.Warn("Failed to publish change event",
			zap.String("table", event.Table),
			zap.String("row_id", event.RowID),
			zap.Error(err),
		)
	}
}

// AppointmentRegistry is the live list of one patient's upcoming
// appointments. Any appointments-table event for the patient (or an event
// without a patient id) triggers a full re-fetch; volumes per patient are
// small enough that coarse refresh stays cheap.
type AppointmentRegistry struct {
	patientID string
	svc       *AppointmentService

	mu       sync.Mutex
	seq      uint64
	snapshot []*models.Appointment
	closed   bool

	updates chan struct{}
	sub     *retrySubscription
}

// OpenRegistry starts a live appointment view for one patient
func (s *AppointmentService) OpenRegistry(patientID string) (*AppointmentRegistry, error) {
	if patientID == "" {
		return nil, validationErrorf("patient ID is required")
	}

	reg := &AppointmentRegistry{
		patientID: patientID,
		svc:       s,
		snapshot:  []*models.Appointment{},
		updates:   make(chan struct{}, 1),
	}

	reg.sub = subscribeWithRetry(s.bus, bus.TableAppointments, func(ev bus.Event) bool {
		return ev.PatientID == "" || ev.PatientID == patientID
	}, func(bus.Event) { reg.refresh() })

	reg.refresh()
	return reg, nil
}

func (r *AppointmentRegistry) refresh() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	appointments, err := r.svc.apptRepo.ListUpcoming(r.patientID, r.svc.now())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || seq < r.seq {
		return
	}
	if err != nil {
		logger.Warn("Appointment registry refresh failed, keeping last snapshot",
			zap.String("patient_id", r.patientID),
			zap.Error(err),
		)
		return
	}
	if appointments == nil {
		appointments = []*models.Appointment{}
	}

	r.snapshot = appointments
	select {
	case r.updates <- struct{}{}:
	default:
	}
}

// Snapshot returns the current upcoming appointments, ascending scheduled_at
func (r *AppointmentRegistry) Snapshot() []*models.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Appointment, len(r.snapshot))
	copy(out, r.snapshot)
	return out
}

// Updates signals after each applied refresh; closed when the registry closes
func (r *AppointmentRegistry) Updates() <-chan struct{} {
	return r.updates
}

// Close unsubscribes and discards in-flight fetches. Idempotent.
func (r *AppointmentRegistry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.updates)
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}
