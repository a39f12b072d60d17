package services

import (
	"fmt"

	"clinic-console-server/internal/bus"
	"clinic-console-server/internal/db"
	"clinic-console-server/internal/models"
	"clinic-console-server/pkg/logger"

	"go.uber.org/zap"
)

// ConversationService owns the conversation directory: role-scoped listing,
// creation, claiming and lifecycle transitions.
type ConversationService struct {
	convRepo    db.ConversationRepository
	profileRepo db.ProfileRepository
	bus         bus.Bus
}

// NewConversationService creates a new conversation service
func NewConversationService(convRepo db.ConversationRepository, profileRepo db.ProfileRepository, changeBus bus.Bus) *ConversationService {
	return &ConversationService{
		convRepo:    convRepo,
		profileRepo: profileRepo,
		bus:         changeBus,
	}
}

// ListConversations returns the actor's role-scoped directory, newest
// activity first. The visibility predicate is re-applied to the loaded rows
// so no row the role may not observe can ever be returned, whatever the
// store said.
func (s *ConversationService) ListConversations(actor models.Actor) ([]*models.ConversationSummary, error) {
	if actor.IsZero() {
		return nil, ErrSession
	}

	clause, args, ok := conversationScope(actor)
	if !ok {
		return nil, fmt.Errorf("%w: role %q", ErrForbidden, actor.Role)
	}

	summaries, err := s.convRepo.ListSummaries(clause, args)
	if err != nil {
		return nil, transientErrorf("list conversations: %v", err)
	}

	visible := summaries[:0]
	for _, summary := range summaries {
		if VisibleTo(actor, &summary.Conversation) {
			visible = append(visible, summary)
		}
	}

	return visible, nil
}

// GetVisible loads one conversation, enforcing the directory visibility rule
// on direct access. A conversation outside the actor's scope reads as absent
// so its existence cannot be probed by id.
func (s *ConversationService) GetVisible(actor models.Actor, conversationID string) (*models.Conversation, error) {
	if actor.IsZero() {
		return nil, ErrSession
	}
	if conversationID == "" {
		return nil, validationErrorf("conversation ID is required")
	}

	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return nil, transientErrorf("look up conversation: %v", err)
	}
	if conv == nil || !VisibleTo(actor, conv) {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}
	return conv, nil
}

// CreateConversation opens a new conversation for a patient. Patients open
// their own; attendants and managers may open one on a patient's behalf
// (the booking flow).
func (s *ConversationService) CreateConversation(actor models.Actor, patientID, channel, subject, priority string) (*models.Conversation, error) {
	if actor.IsZero() {
		return nil, ErrSession
	}
	if actor.Role == models.RolePatient {
		patientID = actor.ID
	}
	if patientID == "" {
		return nil, validationErrorf("patient ID is required")
	}

	ch, err := models.ParseChannel(channel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	prio := models.PriorityMedium
	if priority != "" {
		prio, err = models.ParsePriority(priority)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	patient, err := s.profileRepo.GetByID(patientID)
	if err != nil {
		return nil, transientErrorf("look up patient: %v", err)
	}
	if patient == nil {
		return nil, fmt.Errorf("%w: patient %s", ErrNotFound, patientID)
	}

	conv := &models.Conversation{
		PatientID: patientID,
		Channel:   ch,
		Priority:  prio,
	}
	if subject != "" {
		conv.Subject = &subject
	}

	if err := s.convRepo.Create(conv); err != nil {
		return nil, transientErrorf("create conversation: %v", err)
	}

	s.publish(bus.Event{Table: bus.TableConversations, Op: bus.OpInsert, RowID: conv.ID})

	logger.Info("Conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("patient_id", patientID),
		zap.String("channel", string(ch)),
	)

	return conv, nil
}

// Claim assigns an unassigned conversation to the calling attendant.
// The assignment is a single conditional update; losing the race returns
// a conflict so the caller refreshes and shows the winner.
func (s *ConversationService) Claim(actor models.Actor, conversationID string) (*models.Conversation, error) {
	if actor.IsZero() {
		return nil, ErrSession
	}
	if actor.Role != models.RoleAttendant {
		return nil, fmt.Errorf("%w: only attendants claim conversations", ErrForbidden)
	}

	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return nil, transientErrorf("look up conversation: %v", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}

	claimed, err := s.convRepo.Claim(conversationID, actor.ID)
	if err != nil {
		return nil, transientErrorf("claim conversation: %v", err)
	}
	if !claimed {
		return nil, fmt.Errorf("%w: conversation %s already claimed", ErrConflict, conversationID)
	}

	s.publish(bus.Event{Table: bus.TableConversations, Op: bus.OpUpdate, RowID: conversationID})

	logger.Info("Conversation claimed",
		zap.String("conversation_id", conversationID),
		zap.String("attendant_id", actor.ID),
	)

	return s.convRepo.GetByID(conversationID)
}

// Reassign hands a claimed conversation to another attendant. Only a manager
// or the attendant currently holding it may reassign.
func (s *ConversationService) Reassign(actor models.Actor, conversationID, newAttendantID string) error {
	if actor.IsZero() {
		return ErrSession
	}

	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return transientErrorf("look up conversation: %v", err)
	}
	if conv == nil {
		return fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}

	holder := actor.Role == models.RoleAttendant && conv.AttendantID != nil && *conv.AttendantID == actor.ID
	if actor.Role != models.RoleManager && !holder {
		return fmt.Errorf("%w: only the manager or the current attendant may reassign", ErrForbidden)
	}

	var attendant *string
	if newAttendantID != "" {
		profile, err := s.profileRepo.GetByID(newAttendantID)
		if err != nil {
			return transientErrorf("look up attendant: %v", err)
		}
		if profile == nil {
			return fmt.Errorf("%w: attendant %s", ErrNotFound, newAttendantID)
		}
		attendant = &newAttendantID
	}

	if err := s.convRepo.SetAttendant(conversationID, attendant); err != nil {
		return transientErrorf("reassign conversation: %v", err)
	}

	s.publish(bus.Event{Table: bus.TableConversations, Op: bus.OpUpdate, RowID: conversationID})
	return nil
}

// SetStatus transitions a conversation's lifecycle state. Attendants and
// managers resolve and close; patients may not.
func (s *ConversationService) SetStatus(actor models.Actor, conversationID, status string) error {
	if actor.IsZero() {
		return ErrSession
	}
	if actor.Role == models.RolePatient {
		return fmt.Errorf("%w: patients cannot change conversation status", ErrForbidden)
	}

	parsed, err := models.ParseConversationStatus(status)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return transientErrorf("look up conversation: %v", err)
	}
	if conv == nil {
		return fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}

	if err := s.convRepo.SetStatus(conversationID, parsed); err != nil {
		return transientErrorf("set conversation status: %v", err)
	}

	s.publish(bus.Event{Table: bus.TableConversations, Op: bus.OpUpdate, RowID: conversationID})

	logger.Info("Conversation status changed",
		zap.String("conversation_id", conversationID),
		zap.String("status", status),
		zap.String("actor_id", actor.ID),
	)

	return nil
}

// publish forwards a change event. Publish failures are logged, never
// propagated: the write already happened and views catch up on the next event.
func (s *ConversationService) publish(event bus.Event) {
	if err := s.bus.Publish(event); err != nil {
		logger.Warn("Failed to publish change event",
			zap.String("table", event.Table),
			zap.String("row_id", event.RowID),
			zap.Error(err),
		)
	}
}
