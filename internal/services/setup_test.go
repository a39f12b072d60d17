package services

import (
	"testing"
	"time"

	"clinic-console-server/internal/bus"
	"clinic-console-server/internal/db"
	"clinic-console-server/internal/models"

	"github.com/stretchr/testify/require"
)

// testEnv wires real SQLite repositories and the in-process bus together the
// way the server does, so service tests exercise the full read/write path.
type testEnv struct {
	convRepo    db.ConversationRepository
	msgRepo     db.MessageRepository
	apptRepo    db.AppointmentRepository
	profileRepo db.ProfileRepository
	bus         *bus.MemoryBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := db.SetupTestDB(t)
	env := &testEnv{
		convRepo:    db.NewConversationRepository(database),
		msgRepo:     db.NewMessageRepository(database),
		apptRepo:    db.NewAppointmentRepository(database),
		profileRepo: db.NewProfileRepository(database),
		bus:         bus.NewMemoryBus(),
	}
	t.Cleanup(func() {
		require.NoError(t, env.bus.Close())
	})
	return env
}

func (e *testEnv) conversationService() *ConversationService {
	return NewConversationService(e.convRepo, e.profileRepo, e.bus)
}

func (e *testEnv) messageService() *MessageService {
	return NewMessageService(e.msgRepo, e.convRepo, e.bus)
}

func (e *testEnv) appointmentService() *AppointmentService {
	return NewAppointmentService(e.apptRepo, e.profileRepo, e.bus)
}

func (e *testEnv) performanceService() *PerformanceService {
	return NewPerformanceService(e.convRepo, e.msgRepo, e.profileRepo)
}

// addProfile inserts a profile and returns the actor it resolves to
func (e *testEnv) addProfile(t *testing.T, id string, role models.Role) models.Actor {
	t.Helper()
	profile := &models.Profile{
		ID:       id,
		FullName: "Profile " + id,
		Email:    id + "@clinic.example",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, e.profileRepo.Create(profile))
	return profile.Actor()
}

// addConversation inserts a conversation row directly, bypassing the service
func (e *testEnv) addConversation(t *testing.T, id, patientID string, attendantID *string, createdAt time.Time) *models.Conversation {
	t.Helper()
	conv := &models.Conversation{
		ID:          id,
		PatientID:   patientID,
		AttendantID: attendantID,
		Channel:     models.ChannelWhatsApp,
		CreatedAt:   createdAt,
	}
	require.NoError(t, e.convRepo.Create(conv))
	return conv
}

// addMessage inserts a message row directly. A nil senderID records a
// system message.
func (e *testEnv) addMessage(t *testing.T, conversationID string, senderID *string, content string, createdAt time.Time) *models.Message {
	t.Helper()
	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Channel:        models.ChannelWhatsApp,
		CreatedAt:      createdAt,
	}
	require.NoError(t, e.msgRepo.Create(msg))
	return msg
}

func strptr(s string) *string { return &s }
