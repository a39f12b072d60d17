package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"clinic-console-server/internal/models"
	"clinic-console-server/internal/services"
	"clinic-console-server/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

// MockConversationService is a mock implementation of ConversationServiceInterface
type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) ListConversations(actor models.Actor) ([]*models.ConversationSummary, error) {
	args := m.Called(actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ConversationSummary), args.Error(1)
}

func (m *MockConversationService) GetVisible(actor models.Actor, conversationID string) (*models.Conversation, error) {
	args := m.Called(actor, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationService) CreateConversation(actor models.Actor, patientID, channel, subject, priority string) (*models.Conversation, error) {
	args := m.Called(actor, patientID, channel, subject, priority)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationService) Claim(actor models.Actor, conversationID string) (*models.Conversation, error) {
	args := m.Called(actor, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationService) Reassign(actor models.Actor, conversationID, newAttendantID string) error {
	args := m.Called(actor, conversationID, newAttendantID)
	return args.Error(0)
}

func (m *MockConversationService) SetStatus(actor models.Actor, conversationID, status string) error {
	args := m.Called(actor, conversationID, status)
	return args.Error(0)
}

func (m *MockConversationService) OpenDirectory(actor models.Actor) (*services.DirectoryView, error) {
	args := m.Called(actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DirectoryView), args.Error(1)
}

// MockMessageService is a mock implementation of MessageServiceInterface
type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) ListMessages(conversationID string) ([]*models.Message, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *MockMessageService) Send(conversationID, senderID, content, channel string) (*models.Message, error) {
	args := m.Called(conversationID, senderID, content, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageService) SetStatus(conversationID, messageID, status string) error {
	args := m.Called(conversationID, messageID, status)
	return args.Error(0)
}

// MockAppointmentService is a mock implementation of AppointmentServiceInterface
type MockAppointmentService struct {
	mock.Mock
}

func (m *MockAppointmentService) ListUpcoming(actor models.Actor, patientID string) ([]*models.Appointment, error) {
	args := m.Called(actor, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}

func (m *MockAppointmentService) Schedule(actor models.Actor, req models.ScheduleAppointmentRequest) (*models.Appointment, error) {
	args := m.Called(actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentService) SetStatus(actor models.Actor, appointmentID, status string) error {
	args := m.Called(actor, appointmentID, status)
	return args.Error(0)
}

// MockPerformanceService is a mock implementation of PerformanceServiceInterface
type MockPerformanceService struct {
	mock.Mock
}

func (m *MockPerformanceService) ComputeDaily(actor models.Actor) (*models.PerformanceSnapshot, error) {
	args := m.Called(actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PerformanceSnapshot), args.Error(1)
}

func (m *MockPerformanceService) TeamStats(actor models.Actor) ([]*models.TeamMemberStats, error) {
	args := m.Called(actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TeamMemberStats), args.Error(1)
}

// performRequest runs a request through a gin engine that injects the given
// actor the way ActorMiddleware would
func performRequest(t *testing.T, actor models.Actor, method, path, body string, register func(r *gin.Engine)) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if !actor.IsZero() {
			c.Set(middleware.ActorContextKey, actor)
		}
		c.Next()
	})
	register(engine)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}
