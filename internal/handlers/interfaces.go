package handlers

import (
	"clinic-console-server/internal/models"
	"clinic-console-server/internal/services"
)

// ConversationServiceInterface defines the contract for conversation operations
// This interface is used for dependency injection and testing
type ConversationServiceInterface interface {
	ListConversations(actor models.Actor) ([]*models.ConversationSummary, error)
	GetVisible(actor models.Actor, conversationID string) (*models.Conversation, error)
	CreateConversation(actor models.Actor, patientID, channel, subject, priority string) (*models.Conversation, error)
	Claim(actor models.Actor, conversationID string) (*models.Conversation, error)
	Reassign(actor models.Actor, conversationID, newAttendantID string) error
	SetStatus(actor models.Actor, conversationID, status string) error
	OpenDirectory(actor models.Actor) (*services.DirectoryView, error)
}

// MessageServiceInterface defines the contract for message operations
type MessageServiceInterface interface {
	ListMessages(conversationID string) ([]*models.Message, error)
	Send(conversationID, senderID, content, channel string) (*models.Message, error)
	SetStatus(conversationID, messageID, status string) error
}

// AppointmentServiceInterface defines the contract for appointment operations
type AppointmentServiceInterface interface {
	ListUpcoming(actor models.Actor, patientID string) ([]*models.Appointment, error)
	Schedule(actor models.Actor, req models.ScheduleAppointmentRequest) (*models.Appointment, error)
	SetStatus(actor models.Actor, appointmentID, status string) error
}

// PerformanceServiceInterface defines the contract for performance queries
type PerformanceServiceInterface interface {
	ComputeDaily(actor models.Actor) (*models.PerformanceSnapshot, error)
	TeamStats(actor models.Actor) ([]*models.TeamMemberStats, error)
}
