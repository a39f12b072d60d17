package models

import (
	"fmt"
	"time"
)

// Channel is the communication channel a conversation or message arrived on
type Channel string

const (
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelInstagram Channel = "instagram"
	ChannelFacebook  Channel = "facebook"
	ChannelEmail     Channel = "email"
	ChannelPhone     Channel = "phone"
	ChannelWebChat   Channel = "web_chat"
)

// ParseChannel validates a channel literal
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelWhatsApp, ChannelInstagram, ChannelFacebook, ChannelEmail, ChannelPhone, ChannelWebChat:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown channel %q", s)
}

// ConversationStatus is the lifecycle state of a conversation
type ConversationStatus string

const (
	ConversationOpen     ConversationStatus = "open"
	ConversationAssigned ConversationStatus = "assigned"
	ConversationResolved ConversationStatus = "resolved"
	ConversationClosed   ConversationStatus = "closed"
)

// ParseConversationStatus validates a conversation status literal
func ParseConversationStatus(s string) (ConversationStatus, error) {
	switch ConversationStatus(s) {
	case ConversationOpen, ConversationAssigned, ConversationResolved, ConversationClosed:
		return ConversationStatus(s), nil
	}
	return "", fmt.Errorf("unknown conversation status %q", s)
}

// Priority ranks how urgently a conversation needs attention
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority validates a priority literal
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Conversation is a multi-channel thread between a patient and the clinic.
// Exactly one patient owns it; AttendantID is nil until an attendant claims it.
type Conversation struct {
	ID            string             `json:"id"`
	PatientID     string             `json:"patient_id"`
	AttendantID   *string            `json:"attendant_id"`
	Channel       Channel            `json:"channel"`
	Status        ConversationStatus `json:"status"`
	Priority      Priority           `json:"priority"`
	Subject       *string            `json:"subject"`
	CreatedAt     time.Time          `json:"created_at"`
	LastMessageAt time.Time          `json:"last_message_at"`
}

// ConversationSummary is a directory row: the conversation annotated with
// display names and a one-line preview of its newest message.
// Preview is nil for a conversation with no messages yet.
type ConversationSummary struct {
	Conversation
	PatientName   string  `json:"patient_name"`
	AttendantName *string `json:"attendant_name"`
	Preview       *string `json:"preview"`
}

// CreateConversationRequest is the request body for opening a conversation
type CreateConversationRequest struct {
	Channel  string `json:"channel" binding:"required"`
	Subject  string `json:"subject"`
	Priority string `json:"priority"`
}
