package models

import (
	"fmt"
	"time"
)

// MessageStatus is the delivery state of a message
type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
	MessageFailed    MessageStatus = "failed"
)

// ParseMessageStatus validates a message status literal
func ParseMessageStatus(s string) (MessageStatus, error) {
	switch MessageStatus(s) {
	case MessageSent, MessageDelivered, MessageRead, MessageFailed:
		return MessageStatus(s), nil
	}
	return "", fmt.Errorf("unknown message status %q", s)
}

// MessageTypeText is the default message type for operator and patient text
const MessageTypeText = "text"

// Message is a single entry in a conversation's append-only log.
// SenderID is nil for system/automated messages. Messages are never
// mutated after creation apart from delivery status transitions.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	SenderID       *string       `json:"sender_id"`
	Content        string        `json:"content"`
	Channel        Channel       `json:"channel"`
	MessageType    string        `json:"message_type"`
	Status         MessageStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// SendMessageRequest is the request body for sending a message
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	Channel string `json:"channel" binding:"required"`
}
