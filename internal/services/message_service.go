package services

import (
	"fmt"
	"strings"

	"clinic-console-server/internal/bus"
	"clinic-console-server/internal/db"
	"clinic-console-server/internal/models"
	"clinic-console-server/pkg/logger"

	"go.uber.org/zap"
)

// MessageService owns the per-conversation message log and the send path
type MessageService struct {
	msgRepo  db.MessageRepository
	convRepo db.ConversationRepository
	bus      bus.Bus
}

// NewMessageService creates a new message service
func NewMessageService(msgRepo db.MessageRepository, convRepo db.ConversationRepository, changeBus bus.Bus) *MessageService {
	return &MessageService{
		msgRepo:  msgRepo,
		convRepo: convRepo,
		bus:      changeBus,
	}
}

// ListMessages returns the conversation's full ordered log, oldest first.
// A conversation with no messages yields an empty slice, not an error.
func (s *MessageService) ListMessages(conversationID string) ([]*models.Message, error) {
	if conversationID == "" {
		return nil, validationErrorf("conversation ID is required")
	}

	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return nil, transientErrorf("look up conversation: %v", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}

	messages, err := s.msgRepo.ListByConversation(conversationID)
	if err != nil {
		return nil, transientErrorf("list messages: %v", err)
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	return messages, nil
}

// Send appends a message to the conversation. Content must be non-empty
// after trimming. An empty senderID records a system/automated message.
// The channel is stored as given; a message may carry a different channel
// than its parent conversation (channel switch mid-conversation).
func (s *MessageService) Send(conversationID, senderID, content, channel string) (*models.Message, error) {
	if conversationID == "" {
		return nil, validationErrorf("conversation ID is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, validationErrorf("message content is empty")
	}

	ch, err := models.ParseChannel(channel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return nil, transientErrorf("look up conversation: %v", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}

	msg := &models.Message{
		ConversationID: conversationID,
		Content:        content,
		Channel:        ch,
	}
	if senderID != "" {
		msg.SenderID = &senderID
	}

	if err := s.msgRepo.Create(msg); err != nil {
		return nil, transientErrorf("create message: %v", err)
	}

	// last_message_at converges with the newest message; not transactional
	// with the insert, directory refreshes repair any gap.
	if err := s.convRepo.TouchLastMessage(conversationID, msg.CreatedAt); err != nil {
		logger.Warn("Failed to bump last_message_at",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}

	s.publish(bus.Event{
		Table:          bus.TableMessages,
		Op:             bus.OpInsert,
		RowID:          msg.ID,
		ConversationID: conversationID,
	})
	s.publish(bus.Event{Table: bus.TableConversations, Op: bus.OpUpdate, RowID: conversationID})

	return msg, nil
}

// SetStatus transitions a message's delivery status, the read-receipt path:
// clients mark messages delivered or read as they land on screen. The message
// must belong to the given conversation.
func (s *MessageService) SetStatus(conversationID, messageID, status string) error {
	if conversationID == "" {
		return validationErrorf("conversation ID is required")
	}
	if messageID == "" {
		return validationErrorf("message ID is required")
	}

	parsed, err := models.ParseMessageStatus(status)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msg, err := s.msgRepo.GetByID(messageID)
	if err != nil {
		return transientErrorf("look up message: %v", err)
	}
	if msg == nil || msg.ConversationID != conversationID {
		return fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}

	if err := s.msgRepo.UpdateStatus(messageID, parsed); err != nil {
		return transientErrorf("update message status: %v", err)
	}

	s.publish(bus.Event{
		Table:          bus.TableMessages,
		Op:             bus.OpUpdate,
		RowID:          messageID,
		ConversationID: conversationID,
	})

	return nil
}

func (s *MessageService) publish(event bus.Event) {
	if err := s.bus.Publish(event); err != nil {
		logger.Warn("Failed to publish change event",
			zap.String("table", event.Table),
			zap.String("row_id", event.RowID),
			zap.Error(err),
		)
	}
}
