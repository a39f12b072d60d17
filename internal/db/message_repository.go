package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"clinic-console-server/internal/models"

	"github.com/google/uuid"
)

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	Create(msg *models.Message) error
	GetByID(id string) (*models.Message, error)
	// ListByConversation returns the full ordered log, oldest first.
	ListByConversation(conversationID string) ([]*models.Message, error)
	// ListByConversations returns all messages of the given conversations in
	// created_at order, used by the performance aggregator.
	ListByConversations(conversationIDs []string) ([]*models.Message, error)
	UpdateStatus(id string, status models.MessageStatus) error
}

type messageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *sql.DB) MessageRepository {
	return &messageRepository{db: db}
}

const messageColumns = `id, conversation_id, sender_id, content, channel, message_type, status, created_at`

// Create inserts a new message. ID, created_at, message_type and status are
// assigned here when missing. Messages are append-only; there is no update
// path apart from delivery status.
func (r *messageRepository) Create(msg *models.Message) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}
	if msg.ConversationID == "" {
		return fmt.Errorf("conversation ID is required")
	}
	if msg.Content == "" {
		return fmt.Errorf("message content is required")
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if msg.MessageType == "" {
		msg.MessageType = models.MessageTypeText
	}
	if msg.Status == "" {
		msg.Status = models.MessageSent
	}

	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, channel, message_type, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.Content,
		msg.Channel,
		msg.MessageType,
		msg.Status,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// GetByID returns a message by id, or nil when absent
func (r *messageRepository) GetByID(id string) (*models.Message, error) {
	if id == "" {
		return nil, fmt.Errorf("message ID cannot be empty")
	}

	row := r.db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)

	var senderID sql.NullString
	msg := &models.Message{}
	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&senderID,
		&msg.Content,
		&msg.Channel,
		&msg.MessageType,
		&msg.Status,
		&msg.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if senderID.Valid {
		msg.SenderID = &senderID.String
	}
	return msg, nil
}

func (r *messageRepository) scanMessages(rows *sql.Rows) ([]*models.Message, error) {
	var messages []*models.Message
	for rows.Next() {
		var senderID sql.NullString
		msg := &models.Message{}
		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&senderID,
			&msg.Content,
			&msg.Channel,
			&msg.MessageType,
			&msg.Status,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if senderID.Valid {
			msg.SenderID = &senderID.String
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// ListByConversation returns the ordered log for one conversation.
// Message id breaks created_at ties so the order is stable across refreshes.
func (r *messageRepository) ListByConversation(conversationID string) ([]*models.Message, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation ID cannot be empty")
	}

	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	return r.scanMessages(rows)
}

// ListByConversations returns messages across several conversations in
// created_at order. Returns an empty slice for an empty id list.
func (r *messageRepository) ListByConversations(conversationIDs []string) ([]*models.Message, error) {
	if len(conversationIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(conversationIDs)), ", ")
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id IN (` + placeholders + `) ORDER BY created_at ASC, id ASC`

	args := make([]any, len(conversationIDs))
	for i, id := range conversationIDs {
		args[i] = id
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for conversations: %w", err)
	}
	defer rows.Close()

	return r.scanMessages(rows)
}

// UpdateStatus transitions a message's delivery status
func (r *messageRepository) UpdateStatus(id string, status models.MessageStatus) error {
	if id == "" {
		return fmt.Errorf("message ID cannot be empty")
	}

	_, err := r.db.Exec(`UPDATE messages SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	return nil
}
