package db

import (
	"database/sql"
	"fmt"
	"time"

	"clinic-console-server/internal/models"

	"github.com/google/uuid"
)

// ConversationRepository defines the interface for conversation data access
type ConversationRepository interface {
	Create(conv *models.Conversation) error
	GetByID(id string) (*models.Conversation, error)
	// ListSummaries returns conversations matching the scope fragment,
	// annotated with display names and the newest message preview, ordered
	// by last_message_at descending with conversation id as tie-break.
	ListSummaries(scopeClause string, scopeArgs []any) ([]*models.ConversationSummary, error)
	ListCreatedSince(since time.Time, attendantID string) ([]*models.Conversation, error)
	// Claim assigns the conversation to the attendant only if it is still
	// unassigned. Returns false when another attendant won the race.
	Claim(id, attendantID string) (bool, error)
	SetAttendant(id string, attendantID *string) error
	SetStatus(id string, status models.ConversationStatus) error
	TouchLastMessage(id string, at time.Time) error
}

type conversationRepository struct {
	db *sql.DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *sql.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

const conversationColumns = `c.id, c.patient_id, c.attendant_id, c.channel, c.status, c.priority, c.subject, c.created_at, c.last_message_at`

func scanConversation(scanner interface{ Scan(...any) error }, conv *models.Conversation) error {
	var attendantID, subject sql.NullString
	err := scanner.Scan(
		&conv.ID,
		&conv.PatientID,
		&attendantID,
		&conv.Channel,
		&conv.Status,
		&conv.Priority,
		&subject,
		&conv.CreatedAt,
		&conv.LastMessageAt,
	)
	if err != nil {
		return err
	}
	if attendantID.Valid {
		conv.AttendantID = &attendantID.String
	}
	if subject.Valid {
		conv.Subject = &subject.String
	}
	return nil
}

// Create inserts a new conversation. ID and timestamps are assigned here when
// missing; last_message_at starts equal to created_at.
func (r *conversationRepository) Create(conv *models.Conversation) error {
	if conv == nil {
		return fmt.Errorf("conversation cannot be nil")
	}
	if conv.PatientID == "" {
		return fmt.Errorf("patient ID is required")
	}

	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.LastMessageAt.IsZero() {
		conv.LastMessageAt = conv.CreatedAt
	}
	if conv.Status == "" {
		conv.Status = models.ConversationOpen
	}
	if conv.Priority == "" {
		conv.Priority = models.PriorityMedium
	}

	query := `
		INSERT INTO conversations (id, patient_id, attendant_id, channel, status, priority, subject, created_at, last_message_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		conv.ID,
		conv.PatientID,
		conv.AttendantID,
		conv.Channel,
		conv.Status,
		conv.Priority,
		conv.Subject,
		conv.CreatedAt,
		conv.LastMessageAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

// GetByID retrieves a conversation by ID, returning nil when absent
func (r *conversationRepository) GetByID(id string) (*models.Conversation, error) {
	if id == "" {
		return nil, fmt.Errorf("conversation ID cannot be empty")
	}

	query := `SELECT ` + conversationColumns + ` FROM conversations c WHERE c.id = ?`

	conv := &models.Conversation{}
	err := scanConversation(r.db.QueryRow(query, id), conv)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// ListSummaries lists scoped conversations with names and previews in one
// joined query; the correlated subquery picks the newest message per row.
func (r *conversationRepository) ListSummaries(scopeClause string, scopeArgs []any) ([]*models.ConversationSummary, error) {
	where := ""
	if scopeClause != "" {
		where = "WHERE " + scopeClause
	}

	query := `
		SELECT ` + conversationColumns + `,
			p.full_name,
			a.full_name,
			(SELECT m.content FROM messages m
				WHERE m.conversation_id = c.id
				ORDER BY m.created_at DESC, m.id DESC LIMIT 1)
		FROM conversations c
		JOIN profiles p ON p.id = c.patient_id
		LEFT JOIN profiles a ON a.id = c.attendant_id
		` + where + `
		ORDER BY c.last_message_at DESC, c.id ASC
	`

	rows, err := r.db.Query(query, scopeArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var summaries []*models.ConversationSummary
	for rows.Next() {
		var attendantID, subject, attendantName, preview sql.NullString
		s := &models.ConversationSummary{}
		err := rows.Scan(
			&s.ID,
			&s.PatientID,
			&attendantID,
			&s.Channel,
			&s.Status,
			&s.Priority,
			&subject,
			&s.CreatedAt,
			&s.LastMessageAt,
			&s.PatientName,
			&attendantName,
			&preview,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation summary: %w", err)
		}
		if attendantID.Valid {
			s.AttendantID = &attendantID.String
		}
		if subject.Valid {
			s.Subject = &subject.String
		}
		if attendantName.Valid {
			s.AttendantName = &attendantName.String
		}
		if preview.Valid {
			s.Preview = &preview.String
		}
		summaries = append(summaries, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

// ListCreatedSince returns conversations created at or after the given time.
// An empty attendantID means no attendant filter.
func (r *conversationRepository) ListCreatedSince(since time.Time, attendantID string) ([]*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations c WHERE c.created_at >= ?`
	args := []any{since}
	if attendantID != "" {
		query += ` AND c.attendant_id = ?`
		args = append(args, attendantID)
	}
	query += ` ORDER BY c.created_at ASC, c.id ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations since %v: %w", since, err)
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		conv := &models.Conversation{}
		if err := scanConversation(rows, conv); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return convs, nil
}

// Claim performs the conditional assignment. The WHERE clause is the
// optimistic-concurrency check: only one of two racing attendants can
// match attendant_id IS NULL.
func (r *conversationRepository) Claim(id, attendantID string) (bool, error) {
	if id == "" || attendantID == "" {
		return false, fmt.Errorf("conversation ID and attendant ID are required")
	}

	result, err := r.db.Exec(
		`UPDATE conversations SET attendant_id = ?, status = ? WHERE id = ? AND attendant_id IS NULL`,
		attendantID, models.ConversationAssigned, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}

	return affected == 1, nil
}

// SetAttendant reassigns (or unassigns) the conversation unconditionally.
// Callers are responsible for the role check on who may reassign.
func (r *conversationRepository) SetAttendant(id string, attendantID *string) error {
	if id == "" {
		return fmt.Errorf("conversation ID cannot be empty")
	}

	_, err := r.db.Exec(`UPDATE conversations SET attendant_id = ? WHERE id = ?`, attendantID, id)
	if err != nil {
		return fmt.Errorf("failed to set attendant: %w", err)
	}
	return nil
}

// SetStatus updates the conversation lifecycle state
func (r *conversationRepository) SetStatus(id string, status models.ConversationStatus) error {
	if id == "" {
		return fmt.Errorf("conversation ID cannot be empty")
	}

	_, err := r.db.Exec(`UPDATE conversations SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set conversation status: %w", err)
	}
	return nil
}

// TouchLastMessage bumps last_message_at, keeping it monotonic so a late
// update for an older message never rewinds it
func (r *conversationRepository) TouchLastMessage(id string, at time.Time) error {
	if id == "" {
		return fmt.Errorf("conversation ID cannot be empty")
	}

	_, err := r.db.Exec(
		`UPDATE conversations SET last_message_at = ? WHERE id = ? AND last_message_at < ?`,
		at, id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to touch last_message_at: %w", err)
	}
	return nil
}
