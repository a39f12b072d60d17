package models

import "time"

// PerformanceSnapshot summarizes conversation activity for one actor (or
// system-wide for managers) inside a time window. Derived on demand, never
// persisted.
type PerformanceSnapshot struct {
	WindowStart time.Time `json:"window_start"`

	TotalConversations    int `json:"total_conversations"`
	ResolvedConversations int `json:"resolved_conversations"`
	// Pending counts conversations still open or assigned.
	PendingConversations int `json:"pending_conversations"`

	// AvgFirstResponse is the mean time between a conversation's creation and
	// its first non-patient message, over conversations in the window that
	// have at least one such response. Zero when no conversation has responded.
	AvgFirstResponse time.Duration `json:"avg_first_response_ns"`
	// RespondedConversations is the number of conversations included in the mean.
	RespondedConversations int `json:"responded_conversations"`
}

// TeamMemberStats is one row of the manager team dashboard
type TeamMemberStats struct {
	ProfileID          string        `json:"profile_id"`
	FullName           string        `json:"full_name"`
	Role               Role          `json:"role"`
	ConversationsToday int           `json:"conversations_today"`
	AvgFirstResponse   time.Duration `json:"avg_first_response_ns"`
}
