package services

import (
	"fmt"
	"time"

	"clinic-console-server/internal/db"
	"clinic-console-server/internal/models"
)

// PerformanceService derives daily conversation metrics from real
// timestamps. First-response latency for a conversation is the gap between
// its creation and the created_at of its first message sent by someone
// other than the patient; system messages (nil sender) do not count as a
// response.
type PerformanceService struct {
	convRepo    db.ConversationRepository
	msgRepo     db.MessageRepository
	profileRepo db.ProfileRepository

	now func() time.Time
}

// NewPerformanceService creates a new performance service
func NewPerformanceService(convRepo db.ConversationRepository, msgRepo db.MessageRepository, profileRepo db.ProfileRepository) *PerformanceService {
	return &PerformanceService{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		profileRepo: profileRepo,
		now:         time.Now,
	}
}

// ComputeDaily summarizes conversations created since local midnight.
// Attendants are scoped to conversations assigned to them; managers get the
// system-wide window. Patients have no performance dashboard.
func (s *PerformanceService) ComputeDaily(actor models.Actor) (*models.PerformanceSnapshot, error) {
	if actor.IsZero() {
		return nil, ErrSession
	}

	var attendantID string
	switch actor.Role {
	case models.RoleAttendant:
		attendantID = actor.ID
	case models.RoleManager:
		// system-wide
	default:
		return nil, fmt.Errorf("%w: no performance dashboard for role %q", ErrForbidden, actor.Role)
	}

	windowStart := localMidnight(s.now())
	return s.computeWindow(windowStart, attendantID)
}

// TeamStats builds the manager dashboard: today's load and latency per
// active staff member
func (s *PerformanceService) TeamStats(actor models.Actor) ([]*models.TeamMemberStats, error) {
	if actor.IsZero() {
		return nil, ErrSession
	}
	if actor.Role != models.RoleManager {
		return nil, fmt.Errorf("%w: team stats are manager-only", ErrForbidden)
	}

	staff, err := s.profileRepo.ListActiveStaff()
	if err != nil {
		return nil, transientErrorf("list staff: %v", err)
	}

	windowStart := localMidnight(s.now())
	stats := make([]*models.TeamMemberStats, 0, len(staff))
	for _, member := range staff {
		snapshot, err := s.computeWindow(windowStart, member.ID)
		if err != nil {
			return nil, err
		}
		stats = append(stats, &models.TeamMemberStats{
			ProfileID:          member.ID,
			FullName:           member.FullName,
			Role:               member.Role,
			ConversationsToday: snapshot.TotalConversations,
			AvgFirstResponse:   snapshot.AvgFirstResponse,
		})
	}

	return stats, nil
}

// computeWindow aggregates counts and the mean first-response latency for
// conversations created at or after windowStart. Conversations without a
// response count toward pending but are excluded from the mean.
func (s *PerformanceService) computeWindow(windowStart time.Time, attendantID string) (*models.PerformanceSnapshot, error) {
	conversations, err := s.convRepo.ListCreatedSince(windowStart, attendantID)
	if err != nil {
		return nil, transientErrorf("list conversations: %v", err)
	}

	snapshot := &models.PerformanceSnapshot{WindowStart: windowStart}
	if len(conversations) == 0 {
		return snapshot, nil
	}

	ids := make([]string, 0, len(conversations))
	byID := make(map[string]*models.Conversation, len(conversations))
	for _, conv := range conversations {
		ids = append(ids, conv.ID)
		byID[conv.ID] = conv

		snapshot.TotalConversations++
		switch conv.Status {
		case models.ConversationResolved:
			snapshot.ResolvedConversations++
		case models.ConversationOpen, models.ConversationAssigned:
			snapshot.PendingConversations++
		}
	}

	messages, err := s.msgRepo.ListByConversations(ids)
	if err != nil {
		return nil, transientErrorf("list messages: %v", err)
	}

	// Messages arrive ordered by created_at, so the first qualifying one per
	// conversation is its first response.
	firstResponse := make(map[string]time.Time)
	for _, msg := range messages {
		if _, seen := firstResponse[msg.ConversationID]; seen {
			continue
		}
		conv := byID[msg.ConversationID]
		if conv == nil || msg.SenderID == nil || *msg.SenderID == conv.PatientID {
			continue
		}
		firstResponse[msg.ConversationID] = msg.CreatedAt
	}

	var total time.Duration
	for id, respondedAt := range firstResponse {
		total += respondedAt.Sub(byID[id].CreatedAt)
	}
	snapshot.RespondedConversations = len(firstResponse)
	if snapshot.RespondedConversations > 0 {
		snapshot.AvgFirstResponse = total / time.Duration(snapshot.RespondedConversations)
	}

	return snapshot, nil
}

// localMidnight truncates to the start of the day in the local time zone
func localMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
