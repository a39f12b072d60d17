package services

import (
	"clinic-console-server/internal/models"
)

// visibilityRule is one role's view of the conversation table, kept in two
// forms that must stay in lockstep: a Go predicate applied to loaded rows and
// the SQL scope fragment (over alias c) used when listing. The rule mirrors
// the server-side access policy bit for bit; any divergence is a defect.
type visibilityRule struct {
	allows func(actor models.Actor, conv *models.Conversation) bool
	scope  func(actor models.Actor) (string, []any)
}

var visibilityRules = map[models.Role]visibilityRule{
	// Patients see only conversations they own.
	models.RolePatient: {
		allows: func(actor models.Actor, conv *models.Conversation) bool {
			return conv.PatientID == actor.ID
		},
		scope: func(actor models.Actor) (string, []any) {
			return "c.patient_id = ?", []any{actor.ID}
		},
	},
	// Attendants see unclaimed conversations and their own; never a peer's.
	models.RoleAttendant: {
		allows: func(actor models.Actor, conv *models.Conversation) bool {
			return conv.AttendantID == nil || *conv.AttendantID == actor.ID
		},
		scope: func(actor models.Actor) (string, []any) {
			return "(c.attendant_id IS NULL OR c.attendant_id = ?)", []any{actor.ID}
		},
	},
	// Managers see everything.
	models.RoleManager: {
		allows: func(models.Actor, *models.Conversation) bool { return true },
		scope: func(models.Actor) (string, []any) {
			return "", nil
		},
	},
}

// VisibleTo reports whether the actor's role permits observing the conversation
func VisibleTo(actor models.Actor, conv *models.Conversation) bool {
	rule, ok := visibilityRules[actor.Role]
	if !ok {
		return false
	}
	return rule.allows(actor, conv)
}

// conversationScope returns the SQL fragment restricting a conversation
// listing to the actor's visibility
func conversationScope(actor models.Actor) (string, []any, bool) {
	rule, ok := visibilityRules[actor.Role]
	if !ok {
		return "", nil, false
	}
	clause, args := rule.scope(actor)
	return clause, args, true
}
