package models

import "fmt"

// Role identifies what kind of actor is performing an operation
type Role string

const (
	RolePatient   Role = "patient"
	RoleAttendant Role = "attendant"
	RoleManager   Role = "manager"
)

// ParseRole validates a role literal coming from a token or the database
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleAttendant, RoleManager:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor is the authenticated party performing an operation.
// It is resolved once at the session boundary and passed explicitly
// into every core operation; there is no ambient current-actor state.
type Actor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// IsZero reports whether the actor is missing, i.e. no authenticated session
func (a Actor) IsZero() bool {
	return a.ID == "" || a.Role == ""
}
