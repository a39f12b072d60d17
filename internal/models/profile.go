package models

// Profile is a directory entry for any actor known to the clinic.
// Profiles are owned by the external identity provider; the core only
// reads them to resolve display names and roles.
type Profile struct {
	ID       string  `json:"id"`
	FullName string  `json:"full_name"`
	Email    string  `json:"email"`
	Role     Role    `json:"role"`
	Phone    *string `json:"phone,omitempty"`
	IsActive bool    `json:"is_active"`
}

// Actor converts a profile into the actor value passed through core operations
func (p *Profile) Actor() Actor {
	return Actor{ID: p.ID, DisplayName: p.FullName, Role: p.Role}
}
