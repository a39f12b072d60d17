package db

import (
	"database/sql"
	"fmt"

	"clinic-console-server/internal/models"

	"github.com/google/uuid"
)

// ProfileRepository defines read access to the profile directory.
// Profiles are written by the identity provider; Create exists for
// provisioning and tests only.
type ProfileRepository interface {
	Create(profile *models.Profile) error
	GetByID(id string) (*models.Profile, error)
	// ListActiveStaff returns active attendant and manager profiles.
	ListActiveStaff() ([]*models.Profile, error)
}

type profileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `id, full_name, email, role, phone, is_active`

func scanProfile(scanner interface{ Scan(...any) error }, profile *models.Profile) error {
	var phone sql.NullString
	err := scanner.Scan(
		&profile.ID,
		&profile.FullName,
		&profile.Email,
		&profile.Role,
		&phone,
		&profile.IsActive,
	)
	if err != nil {
		return err
	}
	if phone.Valid {
		profile.Phone = &phone.String
	}
	return nil
}

// Create inserts a profile, assigning an ID when missing
func (r *profileRepository) Create(profile *models.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if profile.FullName == "" {
		return fmt.Errorf("full name is required")
	}
	if _, err := models.ParseRole(string(profile.Role)); err != nil {
		return err
	}

	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}

	query := `INSERT INTO profiles (` + profileColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		profile.ID,
		profile.FullName,
		profile.Email,
		profile.Role,
		profile.Phone,
		profile.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByID retrieves a profile by ID, returning nil when absent
func (r *profileRepository) GetByID(id string) (*models.Profile, error) {
	if id == "" {
		return nil, fmt.Errorf("profile ID cannot be empty")
	}

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ?`

	profile := &models.Profile{}
	err := scanProfile(r.db.QueryRow(query, id), profile)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// ListActiveStaff returns the active team members shown on the manager dashboard
func (r *profileRepository) ListActiveStaff() ([]*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE role IN (?, ?) AND is_active = 1 ORDER BY full_name ASC`

	rows, err := r.db.Query(query, models.RoleAttendant, models.RoleManager)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		profile := &models.Profile{}
		if err := scanProfile(rows, profile); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}
