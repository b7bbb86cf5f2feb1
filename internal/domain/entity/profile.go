package entity

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds the role and display attributes of an Identity. There is
// exactly one profile per identity.
type Profile struct {
	ID               uuid.UUID
	IdentityID       uuid.UUID // One-to-one link to the Identity.
	Role             Role      // Authoritative for the lifetime of a session.
	FullName         string
	EnrollmentNumber string // Bar enrollment number, lawyers only.
	CourtID          string // Court identifier, judges only.
	Phone            string
	ContactEmail     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RoleSpecificID returns the enrollment number of a lawyer or the court id of a judge.
func (p *Profile) RoleSpecificID() string {
	switch p.Role {
	case RoleLawyer:
		return p.EnrollmentNumber
	case RoleJudge:
		return p.CourtID
	default:
		return ""
	}
}

// ProfileMetadata is supplied at sign-up and becomes the initial Profile.
type ProfileMetadata struct {
	Role             Role   `json:"role" validate:"required,oneof=lawyer judge"`
	FullName         string `json:"full_name" validate:"required,max=200"`
	EnrollmentNumber string `json:"enrollment_number,omitempty" validate:"required_if=Role lawyer,max=64"`
	CourtID          string `json:"court_id,omitempty" validate:"required_if=Role judge,max=64"`
	Phone            string `json:"phone,omitempty" validate:"omitempty,max=32"`
	ContactEmail     string `json:"contact_email,omitempty" validate:"omitempty,email"`
}

// ToProfile builds the profile row provisioned for identityID.
func (m ProfileMetadata) ToProfile(identityID uuid.UUID) *Profile {
	profile := &Profile{
		IdentityID:   identityID,
		Role:         m.Role,
		FullName:     m.FullName,
		Phone:        m.Phone,
		ContactEmail: m.ContactEmail,
	}

	switch m.Role {
	case RoleLawyer:
		profile.EnrollmentNumber = m.EnrollmentNumber
	case RoleJudge:
		profile.CourtID = m.CourtID
	}

	return profile
}

// ProfileUpdate carries the owner-editable fields. Role and the role-specific
// id are fixed at sign-up.
type ProfileUpdate struct {
	FullName     *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
}
