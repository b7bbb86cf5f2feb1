package entity

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantRole is the role an identity holds within a single case.
type ParticipantRole string

const (
	ParticipantPetitionerCounsel ParticipantRole = "petitioner_counsel"
	ParticipantRespondentCounsel ParticipantRole = "respondent_counsel"
	ParticipantJudge             ParticipantRole = "judge"
	ParticipantClerk             ParticipantRole = "clerk"
	ParticipantObserver          ParticipantRole = "observer"
)

// IsValid checks if the ParticipantRole is a valid value.
func (r ParticipantRole) IsValid() bool {
	switch r {
	case ParticipantPetitionerCounsel, ParticipantRespondentCounsel, ParticipantJudge,
		ParticipantClerk, ParticipantObserver:
		return true
	default:
		return false
	}
}

// IsCounsel reports whether the role is one of the lawyer roles.
func (r ParticipantRole) IsCounsel() bool {
	return r == ParticipantPetitionerCounsel || r == ParticipantRespondentCounsel
}

// SeesPrivate reports whether the role may read private communications.
func (r ParticipantRole) SeesPrivate() bool {
	return r.IsCounsel() || r == ParticipantJudge
}

// CaseParticipant links an identity to a case.
type CaseParticipant struct {
	ID         uuid.UUID       `json:"id"`
	CaseID     uuid.UUID       `json:"case_id"`
	IdentityID uuid.UUID       `json:"identity_id"`
	Role       ParticipantRole `json:"role"`
	FullName   string          `json:"full_name"` // Joined from the participant's profile for roster display.
	JoinedAt   time.Time       `json:"joined_at"`
}

// Roster is the participant list of one case.
type Roster []*CaseParticipant

// Find returns the participant entry of identityID, if present.
func (r Roster) Find(identityID uuid.UUID) (*CaseParticipant, bool) {
	for _, p := range r {
		if p.IdentityID == identityID {
			return p, true
		}
	}

	return nil, false
}
