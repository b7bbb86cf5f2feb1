package handler

import (
	"time"

	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/usecase"
)

// SessionView is the client-facing snapshot. The bearer token never leaves
// the server; the client context cookie selects the session instead.
type SessionView struct {
	State          entity.SessionState `json:"state"`
	SessionID      *uuid.UUID          `json:"session_id,omitempty"`
	IdentityID     *uuid.UUID          `json:"identity_id,omitempty"`
	Email          string              `json:"email,omitempty"`
	ExpiresAt      *time.Time          `json:"expires_at,omitempty"`
	Profile        *ProfileView        `json:"profile,omitempty"`
	ProfileLoading bool                `json:"profile_loading"`
	ProfileError   string              `json:"profile_error,omitempty"`
	Home           string              `json:"home,omitempty"`
}

// ProfileView is the JSON shape of a profile.
type ProfileView struct {
	ID               uuid.UUID   `json:"id"`
	Role             entity.Role `json:"role"`
	FullName         string      `json:"full_name"`
	EnrollmentNumber string      `json:"enrollment_number,omitempty"`
	CourtID          string      `json:"court_id,omitempty"`
	Phone            string      `json:"phone,omitempty"`
	ContactEmail     string      `json:"contact_email,omitempty"`
}

// TransitionView is one session transition as streamed to the client.
type TransitionView struct {
	Seq               uint64                 `json:"seq"`
	From              entity.SessionState    `json:"from"`
	To                entity.SessionState    `json:"to"`
	Cause             entity.TransitionCause `json:"cause"`
	PreviousSessionID *uuid.UUID             `json:"previous_session_id,omitempty"`
	CurrentSessionID  *uuid.UUID             `json:"current_session_id,omitempty"`
	At                time.Time              `json:"at"`
}

// CaseSearchView is the result of a case number search. Case is null when
// nothing matched.
type CaseSearchView struct {
	Found bool             `json:"found"`
	Case  *entity.CaseView `json:"case"`
}

func newProfileView(p *entity.Profile) *ProfileView {
	if p == nil {
		return nil
	}

	return &ProfileView{
		ID:               p.ID,
		Role:             p.Role,
		FullName:         p.FullName,
		EnrollmentNumber: p.EnrollmentNumber,
		CourtID:          p.CourtID,
		Phone:            p.Phone,
		ContactEmail:     p.ContactEmail,
	}
}

func newSessionView(snapshot entity.SessionSnapshot, guard usecase.RouteGuard) *SessionView {
	view := &SessionView{
		State:          snapshot.State,
		Profile:        newProfileView(snapshot.Profile),
		ProfileLoading: snapshot.ProfileLoading,
		ProfileError:   snapshot.ProfileError,
	}

	if s := snapshot.Session; s != nil {
		view.SessionID = &s.ID
		view.IdentityID = &s.IdentityID
		view.Email = s.Email
		view.ExpiresAt = &s.ExpiresAt
	}
	if snapshot.Profile != nil && snapshot.Profile.Role.IsValid() {
		view.Home = guard.Home(snapshot.Profile.Role)
	}

	return view
}

func newTransitionView(t entity.Transition) *TransitionView {
	view := &TransitionView{
		Seq:   t.Seq,
		From:  t.From,
		To:    t.To,
		Cause: t.Cause,
		At:    t.At,
	}
	if t.Previous != nil {
		view.PreviousSessionID = &t.Previous.ID
	}
	if t.Current != nil {
		view.CurrentSessionID = &t.Current.ID
	}

	return view
}
