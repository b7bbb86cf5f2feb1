package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the state of the session manager of one client context.
type SessionState string

const (
	SessionUnauthenticated SessionState = "unauthenticated"
	// SessionPending is reported while the first sign-in or sign-up of a
	// signed-out client is in flight. It is never broadcast as a transition.
	SessionPending       SessionState = "pending"
	SessionAuthenticated SessionState = "authenticated"
)

// Session is the client-side projection of an issued session token.
type Session struct {
	ID         uuid.UUID // Matches SessionToken.ID.
	IdentityID uuid.UUID
	Email      string
	Token      string // Raw bearer token; never persisted.
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TransitionCause records why the session state changed.
type TransitionCause string

const (
	CauseSignIn       TransitionCause = "sign_in"
	CauseSignUp       TransitionCause = "sign_up"
	CauseReplaced     TransitionCause = "replaced"
	CauseSignOut      TransitionCause = "sign_out"
	CauseTokenExpired TransitionCause = "token_expired"
	CauseRevoked      TransitionCause = "revoked"
	// CauseProfileRejected is a forced sign-out after a fatal profile lookup.
	CauseProfileRejected TransitionCause = "profile_rejected"
)

// Transition is broadcast to subscribers once per state change, in order.
type Transition struct {
	Seq      uint64 // Monotonic per client context, starting at 1.
	From     SessionState
	To       SessionState
	Cause    TransitionCause
	Previous *Session // Session that ended or was replaced; nil on first sign-in.
	Current  *Session // Session now active; nil when signed out.
	At       time.Time
}

// SessionSnapshot is the reactive read exposed to views: session, profile
// and whether the profile is still loading.
type SessionSnapshot struct {
	State          SessionState `json:"state"`
	Session        *Session     `json:"session,omitempty"`
	Profile        *Profile     `json:"profile,omitempty"`
	ProfileLoading bool         `json:"profile_loading"`
	// ProfileError holds the code of the last fatal profile failure until the next sign-in.
	ProfileError string `json:"profile_error,omitempty"`
}

// StoreEventKind enumerates credential store notifications.
type StoreEventKind string

const (
	StoreSignedIn     StoreEventKind = "signed_in"
	StoreSignedOut    StoreEventKind = "signed_out"
	StoreTokenExpired StoreEventKind = "token_expired"
)

// StoreEvent is emitted by the credential store in the order changes happen.
type StoreEvent struct {
	Kind       StoreEventKind
	SessionID  uuid.UUID
	IdentityID uuid.UUID
	At         time.Time
}
