// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the authenticated principal. It carries credentials only;
// display attributes and the role live on the Profile.
type Identity struct {
	ID        uuid.UUID       // The Global Unique Identifier (GUID) for the identity.
	Email     string          // Login identifier, unique across the store.
	Metadata  ProfileMetadata // Sign-up metadata handed to profile provisioning.
	CreatedAt time.Time       // Timestamp of when the identity was registered.
}

// Credential is the password record of an identity.
type Credential struct {
	ID           uuid.UUID // The unique ID for this credential record.
	IdentityID   uuid.UUID // Links the credential to its Identity.
	PasswordHash string    // bcrypt hash of the password.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionToken is the persisted side of a Session. Only a SHA-256 hash of the
// raw token is stored.
type SessionToken struct {
	ID         uuid.UUID // Session identifier, also embedded in the token claims.
	IdentityID uuid.UUID // Owner of the session.
	TokenHash  string    // SHA-256 hash of the raw token.
	ExpiresAt  time.Time // The exact time when the session stops being valid.
	CreatedAt  time.Time // When the session was issued.
}

// IdentityCreatedEvent is published after a successful registration so that
// the profile can be provisioned out of band.
type IdentityCreatedEvent struct {
	IdentityID uuid.UUID       `json:"identity_id"`
	Email      string          `json:"email"`
	Metadata   ProfileMetadata `json:"metadata"`
	OccurredAt time.Time       `json:"occurred_at"`
}
