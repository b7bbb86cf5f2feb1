package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	SessionID  uuid.UUID `json:"sid"`
	IdentityID uuid.UUID `json:"uid"`
	Email      string    `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and validates session tokens.
type TokenService interface {
	// IssueSessionToken signs a token for the session, valid from issuedAt for SessionTTL.
	IssueSessionToken(sessionID, identityID uuid.UUID, email string, issuedAt time.Time) (token string, expiresAt time.Time, err error)

	// ValidateToken checks signature and expiry of a token string.
	ValidateToken(tokenString string) (*SessionClaims, error)

	// SessionTTL returns the configured lifetime of a session.
	SessionTTL() time.Duration
}
