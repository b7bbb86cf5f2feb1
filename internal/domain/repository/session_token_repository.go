package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
)

// ErrSessionTokenNotFound is returned when a session token is not found.
var ErrSessionTokenNotFound = errors.New("session token not found")

// SessionTokenRepository stores issued sessions.
type SessionTokenRepository interface {
	// Create persists a newly issued session.
	Create(ctx context.Context, token *entity.SessionToken) error

	// FindByID retrieves a session by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SessionToken, error)

	// DeleteByID ends a session. Returns ErrSessionTokenNotFound if it was already gone.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// DeleteExpired removes every session that expired at or before cutoff and
	// returns the removed rows so that expiry can be announced.
	DeleteExpired(ctx context.Context, cutoff time.Time) ([]*entity.SessionToken, error)
}
