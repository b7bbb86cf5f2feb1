package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
)

// ProfileCache keeps the resolved profile of a session for the session's lifetime.
type ProfileCache interface {
	// Get returns found=false on a miss.
	Get(ctx context.Context, sessionID uuid.UUID) (profile *entity.Profile, found bool, err error)

	Set(ctx context.Context, sessionID uuid.UUID, profile *entity.Profile, ttl time.Duration) error

	Delete(ctx context.Context, sessionID uuid.UUID) error
}
