package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
)

// Domain-specific errors for profile persistence.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

// ProfileRepository persists profiles.
type ProfileRepository interface {
	// ListByIdentityID returns every profile row of an identity. More than one
	// row means the data is corrupt; callers decide what to do with it.
	ListByIdentityID(ctx context.Context, identityID uuid.UUID) ([]*entity.Profile, error)

	// Create persists a new profile. Returns ErrProfileExists when the identity already has one.
	Create(ctx context.Context, profile *entity.Profile) error

	// Update overwrites the editable fields of an existing profile.
	Update(ctx context.Context, profile *entity.Profile) error
}
