package usecase

import (
	"context"

	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
)

// ProfileUsecase maps an authenticated identity to its profile.
type ProfileUsecase interface {
	// Resolve returns the profile of the session's identity. A missing profile
	// is retried with backoff and then reported as ErrProfileMissing; more than
	// one profile is reported as ErrProfileAmbiguous.
	Resolve(ctx context.Context, session *entity.Session) (*entity.Profile, error)

	// Forget drops the cached profile of a session.
	Forget(ctx context.Context, sessionID uuid.UUID)

	// Update applies an owner edit and refreshes the session's cached copy.
	Update(ctx context.Context, session *entity.Session, update *entity.ProfileUpdate) (*entity.Profile, error)
}

// ProvisioningUsecase creates profiles from sign-up metadata.
type ProvisioningUsecase interface {
	// ProvisionProfile creates the profile of a new identity. Replays of the
	// same event succeed without creating a second row.
	ProvisionProfile(ctx context.Context, event *entity.IdentityCreatedEvent) error
}
