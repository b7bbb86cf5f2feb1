package service

import (
	"context"

	"lexcourt/internal/domain/entity"
)

// CredentialStore owns identities, password hashes and session tokens.
// Errors are drawn from the auth taxonomy: invalid credentials, rate
// limited, network failure and already registered.
type CredentialStore interface {
	// Authenticate verifies the password and issues a new session.
	Authenticate(ctx context.Context, email, password string) (*entity.Session, error)

	// Register creates an identity and triggers profile provisioning.
	Register(ctx context.Context, email, password string, metadata entity.ProfileMetadata) (*entity.Identity, error)

	// Invalidate ends the session of token.
	Invalidate(ctx context.Context, token string) error

	// OnSessionChange registers fn for session events. Events reach fn one at
	// a time in emission order. The returned func unsubscribes.
	OnSessionChange(fn func(entity.StoreEvent)) (unsubscribe func())
}
