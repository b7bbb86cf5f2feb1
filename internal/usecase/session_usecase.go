// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"lexcourt/internal/domain/entity"
)

// SignUpInput carries the credentials and profile metadata of a new account.
type SignUpInput struct {
	Email    string
	Password string
	Metadata entity.ProfileMetadata
}

// SessionUsecase is the session manager of one client context. It is the only
// writer of that context's current session.
type SessionUsecase interface {
	// SignUp registers an identity and signs it in.
	SignUp(ctx context.Context, input *SignUpInput) (*entity.Identity, error)

	// SignIn authenticates and makes the new session current. Signing in while
	// authenticated replaces the current session.
	SignIn(ctx context.Context, email, password string) (*entity.Session, error)

	// SignOut clears the current session. Local state is cleared even when the
	// remote invalidation fails; that failure is still returned.
	SignOut(ctx context.Context) error

	// CurrentSession returns the current session or nil. It never blocks on I/O.
	CurrentSession() *entity.Session

	// State returns the current state, including the transient pending state.
	State() entity.SessionState

	// Snapshot returns session, profile and loading flag in one consistent read.
	Snapshot() entity.SessionSnapshot

	// Subscribe registers fn for transitions. Each transition is delivered once,
	// in order. The returned func unsubscribes.
	Subscribe(fn func(entity.Transition)) (unsubscribe func())

	// Scope pins work to the current session. It fails when there is no
	// session or its profile is not resolved yet.
	Scope(ctx context.Context) (SessionScope, error)

	// UpdateProfile edits the owner's profile and refreshes the snapshot.
	UpdateProfile(ctx context.Context, update *entity.ProfileUpdate) (*entity.Profile, error)

	// Close detaches the manager from the credential store.
	Close()
}

// SessionScope is a unit of work bound to the session that was current when it began.
type SessionScope interface {
	// Context is cancelled as soon as the pinned session stops being current.
	Context() context.Context

	Requester() entity.Requester

	Session() *entity.Session

	// Err returns ErrStaleSession once the pinned session is no longer current.
	Err() error

	// Release frees the scope's resources.
	Release()
}

// SessionRegistry owns one SessionUsecase per client context.
type SessionRegistry interface {
	// Get returns the manager of clientID, creating it on first use.
	Get(clientID string) SessionUsecase

	// Lookup returns the manager of clientID if it exists.
	Lookup(clientID string) (SessionUsecase, bool)

	// Prune closes signed-out managers idle for longer than the configured window.
	Prune(ctx context.Context) int

	// Len returns the number of live managers.
	Len() int
}

// InSession runs fn on behalf of the current session and discards its result
// when the session changed before fn returned.
func InSession[T any](ctx context.Context, sessions SessionUsecase, fn func(ctx context.Context, requester entity.Requester) (T, error)) (T, error) {
	var zero T

	scope, err := sessions.Scope(ctx)
	if err != nil {
		return zero, err
	}
	defer scope.Release()

	result, err := fn(scope.Context(), scope.Requester())
	if staleErr := scope.Err(); staleErr != nil {
		return zero, staleErr
	}
	if err != nil {
		return zero, err
	}

	return result, nil
}
