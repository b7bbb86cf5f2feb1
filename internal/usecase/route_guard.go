package usecase

import "lexcourt/internal/domain/entity"

// RouteGuard decides whether a role-scoped destination may be rendered.
type RouteGuard interface {
	// Evaluate is pure: the same inputs always produce the same decision.
	Evaluate(dest entity.Destination, snapshot entity.SessionSnapshot) entity.GuardDecision

	// Home returns the default destination of role.
	Home(role entity.Role) string

	// Resolve maps a request path to its destination; ok is false for unguarded paths.
	Resolve(path string) (dest entity.Destination, ok bool)
}
