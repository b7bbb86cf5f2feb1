package service

import "lexcourt/internal/domain/entity"

// Metrics records the observable behaviour of the session core.
type Metrics interface {
	ObserveTransition(from, to entity.SessionState, cause entity.TransitionCause)
	ObserveProfileResolve(outcome string, attempts int)
	ObserveCaseQuery(operation, outcome string)
	SetActiveClients(n int)
}
