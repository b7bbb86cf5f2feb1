package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/fx"

	"lexcourt/config"
	"lexcourt/internal/domain/service"
	"lexcourt/internal/usecase"
)

const defaultIdleWindow = time.Hour

// sessionRegistry implements usecase.SessionRegistry.
type sessionRegistry struct {
	deps sessionDeps
	idle time.Duration

	mu       sync.Mutex
	managers map[string]*sessionManager
}

// SessionRegistryParams holds dependencies for SessionRegistry, injected by Fx.
type SessionRegistryParams struct {
	fx.In
	fx.Lifecycle

	Config   *config.Config
	Store    service.CredentialStore
	Profiles usecase.ProfileUsecase
	Metrics  service.Metrics `optional:"true"`
	Logger   *slog.Logger
}

// NewSessionRegistry is the constructor for sessionRegistry. Every manager is
// closed when the application stops.
func NewSessionRegistry(params SessionRegistryParams) usecase.SessionRegistry {
	reg := newSessionRegistry(params.Config, sessionDeps{
		store:    params.Store,
		profiles: params.Profiles,
		metrics:  params.Metrics,
		logger:   params.Logger,
		now:      time.Now,
	})

	params.Append(fx.Hook{
		OnStop: func(context.Context) error {
			reg.closeAll()

			return nil
		},
	})

	return reg
}

func newSessionRegistry(cfg *config.Config, deps sessionDeps) *sessionRegistry {
	idle := defaultIdleWindow
	if cfg != nil && cfg.Auth != nil && cfg.Auth.SessionTTL > 0 {
		idle = cfg.Auth.SessionTTL
	}

	return &sessionRegistry{
		deps:     deps,
		idle:     idle,
		managers: make(map[string]*sessionManager),
	}
}

func (r *sessionRegistry) Get(clientID string) usecase.SessionUsecase {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.managers[clientID]; ok {
		return m
	}

	m := newSessionManager(clientID, r.deps)
	r.managers[clientID] = m
	r.reportLocked()

	return m
}

func (r *sessionRegistry) Lookup(clientID string) (usecase.SessionUsecase, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.managers[clientID]
	if !ok {
		return nil, false
	}

	return m, true
}

// Prune closes managers that hold no session and have been idle for longer
// than the idle window.
func (r *sessionRegistry) Prune(ctx context.Context) int {
	cutoff := r.deps.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*sessionManager
	for id, m := range r.managers {
		lastActive, empty := m.idleSince()
		if empty && lastActive.Before(cutoff) {
			stale = append(stale, m)
			delete(r.managers, id)
		}
	}
	r.reportLocked()
	r.mu.Unlock()

	for _, m := range stale {
		m.Close()
	}

	if len(stale) > 0 {
		r.deps.logger.DebugContext(ctx, "Pruned idle client contexts", slog.Int("count", len(stale)))
	}

	return len(stale)
}

func (r *sessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.managers)
}

func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	managers := r.managers
	r.managers = make(map[string]*sessionManager)
	r.reportLocked()
	r.mu.Unlock()

	for _, m := range managers {
		m.Close()
	}
}

func (r *sessionRegistry) reportLocked() {
	if r.deps.metrics != nil {
		r.deps.metrics.SetActiveClients(len(r.managers))
	}
}
