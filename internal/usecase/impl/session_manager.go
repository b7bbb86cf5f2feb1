package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	deliverycontext "lexcourt/internal/delivery/context"
	"lexcourt/internal/domain/entity"
	domainerrors "lexcourt/internal/domain/errors"
	"lexcourt/internal/domain/lifecycle"
	"lexcourt/internal/domain/service"
	"lexcourt/internal/errors"
	"lexcourt/internal/usecase"
	"lexcourt/internal/util"
)

// profileErrorUnavailable is reported when a non-fatal resolve failure has no error code.
const profileErrorUnavailable = "PROFILE_UNAVAILABLE"

// sessionDeps are the collaborators shared by every manager of a registry.
type sessionDeps struct {
	store    service.CredentialStore
	profiles usecase.ProfileUsecase
	metrics  service.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// sessionManager implements usecase.SessionUsecase for one client context.
// Transitions are applied under mu and posted to subscriber mailboxes while
// mu is held, so every subscriber sees them once and in order.
type sessionManager struct {
	sessionDeps

	clientID string
	logger   *slog.Logger

	// ops admits one sign-in, sign-up or sign-out at a time.
	ops chan struct{}

	mu         sync.RWMutex
	state      entity.SessionState
	pending    bool
	session    *entity.Session
	profile    *entity.Profile
	loading    bool
	profileErr string
	// gen changes whenever the current session does; async work compares it
	// before applying results.
	gen        uint64
	seq        uint64
	sessionCtx context.Context
	endSession context.CancelFunc
	// retiring is the session being replaced; its store events are ignored.
	retiring   uuid.UUID
	subs       map[uint64]*util.Mailbox[entity.Transition]
	nextSub    uint64
	lastActive time.Time
	closed     bool

	unsubscribeStore func()
	resolving        sync.WaitGroup
}

var _ usecase.SessionUsecase = (*sessionManager)(nil)

func newSessionManager(clientID string, deps sessionDeps) *sessionManager {
	m := &sessionManager{
		sessionDeps: deps,
		clientID:    clientID,
		logger:      deps.logger.With(slog.String("client_id", clientID)),
		ops:         make(chan struct{}, 1),
		state:       entity.SessionUnauthenticated,
		subs:        make(map[uint64]*util.Mailbox[entity.Transition]),
		lastActive:  deps.now(),
	}
	m.unsubscribeStore = deps.store.OnSessionChange(m.handleStoreEvent)

	return m
}

func (m *sessionManager) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, m.logger)
}

func (m *sessionManager) acquire(ctx context.Context) error {
	select {
	case m.ops <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.Wrap(domainerrors.ErrSignInInProgress, ctx.Err().Error())
	}
}

func (m *sessionManager) release() {
	<-m.ops
}

// SignUp registers the identity and signs it in.
func (m *sessionManager) SignUp(ctx context.Context, input *usecase.SignUpInput) (*entity.Identity, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()

	m.setPending(true)
	defer m.setPending(false)

	m.log(ctx).Info("Signing up", slog.String("email", input.Email), slog.String("role", input.Metadata.Role.String()))

	identity, err := retryTransient(ctx, func() (*entity.Identity, error) {
		return m.store.Register(ctx, input.Email, input.Password, input.Metadata)
	})
	if err != nil {
		m.log(ctx).Warn("Sign-up failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, errors.Wrap(err, "sign up failed")
	}

	session, err := retryTransient(ctx, func() (*entity.Session, error) {
		return m.store.Authenticate(ctx, input.Email, input.Password)
	})
	if err != nil {
		m.log(ctx).Warn("Sign-in after sign-up failed", slog.String("identity_id", identity.ID.String()), slog.Any("error", err))

		return identity, errors.Wrap(err, "signed up but sign in failed")
	}

	m.install(ctx, session, entity.CauseSignUp)

	return identity, nil
}

// SignIn authenticates and makes the new session current.
func (m *sessionManager) SignIn(ctx context.Context, email, password string) (*entity.Session, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()

	m.setPending(true)
	defer m.setPending(false)

	session, err := retryTransient(ctx, func() (*entity.Session, error) {
		return m.store.Authenticate(ctx, email, password)
	})
	if err != nil {
		m.log(ctx).Warn("Sign-in failed", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "sign in failed")
	}

	m.install(ctx, session, entity.CauseSignIn)

	return session, nil
}

// install makes session current. A session that is still current is
// invalidated first and the transition is recorded as a replacement.
func (m *sessionManager) install(ctx context.Context, session *entity.Session, cause entity.TransitionCause) {
	m.mu.Lock()
	prior := m.session
	if prior != nil {
		m.retiring = prior.ID
	}
	m.mu.Unlock()

	if prior != nil {
		err := retryTransientErr(ctx, func() error {
			return m.store.Invalidate(ctx, prior.Token)
		})
		if err != nil {
			m.log(ctx).Warn("Failed to invalidate replaced session",
				slog.String("session_id", prior.ID.String()),
				slog.Any("error", err))
		}
		m.profiles.Forget(ctx, prior.ID)
	}

	m.mu.Lock()
	from, previous := m.state, m.session
	if previous != nil {
		cause = entity.CauseReplaced
	}

	m.retiring = uuid.Nil
	m.resetSessionLocked()
	m.state = entity.SessionAuthenticated
	m.session = session
	m.loading = true
	m.profileErr = ""
	m.transitionLocked(from, entity.SessionAuthenticated, cause, previous, session)

	gen, sessionCtx := m.gen, m.sessionCtx
	m.mu.Unlock()

	m.log(ctx).Info("Session established",
		slog.String("identity_id", session.IdentityID.String()),
		slog.String("session_id", session.ID.String()),
		slog.String("cause", string(cause)))

	m.resolveProfile(sessionCtx, gen, session)
}

// SignOut clears the local session first and then invalidates it remotely.
func (m *sessionManager) SignOut(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	m.mu.Lock()
	prior := m.session
	if prior == nil {
		m.mu.Unlock()

		return nil
	}
	m.clearLocked()
	m.transitionLocked(entity.SessionAuthenticated, entity.SessionUnauthenticated, entity.CauseSignOut, prior, nil)
	m.mu.Unlock()

	m.profiles.Forget(ctx, prior.ID)

	err := retryTransientErr(ctx, func() error {
		return m.store.Invalidate(ctx, prior.Token)
	})
	if err != nil {
		m.log(ctx).Warn("Remote sign-out failed; local session cleared",
			slog.String("session_id", prior.ID.String()),
			slog.Any("error", err))

		return errors.Wrap(err, "remote sign out failed")
	}

	m.log(ctx).Info("Signed out", slog.String("session_id", prior.ID.String()))

	return nil
}

// handleStoreEvent applies store notifications that concern the current
// session. Sign-ins are applied directly by install and are ignored here, as
// are events for sessions this manager already let go of.
func (m *sessionManager) handleStoreEvent(ev entity.StoreEvent) {
	var cause entity.TransitionCause
	switch ev.Kind {
	case entity.StoreSignedOut:
		cause = entity.CauseRevoked
	case entity.StoreTokenExpired:
		cause = entity.CauseTokenExpired
	default:
		return
	}

	m.mu.Lock()
	if m.closed || m.session == nil || m.session.ID != ev.SessionID || m.retiring == ev.SessionID {
		m.mu.Unlock()

		return
	}

	prior := m.session
	m.clearLocked()
	m.transitionLocked(entity.SessionAuthenticated, entity.SessionUnauthenticated, cause, prior, nil)
	m.mu.Unlock()

	m.logger.Info("Session ended by store", slog.String("session_id", prior.ID.String()), slog.String("cause", string(cause)))

	ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer cancel()
	m.profiles.Forget(ctx, prior.ID)
}

// resolveProfile looks the profile up in the background. The result is
// dropped when the session changed meanwhile.
func (m *sessionManager) resolveProfile(sessionCtx context.Context, gen uint64, session *entity.Session) {
	m.resolving.Add(1)

	go func() {
		defer m.resolving.Done()

		ctx := deliverycontext.WithLogger(sessionCtx, m.logger)
		profile, err := m.profiles.Resolve(ctx, session)

		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			m.logger.Debug("Discarding profile of a stale session", slog.String("session_id", session.ID.String()))

			return
		}

		switch {
		case err == nil:
			m.profile = profile
			m.loading = false
			m.profileErr = ""
			m.mu.Unlock()

		case domainerrors.IsFatalResolve(err):
			m.clearLocked()
			m.profileErr = errorCode(err)
			m.transitionLocked(entity.SessionAuthenticated, entity.SessionUnauthenticated, entity.CauseProfileRejected, session, nil)
			m.mu.Unlock()

			m.logger.Error("Profile rejected; session ended",
				slog.String("identity_id", session.IdentityID.String()),
				slog.Any("error", err))
			m.invalidateDetached(session)

		default:
			m.loading = false
			m.profileErr = errorCode(err)
			m.mu.Unlock()

			m.logger.Warn("Profile unavailable", slog.String("identity_id", session.IdentityID.String()), slog.Any("error", err))
		}
	}()
}

func (m *sessionManager) invalidateDetached(session *entity.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer cancel()

	if err := m.store.Invalidate(ctx, session.Token); err != nil {
		m.logger.Warn("Failed to invalidate rejected session", slog.String("session_id", session.ID.String()), slog.Any("error", err))
	}
	m.profiles.Forget(ctx, session.ID)
}

// resetSessionLocked ends the context of the current session and starts a new generation.
func (m *sessionManager) resetSessionLocked() {
	if m.endSession != nil {
		m.endSession()
	}
	m.gen++
	m.sessionCtx, m.endSession = context.WithCancel(context.Background())
}

// clearLocked drops the current session and its profile.
func (m *sessionManager) clearLocked() {
	m.resetSessionLocked()
	m.state = entity.SessionUnauthenticated
	m.session = nil
	m.profile = nil
	m.loading = false
	m.profileErr = ""
}

func (m *sessionManager) transitionLocked(from, to entity.SessionState, cause entity.TransitionCause, previous, current *entity.Session) {
	m.seq++
	t := entity.Transition{
		Seq:      m.seq,
		From:     from,
		To:       to,
		Cause:    cause,
		Previous: previous,
		Current:  current,
		At:       m.now(),
	}
	m.lastActive = t.At

	for _, mb := range m.subs {
		mb.Post(t)
	}

	if m.metrics != nil {
		m.metrics.ObserveTransition(from, to, cause)
	}
}

func (m *sessionManager) setPending(pending bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = pending
	m.lastActive = m.now()
}

func (m *sessionManager) CurrentSession() *entity.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.session
}

func (m *sessionManager) State() entity.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.stateLocked()
}

func (m *sessionManager) stateLocked() entity.SessionState {
	if m.state == entity.SessionUnauthenticated && m.pending {
		return entity.SessionPending
	}

	return m.state
}

func (m *sessionManager) Snapshot() entity.SessionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return entity.SessionSnapshot{
		State:          m.stateLocked(),
		Session:        m.session,
		Profile:        m.profile,
		ProfileLoading: m.loading,
		ProfileError:   m.profileErr,
	}
}

func (m *sessionManager) Subscribe(fn func(entity.Transition)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return func() {}
	}

	m.nextSub++
	id := m.nextSub
	m.subs[id] = util.NewMailbox(fn)

	var once sync.Once

	return func() {
		once.Do(func() {
			m.mu.Lock()
			mb, ok := m.subs[id]
			delete(m.subs, id)
			m.mu.Unlock()

			if ok {
				mb.Close()
			}
		})
	}
}

// Scope pins work to the current session once its profile is known.
func (m *sessionManager) Scope(ctx context.Context) (usecase.SessionScope, error) {
	m.mu.Lock()
	m.lastActive = m.now()

	if m.session == nil {
		m.mu.Unlock()

		return nil, errors.WithStack(domainerrors.ErrNotAuthenticated)
	}

	if !m.session.ExpiresAt.IsZero() && !m.now().Before(m.session.ExpiresAt) {
		m.mu.Unlock()

		return nil, errors.WithStack(domainerrors.ErrSessionExpired)
	}

	if m.profile == nil {
		retry := !m.loading && m.profileErr != ""
		if retry {
			m.loading = true
			m.profileErr = ""
		}
		gen, sessionCtx, session := m.gen, m.sessionCtx, m.session
		m.mu.Unlock()

		if retry {
			m.resolveProfile(sessionCtx, gen, session)
		}

		return nil, errors.WithStack(domainerrors.ErrProfileLoading)
	}

	scopeCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.sessionCtx, cancel)

	scope := &sessionScope{
		manager: m,
		gen:     m.gen,
		ctx:     scopeCtx,
		cancel:  cancel,
		stop:    stop,
		session: m.session,
		requester: entity.Requester{
			IdentityID: m.session.IdentityID,
			Role:       m.profile.Role,
		},
	}
	m.mu.Unlock()

	return scope, nil
}

// UpdateProfile edits the profile and replaces the snapshot's copy when the
// session is still current.
func (m *sessionManager) UpdateProfile(ctx context.Context, update *entity.ProfileUpdate) (*entity.Profile, error) {
	scope, err := m.Scope(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Release()

	profile, err := m.profiles.Update(scope.Context(), scope.Session(), update)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != scope.(*sessionScope).gen {
		return nil, errors.WithStack(domainerrors.ErrStaleSession)
	}
	m.profile = profile

	return profile, nil
}

// Close detaches from the store and stops background work.
func (m *sessionManager) Close() {
	m.unsubscribeStore()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()

		return
	}
	m.closed = true
	if m.endSession != nil {
		m.endSession()
	}
	m.gen++
	subs := m.subs
	m.subs = make(map[uint64]*util.Mailbox[entity.Transition])
	m.mu.Unlock()

	for _, mb := range subs {
		mb.Close()
	}

	m.resolving.Wait()
}

// idleSince reports when the manager was last used and whether it holds no session.
func (m *sessionManager) idleSince() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lastActive, m.session == nil && !m.pending
}

// sessionScope implements usecase.SessionScope.
type sessionScope struct {
	manager   *sessionManager
	gen       uint64
	ctx       context.Context
	cancel    context.CancelFunc
	stop      func() bool
	session   *entity.Session
	requester entity.Requester
}

func (s *sessionScope) Context() context.Context { return s.ctx }

func (s *sessionScope) Requester() entity.Requester { return s.requester }

func (s *sessionScope) Session() *entity.Session { return s.session }

func (s *sessionScope) Err() error {
	s.manager.mu.RLock()
	defer s.manager.mu.RUnlock()

	if s.manager.gen != s.gen {
		return errors.WithStack(domainerrors.ErrStaleSession)
	}

	return nil
}

func (s *sessionScope) Release() {
	s.stop()
	s.cancel()
}

func errorCode(err error) string {
	if appErr, ok := errors.AsType[domainerrors.AppError](err); ok {
		return appErr.ErrorCode()
	}

	return profileErrorUnavailable
}
