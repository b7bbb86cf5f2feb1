package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
	domainerrors "lexcourt/internal/domain/errors"
	"lexcourt/internal/errors"
	"lexcourt/internal/util"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAccount struct {
	identity *entity.Identity
	password string
}

// fakeStore is an in-memory CredentialStore with scriptable failures.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*fakeAccount
	sessions map[string]*entity.Session // by token
	ttl      time.Duration

	authErrs       []error
	invalidateErrs []error
	authGate       chan struct{}

	authCalls       int
	invalidateCalls int
	invalidated     []uuid.UUID

	onRegister func(*entity.Identity)

	subs   map[int]*util.Mailbox[entity.StoreEvent]
	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[string]*fakeAccount),
		sessions: make(map[string]*entity.Session),
		ttl:      time.Hour,
		subs:     make(map[int]*util.Mailbox[entity.StoreEvent]),
	}
}

func (s *fakeStore) addAccount(email, password string) *entity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity := &entity.Identity{ID: uuid.New(), Email: email, CreatedAt: time.Now()}
	s.accounts[email] = &fakeAccount{identity: identity, password: password}

	return identity
}

func (s *fakeStore) failAuthenticate(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authErrs = append(s.authErrs, errs...)
}

func (s *fakeStore) failInvalidate(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateErrs = append(s.invalidateErrs, errs...)
}

func (s *fakeStore) Authenticate(ctx context.Context, email, password string) (*entity.Session, error) {
	if s.authGate != nil {
		select {
		case <-s.authGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.authCalls++
	if len(s.authErrs) > 0 {
		err := s.authErrs[0]
		s.authErrs = s.authErrs[1:]

		return nil, err
	}

	account, ok := s.accounts[email]
	if !ok || account.password != password {
		return nil, errors.WithStack(domainerrors.ErrInvalidCredentials)
	}

	now := time.Now()
	session := &entity.Session{
		ID:         uuid.New(),
		IdentityID: account.identity.ID,
		Email:      email,
		Token:      uuid.NewString(),
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	}
	s.sessions[session.Token] = session
	s.publishLocked(entity.StoreEvent{Kind: entity.StoreSignedIn, SessionID: session.ID, IdentityID: session.IdentityID, At: now})

	return session, nil
}

func (s *fakeStore) Register(_ context.Context, email, password string, metadata entity.ProfileMetadata) (*entity.Identity, error) {
	s.mu.Lock()
	if _, ok := s.accounts[email]; ok {
		s.mu.Unlock()

		return nil, errors.WithStack(domainerrors.ErrAlreadyRegistered)
	}
	identity := &entity.Identity{ID: uuid.New(), Email: email, Metadata: metadata, CreatedAt: time.Now()}
	s.accounts[email] = &fakeAccount{identity: identity, password: password}
	onRegister := s.onRegister
	s.mu.Unlock()

	if onRegister != nil {
		onRegister(identity)
	}

	return identity, nil
}

func (s *fakeStore) Invalidate(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidateCalls++
	if len(s.invalidateErrs) > 0 {
		err := s.invalidateErrs[0]
		s.invalidateErrs = s.invalidateErrs[1:]

		return err
	}

	session, ok := s.sessions[token]
	if !ok {
		return nil
	}
	delete(s.sessions, token)
	s.invalidated = append(s.invalidated, session.ID)
	s.publishLocked(entity.StoreEvent{Kind: entity.StoreSignedOut, SessionID: session.ID, IdentityID: session.IdentityID, At: time.Now()})

	return nil
}

// expire ends a session the way the sweeper does.
func (s *fakeStore) expire(session *entity.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, session.Token)
	s.publishLocked(entity.StoreEvent{Kind: entity.StoreTokenExpired, SessionID: session.ID, IdentityID: session.IdentityID, At: time.Now()})
}

// revoke ends a session from outside the client context.
func (s *fakeStore) revoke(session *entity.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, session.Token)
	s.publishLocked(entity.StoreEvent{Kind: entity.StoreSignedOut, SessionID: session.ID, IdentityID: session.IdentityID, At: time.Now()})
}

func (s *fakeStore) OnSessionChange(fn func(entity.StoreEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs[id] = util.NewMailbox(fn)

	return func() {
		s.mu.Lock()
		mb, ok := s.subs[id]
		delete(s.subs, id)
		s.mu.Unlock()

		if ok {
			mb.Close()
		}
	}
}

func (s *fakeStore) publishLocked(ev entity.StoreEvent) {
	for _, mb := range s.subs {
		mb.Post(ev)
	}
}

// sync waits until every subscriber has handled all events so far.
func (s *fakeStore) sync() {
	s.mu.Lock()
	boxes := make([]*util.Mailbox[entity.StoreEvent], 0, len(s.subs))
	for _, mb := range s.subs {
		boxes = append(boxes, mb)
	}
	s.mu.Unlock()

	for _, mb := range boxes {
		mb.Sync()
	}
}

func (s *fakeStore) calls() (auth, invalidate int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.authCalls, s.invalidateCalls
}

// fakeProfiles is a ProfileUsecase over a map with scriptable errors.
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*entity.Profile
	errs     map[uuid.UUID]error
	gate     chan struct{}
	forgot   []uuid.UUID
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		profiles: make(map[uuid.UUID]*entity.Profile),
		errs:     make(map[uuid.UUID]error),
	}
}

func (p *fakeProfiles) put(identityID uuid.UUID, role entity.Role) *entity.Profile {
	p.mu.Lock()
	defer p.mu.Unlock()

	profile := &entity.Profile{ID: uuid.New(), IdentityID: identityID, Role: role, FullName: "Test " + role.String()}
	p.profiles[identityID] = profile

	return profile
}

func (p *fakeProfiles) fail(identityID uuid.UUID, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[identityID] = err
}

func (p *fakeProfiles) Resolve(ctx context.Context, session *entity.Session) (*entity.Profile, error) {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.errs[session.IdentityID]; err != nil {
		return nil, err
	}
	profile, ok := p.profiles[session.IdentityID]
	if !ok {
		return nil, errors.WithStack(domainerrors.ErrProfileMissing)
	}
	cp := *profile

	return &cp, nil
}

func (p *fakeProfiles) Forget(_ context.Context, sessionID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forgot = append(p.forgot, sessionID)
}

func (p *fakeProfiles) Update(_ context.Context, session *entity.Session, update *entity.ProfileUpdate) (*entity.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	profile, ok := p.profiles[session.IdentityID]
	if !ok {
		return nil, errors.WithStack(domainerrors.ErrProfileNotFound)
	}
	if update.FullName != nil {
		profile.FullName = *update.FullName
	}
	cp := *profile

	return &cp, nil
}

// transitionLog collects transitions delivered to a subscriber.
type transitionLog struct {
	mu          sync.Mutex
	transitions []entity.Transition
}

func (l *transitionLog) record(t entity.Transition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transitions = append(l.transitions, t)
}

func (l *transitionLog) all() []entity.Transition {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]entity.Transition(nil), l.transitions...)
}

func (l *transitionLog) causes() []entity.TransitionCause {
	var out []entity.TransitionCause
	for _, t := range l.all() {
		out = append(out, t.Cause)
	}

	return out
}
