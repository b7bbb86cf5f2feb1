package impl

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexcourt/internal/domain/entity"
	domainerrors "lexcourt/internal/domain/errors"
	"lexcourt/internal/errors"
	"lexcourt/internal/usecase"
	"lexcourt/internal/util"
)

type managerFixtures struct {
	manager  *sessionManager
	store    *fakeStore
	profiles *fakeProfiles
	log      *transitionLog
}

func createTestManager(t *testing.T) managerFixtures {
	t.Helper()

	store := newFakeStore()
	profiles := newFakeProfiles()
	manager := newSessionManager("client-1", sessionDeps{
		store:    store,
		profiles: profiles,
		logger:   discardLogger(),
		now:      time.Now,
	})
	t.Cleanup(manager.Close)

	log := &transitionLog{}
	manager.Subscribe(log.record)

	return managerFixtures{manager: manager, store: store, profiles: profiles, log: log}
}

// flush waits until subscribers have received every transition so far.
func (m *sessionManager) flush() {
	m.mu.RLock()
	boxes := make([]*util.Mailbox[entity.Transition], 0, len(m.subs))
	for _, mb := range m.subs {
		boxes = append(boxes, mb)
	}
	m.mu.RUnlock()

	for _, mb := range boxes {
		mb.Sync()
	}
}

// settle drains store events, background profile lookups and transitions.
func (f managerFixtures) settle() {
	f.store.sync()
	f.manager.resolving.Wait()
	f.store.sync()
	f.manager.flush()
}

func (f managerFixtures) lawyer(t *testing.T, email string) *entity.Identity {
	t.Helper()

	identity := f.store.addAccount(email, "pw123456")
	f.profiles.put(identity.ID, entity.RoleLawyer)

	return identity
}

func TestSessionManager_InitialState(t *testing.T) {
	f := createTestManager(t)

	assert.Equal(t, entity.SessionUnauthenticated, f.manager.State())
	assert.Nil(t, f.manager.CurrentSession())
	assert.Equal(t, entity.SessionSnapshot{State: entity.SessionUnauthenticated}, f.manager.Snapshot())
}

func TestSessionManager_SignUpThenSignInLandsOnLawyerDashboard(t *testing.T) {
	f := createTestManager(t)
	f.store.onRegister = func(identity *entity.Identity) {
		require.Equal(t, "EN1", identity.Metadata.EnrollmentNumber)
		f.profiles.put(identity.ID, identity.Metadata.Role)
	}

	identity, err := f.manager.SignUp(context.Background(), &usecase.SignUpInput{
		Email:    "a@x.com",
		Password: "pw123456",
		Metadata: entity.ProfileMetadata{Role: entity.RoleLawyer, FullName: "A", EnrollmentNumber: "EN1"},
	})
	require.NoError(t, err)
	require.NoError(t, f.manager.SignOut(context.Background()))

	session, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)
	f.settle()

	assert.Equal(t, identity.ID, session.IdentityID)
	assert.Equal(t, entity.SessionAuthenticated, f.manager.State())
	assert.Same(t, session, f.manager.CurrentSession())

	snapshot := f.manager.Snapshot()
	require.NotNil(t, snapshot.Profile)
	assert.Equal(t, entity.RoleLawyer, snapshot.Profile.Role)
	assert.False(t, snapshot.ProfileLoading)

	guard := NewRouteGuard(nil)
	decision := guard.Evaluate(entity.Destination{Path: "/lawyer/dashboard", RequiredRole: entity.RoleLawyer}, snapshot)
	assert.Equal(t, entity.GuardAllow, decision.Outcome)

	assert.Equal(t, []entity.TransitionCause{entity.CauseSignUp, entity.CauseSignOut, entity.CauseSignIn}, f.log.causes())
}

func TestSessionManager_SignInFailureRecordsNoTransition(t *testing.T) {
	f := createTestManager(t)
	f.lawyer(t, "a@x.com")

	_, err := f.manager.SignIn(context.Background(), "a@x.com", "wrong")
	f.settle()

	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.Equal(t, entity.SessionUnauthenticated, f.manager.State())
	assert.Nil(t, f.manager.CurrentSession())
	assert.Empty(t, f.log.all())
}

func TestSessionManager_TransientErrorsRetriedOnce(t *testing.T) {
	f := createTestManager(t)
	f.lawyer(t, "a@x.com")

	f.store.failAuthenticate(domainerrors.ErrNetwork)
	_, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)
	auth, _ := f.store.calls()
	assert.Equal(t, 2, auth)

	require.NoError(t, f.manager.SignOut(context.Background()))

	f.store.failAuthenticate(domainerrors.ErrRateLimited, domainerrors.ErrRateLimited)
	_, err = f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	assert.True(t, errors.Is(err, domainerrors.ErrRateLimited))
	auth, _ = f.store.calls()
	assert.Equal(t, 4, auth)

	f.store.failAuthenticate(domainerrors.ErrInvalidCredentials)
	_, err = f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	auth, _ = f.store.calls()
	assert.Equal(t, 5, auth, "non-transient errors are not retried")
}

func TestSessionManager_SignOutClearsLocalStateWhenRemoteFails(t *testing.T) {
	f := createTestManager(t)
	f.lawyer(t, "a@x.com")

	_, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)

	f.store.failInvalidate(domainerrors.ErrInternalError)
	err = f.manager.SignOut(context.Background())
	f.settle()

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrInternalError))
	assert.Nil(t, f.manager.CurrentSession())
	assert.Equal(t, entity.SessionUnauthenticated, f.manager.State())
	assert.Equal(t, []entity.TransitionCause{entity.CauseSignIn, entity.CauseSignOut}, f.log.causes())
}

func TestSessionManager_SignOutWithoutSessionIsNoop(t *testing.T) {
	f := createTestManager(t)

	require.NoError(t, f.manager.SignOut(context.Background()))
	f.settle()

	assert.Empty(t, f.log.all())
	_, invalidate := f.store.calls()
	assert.Zero(t, invalidate)
}

func TestSessionManager_SignInAsNewIdentityReplacesSession(t *testing.T) {
	f := createTestManager(t)
	f.lawyer(t, "a@x.com")
	f.lawyer(t, "b@x.com")

	first, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)
	second, err := f.manager.SignIn(context.Background(), "b@x.com", "pw123456")
	require.NoError(t, err)
	f.settle()

	assert.Same(t, second, f.manager.CurrentSession())
	assert.Contains(t, f.store.invalidated, first.ID)

	transitions := f.log.all()
	require.Len(t, transitions, 2, "the replaced session's sign-out event must not produce a transition")
	assert.Equal(t, entity.CauseReplaced, transitions[1].Cause)
	assert.Equal(t, entity.SessionAuthenticated, transitions[1].From)
	assert.Equal(t, entity.SessionAuthenticated, transitions[1].To)
	assert.Same(t, first, transitions[1].Previous)
	assert.Same(t, second, transitions[1].Current)
}

func TestSessionManager_StoreEvents(t *testing.T) {
	f := createTestManager(t)
	f.lawyer(t, "a@x.com")

	session, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)

	// events for sessions this client does not hold are ignored
	f.store.expire(&entity.Session{Token: "other"})
	f.settle()
	assert.Same(t, session, f.manager.CurrentSession())

	f.store.expire(session)
	f.settle()

	assert.Nil(t, f.manager.CurrentSession())
	assert.Equal(t, []entity.TransitionCause{entity.CauseSignIn, entity.CauseTokenExpired}, f.log.causes())

	session, err = f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)
	f.store.revoke(session)
	f.settle()

	assert.Nil(t, f.manager.CurrentSession())
	assert.Equal(t, entity.CauseRevoked, f.log.all()[3].Cause)
}

func TestSessionManager_RapidSequenceDeliversEveryTransitionOnceInOrder(t *testing.T) {
	f := createTestManager(t)
	f.lawyer(t, "a@x.com")

	second := &transitionLog{}
	f.manager.Subscribe(func(tr entity.Transition) {
		time.Sleep(100 * time.Microsecond)
		second.record(tr)
	})

	const rounds = 25
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				_, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
				assert.NoError(t, err)
				assert.NoError(t, f.manager.SignOut(context.Background()))
			}
		}()
	}
	wg.Wait()
	f.settle()

	first := f.log.all()
	require.NotEmpty(t, first)
	assert.Equal(t, first, second.all())

	for i, tr := range first {
		assert.Equal(t, uint64(i+1), tr.Seq)
		if i > 0 {
			assert.Equal(t, first[i-1].To, tr.From, "transition %d does not continue from the previous state", i)
		}
	}
	assert.Equal(t, entity.SessionUnauthenticated, f.manager.State())
}

func TestSessionManager_PendingDuringFirstSignIn(t *testing.T) {
	f := createTestManager(t)
	f.lawyer(t, "a@x.com")
	f.store.authGate = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
		done <- err
	}()

	assert.Eventually(t, func() bool { return f.manager.State() == entity.SessionPending }, time.Second, time.Millisecond)
	assert.Nil(t, f.manager.CurrentSession())

	close(f.store.authGate)
	require.NoError(t, <-done)
	f.settle()

	assert.Equal(t, entity.SessionAuthenticated, f.manager.State())
	for _, tr := range f.log.all() {
		assert.NotEqual(t, entity.SessionPending, tr.To)
	}
}

func TestSessionManager_FatalProfileForcesSignOut(t *testing.T) {
	for _, fatal := range []*domainerrors.BaseError{domainerrors.ErrProfileMissing, domainerrors.ErrProfileAmbiguous} {
		t.Run(fatal.Error(), func(t *testing.T) {
			f := createTestManager(t)
			identity := f.store.addAccount("a@x.com", "pw123456")
			f.profiles.fail(identity.ID, errors.WithStack(fatal))

			session, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
			require.NoError(t, err)
			f.settle()

			snapshot := f.manager.Snapshot()
			assert.Nil(t, snapshot.Session)
			assert.Nil(t, snapshot.Profile)
			assert.Equal(t, fatal.ErrorCode(), snapshot.ProfileError)
			assert.Equal(t, []entity.TransitionCause{entity.CauseSignIn, entity.CauseProfileRejected}, f.log.causes())
			assert.Contains(t, f.store.invalidated, session.ID)
		})
	}
}

func TestSessionManager_NonFatalProfileErrorKeepsSession(t *testing.T) {
	f := createTestManager(t)
	identity := f.lawyer(t, "a@x.com")
	f.profiles.fail(identity.ID, errors.WithStack(domainerrors.ErrNetwork))

	_, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)
	f.settle()

	snapshot := f.manager.Snapshot()
	assert.NotNil(t, snapshot.Session)
	assert.Equal(t, "NETWORK_ERROR", snapshot.ProfileError)

	// the next scoped request retries the lookup
	f.profiles.fail(identity.ID, nil)
	_, err = f.manager.Scope(context.Background())
	assert.True(t, errors.Is(err, domainerrors.ErrProfileLoading))
	f.settle()

	assert.NotNil(t, f.manager.Snapshot().Profile)
}

func TestSessionManager_ScopeRejectsExpiredSession(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := newFakeStore()
	store.ttl = time.Minute
	profiles := newFakeProfiles()
	manager := newSessionManager("client-1", sessionDeps{
		store:    store,
		profiles: profiles,
		logger:   discardLogger(),
		now:      clock.Now,
	})
	t.Cleanup(manager.Close)
	f := managerFixtures{manager: manager, store: store, profiles: profiles, log: &transitionLog{}}
	f.lawyer(t, "a@x.com")

	_, err := manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)
	f.settle()

	scope, err := manager.Scope(context.Background())
	require.NoError(t, err)
	scope.Release()

	clock.Advance(2 * time.Minute)

	_, err = manager.Scope(context.Background())
	assert.True(t, errors.Is(err, domainerrors.ErrSessionExpired))
}

func TestSessionManager_ScopeRequiresResolvedProfile(t *testing.T) {
	f := createTestManager(t)
	f.lawyer(t, "a@x.com")

	_, err := f.manager.Scope(context.Background())
	assert.True(t, errors.Is(err, domainerrors.ErrNotAuthenticated))

	f.profiles.gate = make(chan struct{})
	_, err = f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)

	assert.True(t, f.manager.Snapshot().ProfileLoading)
	_, err = f.manager.Scope(context.Background())
	assert.True(t, errors.Is(err, domainerrors.ErrProfileLoading))

	close(f.profiles.gate)
	f.settle()

	scope, err := f.manager.Scope(context.Background())
	require.NoError(t, err)
	defer scope.Release()
	assert.Equal(t, entity.RoleLawyer, scope.Requester().Role)
	assert.NoError(t, scope.Err())
}

func TestSessionManager_StaleResultDiscardedWhenSessionExpiresMidFlight(t *testing.T) {
	f := createTestManager(t)
	f.lawyer(t, "a@x.com")

	session, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)
	f.settle()

	started := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		view, err := usecase.InSession(context.Background(), f.manager, func(ctx context.Context, _ entity.Requester) (*entity.CaseView, error) {
			close(started)
			<-ctx.Done()

			return &entity.CaseView{Case: &entity.Case{Title: "stale"}}, nil
		})
		assert.Nil(t, view)
		result <- err
	}()

	<-started
	f.store.expire(session)
	f.settle()

	err = <-result
	assert.True(t, errors.Is(err, domainerrors.ErrStaleSession))
	assert.Nil(t, f.manager.CurrentSession())

	decision := NewRouteGuard(nil).Evaluate(entity.Destination{Path: "/lawyer/cases/1", RequiredRole: entity.RoleLawyer}, f.manager.Snapshot())
	assert.Equal(t, entity.GuardRedirectSignIn, decision.Outcome)
}

func TestSessionManager_StaleProfileDiscarded(t *testing.T) {
	f := createTestManager(t)
	f.lawyer(t, "a@x.com")
	f.profiles.gate = make(chan struct{})

	_, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)
	require.NoError(t, f.manager.SignOut(context.Background()))

	close(f.profiles.gate)
	f.settle()

	snapshot := f.manager.Snapshot()
	assert.Nil(t, snapshot.Profile)
	assert.False(t, snapshot.ProfileLoading)
}

func TestSessionManager_UpdateProfile(t *testing.T) {
	f := createTestManager(t)
	f.lawyer(t, "a@x.com")

	_, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)
	f.settle()

	name := "Asha Rao"
	profile, err := f.manager.UpdateProfile(context.Background(), &entity.ProfileUpdate{FullName: &name})
	require.NoError(t, err)

	assert.Equal(t, name, profile.FullName)
	assert.Equal(t, name, f.manager.Snapshot().Profile.FullName)
}

func TestSessionManager_Unsubscribe(t *testing.T) {
	f := createTestManager(t)
	f.lawyer(t, "a@x.com")

	extra := &transitionLog{}
	unsubscribe := f.manager.Subscribe(extra.record)
	unsubscribe()
	unsubscribe()

	_, err := f.manager.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)
	f.settle()

	assert.Empty(t, extra.all())
	assert.Len(t, f.log.all(), 1)
}
