package impl

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexcourt/internal/domain/entity"
	domainerrors "lexcourt/internal/domain/errors"
	"lexcourt/internal/domain/service"
	"lexcourt/internal/errors"
	"lexcourt/internal/infra/cache"
	"lexcourt/internal/infra/persistence/memory"
)

// delayedProvisioning inserts the profile once the resolver has waited after times.
type delayedProvisioning struct {
	mu      sync.Mutex
	db      *memory.DB
	profile *entity.Profile
	after   int
	sleeps  []time.Duration
}

func (d *delayedProvisioning) sleep(_ context.Context, wait time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sleeps = append(d.sleeps, wait)
	if len(d.sleeps) == d.after && d.profile != nil {
		d.db.InsertProfile(d.profile)
	}

	return nil
}

type profileFixtures struct {
	srv     *profileService
	db      *memory.DB
	cache   *countingCache
	metrics *recordingMetrics
	delay   *delayedProvisioning
	session *entity.Session
}

// countingCache wraps the memory cache and counts reads and writes.
type countingCache struct {
	inner           service.ProfileCache
	mu              sync.Mutex
	gets, sets, del int
}

func (c *countingCache) Get(ctx context.Context, id uuid.UUID) (*entity.Profile, bool, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()

	return c.inner.Get(ctx, id)
}

func (c *countingCache) Set(ctx context.Context, id uuid.UUID, p *entity.Profile, ttl time.Duration) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()

	return c.inner.Set(ctx, id, p, ttl)
}

func (c *countingCache) Delete(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	c.del++
	c.mu.Unlock()

	return c.inner.Delete(ctx, id)
}

// recordingMetrics captures profile resolve outcomes and case query outcomes.
type recordingMetrics struct {
	mu       sync.Mutex
	resolves []string
	queries  []string
	clients  int
}

func (m *recordingMetrics) ObserveTransition(entity.SessionState, entity.SessionState, entity.TransitionCause) {
}

func (m *recordingMetrics) ObserveProfileResolve(outcome string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolves = append(m.resolves, outcome)
}

func (m *recordingMetrics) ObserveCaseQuery(operation, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, operation+":"+outcome)
}

func (m *recordingMetrics) SetActiveClients(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients = n
}

func createTestProfileService(t *testing.T) profileFixtures {
	t.Helper()

	db := memory.New()
	c := &countingCache{inner: cache.NewMemoryProfileCache()}
	metrics := &recordingMetrics{}
	delay := &delayedProvisioning{db: db}

	srv := &profileService{
		txManager: memory.NewTransactionManager(db),
		cache:     c,
		metrics:   metrics,
		validate:  validator.New(),
		attempts:  4,
		backoff:   100 * time.Millisecond,
		logger:    discardLogger(),
		sleep:     delay.sleep,
		now:       time.Now,
	}

	identityID := uuid.New()
	require.NoError(t, memory.NewIdentityRepository(db).Create(context.Background(), &entity.Identity{ID: identityID, Email: "a@x.com"}))

	session := &entity.Session{
		ID:         uuid.New(),
		IdentityID: identityID,
		Email:      "a@x.com",
		ExpiresAt:  time.Now().Add(time.Hour),
	}

	return profileFixtures{srv: srv, db: db, cache: c, metrics: metrics, delay: delay, session: session}
}

func TestProfileService_ResolveFound(t *testing.T) {
	f := createTestProfileService(t)
	f.db.InsertProfile(&entity.Profile{IdentityID: f.session.IdentityID, Role: entity.RoleLawyer, FullName: "A", EnrollmentNumber: "EN1"})

	profile, err := f.srv.Resolve(context.Background(), f.session)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleLawyer, profile.Role)
	assert.Empty(t, f.delay.sleeps)

	again, err := f.srv.Resolve(context.Background(), f.session)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, again.ID)
	assert.Equal(t, []string{resolveOutcomeResolved, resolveOutcomeCached}, f.metrics.resolves)
	assert.Equal(t, 1, f.cache.sets)
}

func TestProfileService_ResolveWaitsForProvisioning(t *testing.T) {
	f := createTestProfileService(t)
	f.delay.after = 2
	f.delay.profile = &entity.Profile{IdentityID: f.session.IdentityID, Role: entity.RoleJudge, FullName: "J", CourtID: "C1"}

	profile, err := f.srv.Resolve(context.Background(), f.session)
	require.NoError(t, err)

	assert.Equal(t, entity.RoleJudge, profile.Role)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, f.delay.sleeps)
}

func TestProfileService_ResolveMissingAfterAttempts(t *testing.T) {
	f := createTestProfileService(t)

	_, err := f.srv.Resolve(context.Background(), f.session)

	assert.True(t, errors.Is(err, domainerrors.ErrProfileMissing))
	assert.True(t, domainerrors.IsFatalResolve(err))
	assert.Len(t, f.delay.sleeps, 3, "no wait after the last attempt")
	assert.Equal(t, []string{resolveOutcomeMissing}, f.metrics.resolves)
}

func TestProfileService_ResolveAmbiguous(t *testing.T) {
	f := createTestProfileService(t)
	f.db.InsertProfile(&entity.Profile{IdentityID: f.session.IdentityID, Role: entity.RoleLawyer})
	f.db.InsertProfile(&entity.Profile{IdentityID: f.session.IdentityID, Role: entity.RoleJudge})

	_, err := f.srv.Resolve(context.Background(), f.session)

	assert.True(t, errors.Is(err, domainerrors.ErrProfileAmbiguous))
	assert.Zero(t, f.cache.sets)
}

func TestProfileService_ResolveUnknownRoleIsAmbiguous(t *testing.T) {
	f := createTestProfileService(t)
	f.db.InsertProfile(&entity.Profile{IdentityID: f.session.IdentityID, Role: entity.Role("registrar")})

	_, err := f.srv.Resolve(context.Background(), f.session)

	assert.True(t, errors.Is(err, domainerrors.ErrProfileAmbiguous))
}

func TestProfileService_ResolveInterruptedByCancel(t *testing.T) {
	f := createTestProfileService(t)
	f.srv.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.srv.Resolve(ctx, f.session)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, domainerrors.IsFatalResolve(err))
}

func TestProfileService_ForgetDropsCachedProfile(t *testing.T) {
	f := createTestProfileService(t)
	f.db.InsertProfile(&entity.Profile{IdentityID: f.session.IdentityID, Role: entity.RoleLawyer})

	_, err := f.srv.Resolve(context.Background(), f.session)
	require.NoError(t, err)

	f.srv.Forget(context.Background(), f.session.ID)

	_, found, err := f.cache.Get(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProfileService_Update(t *testing.T) {
	f := createTestProfileService(t)
	f.db.InsertProfile(&entity.Profile{IdentityID: f.session.IdentityID, Role: entity.RoleLawyer, FullName: "A", EnrollmentNumber: "EN1"})

	name, phone := "Asha Rao", "+91 98200 00000"
	profile, err := f.srv.Update(context.Background(), f.session, &entity.ProfileUpdate{FullName: &name, Phone: &phone})
	require.NoError(t, err)

	assert.Equal(t, name, profile.FullName)
	assert.Equal(t, phone, profile.Phone)
	assert.Equal(t, "EN1", profile.EnrollmentNumber)

	cached, found, err := f.cache.Get(context.Background(), f.session.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, name, cached.FullName)

	profiles, err := memory.NewProfileRepository(f.db).ListByIdentityID(context.Background(), f.session.IdentityID)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, name, profiles[0].FullName)
}

func TestProfileService_UpdateValidation(t *testing.T) {
	f := createTestProfileService(t)
	bad := "not-an-email"

	_, err := f.srv.Update(context.Background(), f.session, &entity.ProfileUpdate{ContactEmail: &bad})
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))

	name := "B"
	_, err = f.srv.Update(context.Background(), f.session, &entity.ProfileUpdate{FullName: &name})
	assert.True(t, errors.Is(err, domainerrors.ErrProfileNotFound))
}

func TestProvisioningService_ProvisionProfile(t *testing.T) {
	db := memory.New()
	srv := NewProvisioningService(ProvisioningServiceParams{
		TxManager: memory.NewTransactionManager(db),
		Logger:    discardLogger(),
	})
	ctx := context.Background()

	identity := &entity.Identity{ID: uuid.New(), Email: "j@x.com"}
	require.NoError(t, memory.NewIdentityRepository(db).Create(ctx, identity))

	event := &entity.IdentityCreatedEvent{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Metadata:   entity.ProfileMetadata{Role: entity.RoleJudge, FullName: "Justice K", CourtID: "DL-HC-01"},
		OccurredAt: time.Now(),
	}

	require.NoError(t, srv.ProvisionProfile(ctx, event))
	require.NoError(t, srv.ProvisionProfile(ctx, event), "redelivery is a no-op")

	profiles, err := memory.NewProfileRepository(db).ListByIdentityID(ctx, identity.ID)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, entity.RoleJudge, profiles[0].Role)
	assert.Equal(t, "DL-HC-01", profiles[0].CourtID)
	assert.Empty(t, profiles[0].EnrollmentNumber)
}

func TestProvisioningService_Rejects(t *testing.T) {
	db := memory.New()
	srv := NewProvisioningService(ProvisioningServiceParams{
		TxManager: memory.NewTransactionManager(db),
		Logger:    discardLogger(),
	})
	ctx := context.Background()

	tests := []struct {
		name  string
		event *entity.IdentityCreatedEvent
		want  error
	}{
		{name: "nil event", event: nil, want: domainerrors.ErrValidationFailed},
		{name: "no identity", event: &entity.IdentityCreatedEvent{}, want: domainerrors.ErrValidationFailed},
		{
			name: "lawyer without enrollment number",
			event: &entity.IdentityCreatedEvent{
				IdentityID: uuid.New(),
				Metadata:   entity.ProfileMetadata{Role: entity.RoleLawyer, FullName: "A"},
			},
			want: domainerrors.ErrValidationFailed,
		},
		{
			name: "unknown identity",
			event: &entity.IdentityCreatedEvent{
				IdentityID: uuid.New(),
				Metadata:   entity.ProfileMetadata{Role: entity.RoleLawyer, FullName: "A", EnrollmentNumber: "EN9"},
			},
			want: domainerrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := srv.ProvisionProfile(ctx, tt.event)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

}
