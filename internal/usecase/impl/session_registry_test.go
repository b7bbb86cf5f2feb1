package impl

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexcourt/config"
	"lexcourt/internal/domain/entity"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func createTestRegistry(t *testing.T) (*sessionRegistry, *fakeStore, *fakeProfiles, *fakeClock) {
	t.Helper()

	store := newFakeStore()
	profiles := newFakeProfiles()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	cfg := &config.Config{Auth: &config.AuthConfig{SessionTTL: 30 * time.Minute}}
	reg := newSessionRegistry(cfg, sessionDeps{
		store:    store,
		profiles: profiles,
		logger:   discardLogger(),
		now:      clock.Now,
	})
	t.Cleanup(reg.closeAll)

	return reg, store, profiles, clock
}

func TestSessionRegistry_GetReturnsSameManagerPerClient(t *testing.T) {
	reg, _, _, _ := createTestRegistry(t)

	a := reg.Get("client-a")
	assert.Same(t, a, reg.Get("client-a"))
	assert.NotSame(t, a, reg.Get("client-b"))
	assert.Equal(t, 2, reg.Len())

	got, ok := reg.Lookup("client-a")
	assert.True(t, ok)
	assert.Same(t, a, got)

	_, ok = reg.Lookup("client-c")
	assert.False(t, ok)
}

func TestSessionRegistry_ClientsAreIsolated(t *testing.T) {
	reg, store, profiles, _ := createTestRegistry(t)
	identity := store.addAccount("a@x.com", "pw123456")
	profiles.put(identity.ID, entity.RoleLawyer)

	a := reg.Get("client-a")
	b := reg.Get("client-b")

	_, err := a.SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)

	assert.Equal(t, entity.SessionAuthenticated, a.State())
	assert.Equal(t, entity.SessionUnauthenticated, b.State())
	assert.Nil(t, b.CurrentSession())
}

func TestSessionRegistry_PruneKeepsSignedInAndRecentClients(t *testing.T) {
	reg, store, profiles, clock := createTestRegistry(t)
	identity := store.addAccount("a@x.com", "pw123456")
	profiles.put(identity.ID, entity.RoleLawyer)

	reg.Get("idle")
	_, err := reg.Get("signed-in").SignIn(context.Background(), "a@x.com", "pw123456")
	require.NoError(t, err)

	assert.Zero(t, reg.Prune(context.Background()))

	clock.Advance(31 * time.Minute)
	reg.Get("recent")

	assert.Equal(t, 1, reg.Prune(context.Background()))
	assert.Equal(t, 2, reg.Len())

	_, ok := reg.Lookup("idle")
	assert.False(t, ok)
	_, ok = reg.Lookup("signed-in")
	assert.True(t, ok)
}
