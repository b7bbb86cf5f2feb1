package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/service"
)

type memoryEntry struct {
	profile   entity.Profile
	expiresAt time.Time
}

// memoryProfileCache is a process-local ProfileCache. Expired entries are
// dropped when read.
type memoryProfileCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]memoryEntry
	now     func() time.Time
}

// NewMemoryProfileCache returns an empty process-local cache.
func NewMemoryProfileCache() service.ProfileCache {
	return newMemoryProfileCache(time.Now)
}

func newMemoryProfileCache(now func() time.Time) *memoryProfileCache {
	return &memoryProfileCache{
		entries: make(map[uuid.UUID]memoryEntry),
		now:     now,
	}
}

func (c *memoryProfileCache) Get(_ context.Context, sessionID uuid.UUID) (*entity.Profile, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[sessionID]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, sessionID)

		return nil, false, nil
	}

	profile := entry.profile

	return &profile, true, nil
}

func (c *memoryProfileCache) Set(_ context.Context, sessionID uuid.UUID, profile *entity.Profile, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[sessionID] = memoryEntry{profile: *profile, expiresAt: c.now().Add(ttl)}

	return nil
}

func (c *memoryProfileCache) Delete(_ context.Context, sessionID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, sessionID)

	return nil
}
