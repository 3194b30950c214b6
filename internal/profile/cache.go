package profile

import (
	"context"
	"sync"
	"time"

	"github.com/neegandary/NexChat/internal/model"
)

// DefaultTTL matches the freshness window the contact list tolerates for
// names and avatars.
const DefaultTTL = 5 * time.Minute

type cacheEntry struct {
	profile   *model.Profile
	fetchedAt time.Time
}

// Cache is a TTL cache in front of a Directory. Entries older than the TTL
// are treated as absent and refetched. Concurrent misses for the same
// identity may each trigger a fetch; the race is harmless (same value wins
// twice) and deliberately not de-duplicated.
type Cache struct {
	dir Directory
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry

	now func() time.Time // injectable for tests
}

func NewCache(dir Directory, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		dir:     dir,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached profile for userID, fetching through the directory
// on miss or expiry. Staleness never exceeds the TTL.
func (c *Cache) Get(ctx context.Context, userID string) (*model.Profile, error) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.fetchedAt) < c.ttl {
		return e.profile, nil
	}

	p, err := c.dir.FetchProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[userID] = cacheEntry{profile: p, fetchedAt: c.now()}
	c.mu.Unlock()
	return p, nil
}

// Invalidate drops the entry for userID, forcing the next Get to refetch.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
