package dependency

import (
	"context"
	"sync"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/agenterrors"
)

const (
	tagCacheTTL          = time.Hour
	tagCacheMaxAttempts  = 3
)

// TagFetcher retrieves the value to cache (e.g. an EC2 instance tag) from an
// external source.
type TagFetcher func(ctx context.Context, key string) (string, error)

// TagCache is the process-wide, mutex-guarded singleton cache: a one-hour
// TTL per key and a three-attempt retry ceiling before permanently giving up
// on a key for the process lifetime. No lock spans the fetch call itself;
// callers that race treat concurrent refreshes as idempotent.
type TagCache struct {
	mu      sync.Mutex
	fetch   TagFetcher
	entries map[string]*tagEntry
}

type tagEntry struct {
	value      string
	fetchedAt  time.Time
	attempts   int
	gaveUp     bool
}

func NewTagCache(fetch TagFetcher) *TagCache {
	return &TagCache{fetch: fetch, entries: map[string]*tagEntry{}}
}

// Get returns the cached value for key, refreshing it if the TTL elapsed.
// Once a key has failed tagCacheMaxAttempts times it is never retried again
// for the process lifetime.
func (c *TagCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &tagEntry{}
		c.entries[key] = entry
	}
	if entry.gaveUp {
		c.mu.Unlock()
		return "", agenterrors.DependencyUnavailableErr(key, nil).WithDetail("reason", "tag cache permanently exhausted retries")
	}
	fresh := entry.fetchedAt.IsZero() || time.Since(entry.fetchedAt) >= tagCacheTTL
	c.mu.Unlock()

	if !fresh {
		c.mu.Lock()
		v := entry.value
		c.mu.Unlock()
		return v, nil
	}

	value, err := c.fetch(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		entry.attempts++
		if entry.attempts >= tagCacheMaxAttempts {
			entry.gaveUp = true
		}
		return "", agenterrors.DependencyUnavailableErr(key, err)
	}
	entry.value = value
	entry.fetchedAt = time.Now()
	entry.attempts = 0
	return value, nil
}

// Prune drops entries that gave up permanently or have sat stale for more
// than maxAge past their TTL, bounding the cache's memory footprint across
// a long-running process with many distinct keys over its lifetime.
func (c *TagCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.gaveUp || time.Since(entry.fetchedAt) > tagCacheTTL+maxAge {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
