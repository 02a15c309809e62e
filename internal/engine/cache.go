package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/karpella/ec2console/internal/aws/ec2"
)

// Snapshot is one published view of a collection. The instance slice is
// shared between readers; callers must not modify it.
type Snapshot struct {
	Key       Key
	Instances []ec2.Instance
	Stats     Stats
	FetchedAt time.Time
	Fetching  bool
	Err       error
}

// Stale reports whether the snapshot is due for a refresh at now.
func (s Snapshot) Stale(now time.Time) bool {
	return s.FetchedAt.IsZero() || now.Sub(s.FetchedAt) > collectionTTL
}

// collectionEntry is the cache slot for one key. seq counts issued
// fetches; a completing fetch whose seq no longer matches was
// superseded and its response is discarded.
type collectionEntry struct {
	mu        sync.Mutex
	key       Key
	data      []ec2.Instance
	stats     Stats
	fetchedAt time.Time
	fetching  bool
	seq       uint64
	lastErr   error

	refs     int
	lastRead time.Time
}

func (c *collectionEntry) snapshot(now time.Time) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRead = now
	return Snapshot{
		Key:       c.key,
		Instances: c.data,
		Stats:     c.stats,
		FetchedAt: c.fetchedAt,
		Fetching:  c.fetching,
		Err:       c.lastErr,
	}
}

// sortInstances applies the listing order: display name ascending,
// ordinal compare, ties broken by id.
func sortInstances(instances []ec2.Instance) {
	sort.Slice(instances, func(i, j int) bool {
		a, b := instances[i].DisplayName(), instances[j].DisplayName()
		if a != b {
			return a < b
		}
		return instances[i].ID < instances[j].ID
	})
}

// ttlEntry and ttlCache back the small read-through caches (statuses,
// regions) that have no bound readers and no background refresh.
type ttlEntry[T any] struct {
	data      T
	fetchedAt time.Time
}

type ttlCache[T any] struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]ttlEntry[T]
}

func newTTLCache[T any](ttl time.Duration) *ttlCache[T] {
	return &ttlCache[T]{ttl: ttl, data: make(map[string]ttlEntry[T])}
}

func (c *ttlCache[T]) get(key string, now time.Time) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok || now.Sub(entry.fetchedAt) > c.ttl {
		var zero T
		return zero, false
	}
	return entry.data, true
}

func (c *ttlCache[T]) put(key string, data T, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, entry := range c.data {
		if now.Sub(entry.fetchedAt) > c.ttl {
			delete(c.data, k)
		}
	}
	c.data[key] = ttlEntry[T]{data: data, fetchedAt: now}
}
