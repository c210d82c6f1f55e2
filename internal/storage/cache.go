package storage

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LeJamon/goMarketd/internal/core/state"
)

// entryCache fronts the backend with decoded ledger entries so hot
// reads (listing lookups, fee reads) skip decompression and decoding.
type entryCache struct {
	entries *lru.Cache[state.Key, state.Entry]

	hits   uint64
	misses uint64
}

// newEntryCache creates a cache holding up to size decoded entries.
func newEntryCache(size int) (*entryCache, error) {
	entries, err := lru.New[state.Key, state.Entry](size)
	if err != nil {
		return nil, err
	}
	return &entryCache{entries: entries}, nil
}

// Get returns a copy of the cached entry for key, if present. The
// copy keeps callers from mutating the cached value in place.
func (c *entryCache) Get(key state.Key) (state.Entry, bool) {
	entry, found := c.entries.Get(key)
	if !found {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}
	atomic.AddUint64(&c.hits, 1)
	return entry.Clone(), true
}

// Put caches a copy of the entry under key.
func (c *entryCache) Put(key state.Key, entry state.Entry) {
	c.entries.Add(key, entry.Clone())
}

// Remove drops the cached entry for key, if present.
func (c *entryCache) Remove(key state.Key) {
	c.entries.Remove(key)
}

// Purge drops every cached entry.
func (c *entryCache) Purge() {
	c.entries.Purge()
}

// Len returns the current number of cached entries.
func (c *entryCache) Len() int {
	return c.entries.Len()
}

// Hits returns the number of reads served from the cache.
func (c *entryCache) Hits() uint64 {
	return atomic.LoadUint64(&c.hits)
}

// Misses returns the number of reads that fell through to the backend.
func (c *entryCache) Misses() uint64 {
	return atomic.LoadUint64(&c.misses)
}
