// Package cache memoizes backend lookups for the lifetime of the session.
//
// Entries are never evicted or invalidated: once a query has results they are
// considered valid until the process exits.
package cache

import (
	"strings"
	"sync"

	"github.com/yhkl-dev/SonicCLI/domain"
)

// Normalizer maps a raw lookup key onto the key under which it is stored
type Normalizer func(string) string

// Lower normalizes query text, so "Daft Punk" and "daft punk" share an entry
func Lower(key string) string {
	return strings.ToLower(key)
}

// Exact keeps the key as is
func Exact(key string) string {
	return key
}

// Table is an unbounded, thread-safe lookup table with key normalization.
// Writes overwrite unconditionally and reads never mutate state.
type Table[V any] struct {
	normalize Normalizer
	entries   map[string]V
	mux       sync.RWMutex
}

// NewTable creates an empty table
func NewTable[V any](normalize Normalizer) *Table[V] {
	if normalize == nil {
		normalize = Exact
	}
	return &Table[V]{
		normalize: normalize,
		entries:   make(map[string]V),
	}
}

// Get returns the value stored under key
func (t *Table[V]) Get(key string) (V, bool) {
	t.mux.RLock()
	defer t.mux.RUnlock()
	v, ok := t.entries[t.normalize(key)]
	return v, ok
}

// Put stores value under key, replacing any previous entry
func (t *Table[V]) Put(key string, value V) {
	t.mux.Lock()
	defer t.mux.Unlock()
	t.entries[t.normalize(key)] = value
}

// Len returns the number of entries
func (t *Table[V]) Len() int {
	t.mux.RLock()
	defer t.mux.RUnlock()
	return len(t.entries)
}

// ResultCache holds search results by query and resolved stream locations by track id
type ResultCache struct {
	searches *Table[[]domain.Track]
	streams  *Table[string]
}

// New creates an empty ResultCache
func New() *ResultCache {
	return &ResultCache{
		searches: NewTable[[]domain.Track](Lower),
		streams:  NewTable[string](Exact),
	}
}

// Search returns the cached results for query
func (c *ResultCache) Search(query string) ([]domain.Track, bool) {
	tracks, ok := c.searches.Get(query)
	if !ok {
		return nil, false
	}
	out := make([]domain.Track, len(tracks))
	copy(out, tracks)
	return out, true
}

// StoreSearch caches tracks under query. Stream locations that came with the
// results (keyed by track id) are recorded as well.
func (c *ResultCache) StoreSearch(query string, tracks []domain.Track, streams map[string]string) {
	stored := make([]domain.Track, len(tracks))
	copy(stored, tracks)
	c.searches.Put(query, stored)
	for id, url := range streams {
		if id != "" && url != "" {
			c.streams.Put(id, url)
		}
	}
}

// StreamURL returns the resolved stream location of a track
func (c *ResultCache) StreamURL(trackID string) (string, bool) {
	return c.streams.Get(trackID)
}

// StoreStream records the stream location of a track
func (c *ResultCache) StoreStream(trackID, url string) {
	c.streams.Put(trackID, url)
}
