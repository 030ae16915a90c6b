// Package session maps conversation keys to Claude session state. The store
// is purely in-memory; losing it only costs conversation continuity, the
// next message simply starts a fresh backend session.
package session

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Entry is the session state for one conversation key. Entries are immutable
// once stored; updates replace the whole entry.
type Entry struct {
	Key    string
	Handle string
	// LastActivity drives least-recently-active eviction.
	LastActivity time.Time
}

// Store is a bounded in-memory session store. Reads and updates go through
// per-key atomic replacement on a sync.Map, so concurrent handlers for
// unrelated conversations never contend. Overlapping updates for the same
// key are last-writer-wins: the handle converges on the newest successful
// backend call.
type Store struct {
	entries sync.Map // key -> *Entry
	size    atomic.Int64
	max     int

	// evictMu serializes eviction scans only; it is never taken on the
	// lookup or update path.
	evictMu sync.Mutex
}

// NewStore creates a store bounded to maxEntries conversations.
func NewStore(maxEntries int) *Store {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Store{max: maxEntries}
}

// GetOrCreate returns the entry for key, creating an empty one on first
// contact, and marks the conversation active.
func (s *Store) GetOrCreate(key string) Entry {
	now := time.Now()
	fresh := &Entry{Key: key, LastActivity: now}

	actual, loaded := s.entries.LoadOrStore(key, fresh)
	if !loaded {
		if s.size.Add(1) > int64(s.max) {
			s.evict()
		}
		return *fresh
	}

	e := actual.(*Entry)
	touched := &Entry{Key: key, Handle: e.Handle, LastActivity: now}
	s.entries.Store(key, touched)
	return *touched
}

// Update records a new session handle after a successful backend call.
// Failed calls must not reach here: the previous handle stays intact until
// a success replaces it.
func (s *Store) Update(key, handle string) {
	if _, loaded := s.entries.Swap(key, &Entry{Key: key, Handle: handle, LastActivity: time.Now()}); !loaded {
		if s.size.Add(1) > int64(s.max) {
			s.evict()
		}
	}
}

// Lookup returns the current entry for key without creating one.
func (s *Store) Lookup(key string) (Entry, bool) {
	v, ok := s.entries.Load(key)
	if !ok {
		return Entry{}, false
	}
	return *v.(*Entry), true
}

// Len returns the number of tracked conversations.
func (s *Store) Len() int {
	return int(s.size.Load())
}

// evict removes least-recently-active entries until the store is back under
// capacity. The scan is O(n) but only runs when an insert crosses the bound.
func (s *Store) evict() {
	s.evictMu.Lock()
	defer s.evictMu.Unlock()

	for s.size.Load() > int64(s.max) {
		var oldestKey string
		var oldest time.Time
		s.entries.Range(func(k, v any) bool {
			e := v.(*Entry)
			if oldestKey == "" || e.LastActivity.Before(oldest) {
				oldestKey = k.(string)
				oldest = e.LastActivity
			}
			return true
		})
		if oldestKey == "" {
			return
		}
		if _, loaded := s.entries.LoadAndDelete(oldestKey); loaded {
			s.size.Add(-1)
			slog.Debug("evicted idle session", "key", oldestKey)
		}
	}
}
