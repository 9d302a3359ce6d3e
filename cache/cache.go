// Package cache implements the in-memory store of vehicle records keyed by
// normalized VRM.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/ukvd/vrmlookup/internal/counter"
	"github.com/ukvd/vrmlookup/vehicle"
)

// State tags a cache entry as holding real vehicle data or a remembered
// upstream "not found".
type State uint8

const (
	// Fresh entries hold a vehicle record obtained from a successful
	// upstream fetch.
	Fresh State = iota

	// Negative entries remember an authoritative upstream "not found",
	// so repeat lookups for unregistered plates don't hammer the
	// provider. They carry no record and use a shorter TTL.
	Negative
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Negative:
		return "negative"
	}
	return fmt.Sprintf("unknown state %d", uint8(s))
}

// Entry wraps a vehicle record with its expiry metadata. Entries are never
// mutated in place; a refresh replaces the entry wholesale.
type Entry struct {
	// Record is nil for Negative entries.
	Record *vehicle.Record

	State     State
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is stale at the given instant. Expiry
// is inclusive of the boundary: an access exactly at ExpiresAt is a miss.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// NewFreshEntry builds a Fresh entry valid for ttl from now.
func NewFreshEntry(record *vehicle.Record, now time.Time, ttl time.Duration) Entry {
	return Entry{
		Record:    record,
		State:     Fresh,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// NewNegativeEntry builds a Negative entry valid for ttl from now.
func NewNegativeEntry(now time.Time, ttl time.Duration) Entry {
	return Entry{
		State:     Negative,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Stats represents cache stats
type Stats struct {
	// Items is the number of entries in the cache, expired included.
	Items uint64

	// Evictions is the number of entries displaced by the capacity bound.
	Evictions uint64
}

// Store maps normalized VRMs to cache entries. Reads may run concurrently;
// writes are serialized. Expired entries are not swept proactively: they
// are treated as absent by callers and overwritten by the next Put for
// their key.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry

	// maxEntries bounds the store size; zero means unbounded.
	maxEntries int

	evictions counter.Counter
}

// NewStore creates an empty store. maxEntries <= 0 disables the capacity
// bound.
func NewStore(maxEntries int) *Store {
	return &Store{
		entries:    make(map[string]Entry),
		maxEntries: maxEntries,
	}
}

// Get returns the entry for key, expired or not. It never mutates the
// store; checking Entry.Expired is the caller's job.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	return e, ok
}

// Put inserts or replaces the entry for key. When the capacity bound is
// configured and the insert would exceed it, the single oldest entry by
// CreatedAt is evicted first.
func (s *Store) Put(key string, e Entry) {
	if !e.ExpiresAt.After(e.CreatedAt) {
		panic(fmt.Sprintf("BUG: entry for %q expires at %s, not after its creation at %s",
			key, e.ExpiresAt, e.CreatedAt))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}
	s.entries[key] = e
}

// evictOldest removes the entry with the earliest CreatedAt.
// The caller must hold s.mu.
func (s *Store) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for key, e := range s.entries {
		if !found || e.CreatedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.CreatedAt
			found = true
		}
	}
	if found {
		delete(s.entries, oldestKey)
		s.evictions.Inc()
	}
}

// Len returns the number of stored entries, expired included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() Stats {
	return Stats{
		Items:     uint64(s.Len()),
		Evictions: s.evictions.Load(),
	}
}
