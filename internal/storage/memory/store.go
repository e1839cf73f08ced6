// Package memory provides the in-memory key-value store for jetkv.
//
// All operations on a Store are serialized by a single mutex. Expiry is
// passive: an entry whose deadline has passed is treated as absent and is
// removed by the first operation that observes it.
package memory

import (
	"sync"
	"sync/atomic"
)

// TTL sentinels returned by PTTL.
const (
	// TTLMissing is returned for a key that does not exist.
	TTLMissing int64 = -2
	// TTLPersistent is returned for a key without an expiry.
	TTLPersistent int64 = -1
)

// Entry is a stored value and its optional absolute expiry.
type Entry struct {
	Value []byte
	// ExpireAt is a Unix timestamp in milliseconds. Zero means no expiry.
	ExpireAt int64
}

// expiredAt reports whether the entry is logically absent at nowMillis.
func (e *Entry) expiredAt(nowMillis int64) bool {
	return e.ExpireAt != 0 && e.ExpireAt <= nowMillis
}

// Stats holds cumulative store counters.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Expired uint64
}

// Store maps keys to entries.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry

	hits    atomic.Uint64
	misses  atomic.Uint64
	expired atomic.Uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entries: make(map[string]*Entry),
	}
}

// Set stores value under key, replacing any previous value and expiry.
// expireAt is an absolute Unix time in milliseconds, or 0 for none.
// The store keeps value; callers must not modify it afterwards.
func (s *Store) Set(key string, value []byte, expireAt int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &Entry{Value: value, ExpireAt: expireAt}
}

// Get returns the value stored under key if it is present and unexpired at
// nowMillis. An expired entry is deleted.
func (s *Store) Get(key string, nowMillis int64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookupLocked(key, nowMillis)
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return e.Value, true
}

// Delete removes key and reports whether a live entry was removed.
func (s *Store) Delete(key string, nowMillis int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookupLocked(key, nowMillis); !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// Exists reports whether key holds a live entry.
func (s *Store) Exists(key string, nowMillis int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookupLocked(key, nowMillis)
	return ok
}

// DeleteKeys removes every key under one lock and returns how many live
// entries were removed. A key repeated in keys is counted once.
func (s *Store) DeleteKeys(keys []string, nowMillis int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, key := range keys {
		if _, ok := s.lookupLocked(key, nowMillis); ok {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

// CountExisting returns how many of keys hold a live entry, observed under
// one lock. A key repeated in keys is counted every time.
func (s *Store) CountExisting(keys []string, nowMillis int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, key := range keys {
		if _, ok := s.lookupLocked(key, nowMillis); ok {
			n++
		}
	}
	return n
}

// PTTL returns the remaining lifetime of key in milliseconds, TTLMissing if
// the key is absent, or TTLPersistent if it never expires.
func (s *Store) PTTL(key string, nowMillis int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookupLocked(key, nowMillis)
	if !ok {
		return TTLMissing
	}
	if e.ExpireAt == 0 {
		return TTLPersistent
	}
	return e.ExpireAt - nowMillis
}

// Len returns the number of physically stored entries, including expired
// entries that have not been observed yet.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a snapshot of the cumulative counters.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Expired: s.expired.Load(),
	}
}

// lookupLocked returns the live entry for key, evicting it if expired.
// s.mu must be held.
func (s *Store) lookupLocked(key string, nowMillis int64) (*Entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if e.expiredAt(nowMillis) {
		delete(s.entries, key)
		s.expired.Add(1)
		return nil, false
	}
	return e, true
}
