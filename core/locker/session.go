package locker

import (
	"sync"
	"time"
)

// SessionStore tracks the ephemeral per-session unlock flag.
// Entries are never persisted; a flag cannot outlive its session.
type SessionStore interface {
	Unlock(sid string, exp time.Time)
	IsUnlocked(sid string) bool
	// Lock clears the unlock flag but keeps the session entry.
	Lock(sid string)
	// Flush drops the session entry entirely.
	Flush(sid string)
}

type sessionEntry struct {
	unlocked bool
	exp      time.Time
}

type memSessionStore struct {
	mu      sync.RWMutex
	entries map[string]sessionEntry
}

var _ SessionStore = (*memSessionStore)(nil)

func NewMemSessionStore() *memSessionStore {
	return &memSessionStore{entries: make(map[string]sessionEntry)}
}

func (s *memSessionStore) Unlock(sid string, exp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[sid] = sessionEntry{unlocked: true, exp: exp}
}

func (s *memSessionStore) IsUnlocked(sid string) bool {
	s.mu.RLock()
	entry, ok := s.entries[sid]
	s.mu.RUnlock()
	if !ok || !entry.unlocked {
		return false
	}
	if time.Now().After(entry.exp) {
		s.Flush(sid)
		return false
	}
	return true
}

func (s *memSessionStore) Lock(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[sid]; ok {
		entry.unlocked = false
		s.entries[sid] = entry
	}
}

func (s *memSessionStore) Flush(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sid)
}

// sweep drops expired entries; callers must hold the write lock.
func (s *memSessionStore) sweep() {
	now := time.Now()
	for sid, entry := range s.entries {
		if now.After(entry.exp) {
			delete(s.entries, sid)
		}
	}
}
