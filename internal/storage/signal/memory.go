// Package signal provides an in-memory store of resolved signals for
// observability and export.
package signal

import (
	"sync"

	"github.com/newthinker/aegis/internal/core"
)

const defaultCapacity = 1000

// Store keeps the most recent resolved signals in a bounded buffer.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	signals  []core.ResolvedSignal
	capacity int
}

// NewStore creates a store bounded at capacity entries (<=0 uses the
// default).
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Store{capacity: capacity}
}

// Add appends resolved signals, evicting the oldest beyond capacity.
func (s *Store) Add(signals ...core.ResolvedSignal) {
	if len(signals) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.signals = append(s.signals, signals...)
	if len(s.signals) > s.capacity {
		s.signals = s.signals[len(s.signals)-s.capacity:]
	}
}

// Recent returns up to n most recent signals, newest first. n <= 0
// returns all.
func (s *Store) Recent(n int) []core.ResolvedSignal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.signals) {
		n = len(s.signals)
	}
	out := make([]core.ResolvedSignal, 0, n)
	for i := len(s.signals) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.signals[i])
	}
	return out
}

// Len returns the number of stored signals.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.signals)
}
