package storage

import (
	"fmt"
	"log/slog"
	"sync"
)

// Backend persists the whole state document. Load is called once at
// startup, Save after every mutation.
type Backend interface {
	Load() (State, error)
	Save(State) error
}

// Store keeps the state in memory and mirrors every mutation through its
// backend. A single mutex serializes read-modify-write, so two concurrent
// submissions cannot clobber each other's fields between load and save.
type Store struct {
	mu      sync.Mutex
	state   State
	backend Backend
}

// Open loads the state from the backend. A load failure is logged and the
// store starts empty rather than halting; the prior on-disk state is left
// as-is until the next successful save overwrites it.
func Open(b Backend) *Store {
	st, err := b.Load()
	if err != nil {
		slog.Warn("loading state failed, starting with an empty store", "error", err)
		st = NewState()
	}
	st.normalize()
	return &Store{state: st, backend: b}
}

// Update applies fn to the state under the lock, then saves the whole
// state synchronously. On save failure the in-memory state keeps the
// mutation and stays ahead of disk until the next successful save.
func (s *Store) Update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)

	if err := s.backend.Save(s.state.Clone()); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}

// Snapshot returns a deep copy of the current state for reading.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}
