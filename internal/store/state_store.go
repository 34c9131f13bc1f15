package store

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"merklesig/internal/domain"
)

const (
	stateFilename = "state.json"
	stateLockname = "state.lock"
)

// StateFileStore records the next leaf index of every key in a single JSON
// file. Every read-modify-write holds an exclusive lock on a sibling lock
// file, so separate processes sharing a home never lose each other's
// updates.
type StateFileStore struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// NewStateFileStore returns a StateFileStore rooted at home.
func NewStateFileStore(home string) *StateFileStore {
	return &StateFileStore{
		path: filepath.Join(home, stateFilename),
		lock: flock.New(filepath.Join(home, stateLockname)),
	}
}

// LoadNextIndex returns the recorded index for name, or 0 if none.
func (s *StateFileStore) LoadNextIndex(name domain.KeyName) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[domain.KeyName]uint64{}
	if err := readJSON(s.path, &m); err != nil {
		return 0, err
	}
	return m[name], nil
}

// SaveNextIndex records next for name. Lowering the index is refused; saving
// the current value is a no-op.
func (s *StateFileStore) SaveNextIndex(name domain.KeyName, next uint64) error {
	return s.update(name, func(cur uint64, _ bool) (uint64, error) {
		if next < cur {
			return 0, fmt.Errorf("%w: %s at %d, asked for %d", domain.ErrIndexRegression, name, cur, next)
		}
		return next, nil
	})
}

// ReserveNextIndex advances name from expected to expected+1, or fails with
// domain.ErrIndexConflict if the recorded index is no longer expected.
func (s *StateFileStore) ReserveNextIndex(name domain.KeyName, expected uint64) error {
	return s.update(name, func(cur uint64, _ bool) (uint64, error) {
		if cur != expected {
			return 0, fmt.Errorf("%w: %s at %d, expected %d", domain.ErrIndexConflict, name, cur, expected)
		}
		return expected + 1, nil
	})
}

// update applies fn to the recorded index of name under both the in-process
// mutex and the file lock, and writes the result back if it changed.
func (s *StateFileStore) update(name domain.KeyName, fn func(cur uint64, ok bool) (uint64, error)) error {
	if err := validName("key", name.String()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureDir(filepath.Dir(s.path)); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", s.lock.Path(), err)
	}
	defer func() { _ = s.lock.Unlock() }()

	m := map[domain.KeyName]uint64{}
	if err := readJSON(s.path, &m); err != nil {
		return err
	}
	cur, ok := m[name]
	next, err := fn(cur, ok)
	if err != nil {
		return err
	}
	if ok && next == cur {
		return nil
	}
	m[name] = next
	return writeJSON(s.path, m, 0o600)
}

// Compile-time assertion that StateFileStore implements domain.StateStore.
var _ domain.StateStore = (*StateFileStore)(nil)
