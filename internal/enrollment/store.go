// store.go - JSON-backed persistence for enrollment state.
//
// The Store is an explicitly constructed, injected handle with an explicit
// lifecycle: opened once at process start, closed at shutdown. No package
// keeps ambient global state; the Service receives its Store at construction.

package enrollment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FinalizedList is the immutable-once-written snapshot of a sealed predicate:
// the published root and the exact ordered leaf list behind it. Re-publishing
// the same predicate overwrites it (single current snapshot, not a history).
type FinalizedList struct {
	PredicateID int       `json:"predicateId"`
	Root        string    `json:"root"`
	Commitments []string  `json:"commitments"`
	FinalizedAt time.Time `json:"finalizedAt"`
}

// dbState is the on-disk shape: one document holding registration states,
// enrollment lists in insertion order, and finalized snapshots, all keyed by
// predicate.
type dbState struct {
	Registration map[int]State          `json:"registrationState"`
	Enrollments  map[int][]string       `json:"enrollments"`
	Finalized    map[int]*FinalizedList `json:"finalized"`
}

func newDBState() *dbState {
	return &dbState{
		Registration: make(map[int]State),
		Enrollments:  make(map[int][]string),
		Finalized:    make(map[int]*FinalizedList),
	}
}

// Store persists enrollment state as a single JSON document.
type Store struct {
	path   string
	closed bool
}

// OpenStore opens (or creates) the store at path.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return &Store{path: path}, nil
}

// Close marks the store handle closed. Writes after Close are programming
// errors and fail loudly.
func (s *Store) Close() error {
	s.closed = true
	return nil
}

// Ping reports whether the store is usable.
func (s *Store) Ping() error {
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if _, err := os.Stat(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store file is unreachable: %w", err)
	}
	return nil
}

// load reads the current state, returning an empty state if the file does
// not exist yet.
func (s *Store) load() (*dbState, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return newDBState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer f.Close()
	state := newDBState()
	if err := json.NewDecoder(f).Decode(state); err != nil {
		return nil, fmt.Errorf("failed to decode store: %w", err)
	}
	if state.Registration == nil {
		state.Registration = make(map[int]State)
	}
	if state.Enrollments == nil {
		state.Enrollments = make(map[int][]string)
	}
	if state.Finalized == nil {
		state.Finalized = make(map[int]*FinalizedList)
	}
	return state, nil
}

// save overwrites the store with the given state.
func (s *Store) save(state *dbState) error {
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create store file: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	return nil
}
