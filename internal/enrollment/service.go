// service.go - Enrollment ledger, registration state machine, and finalization.
//
// The Service is the off-chain authority for one institution: it gates
// commitment submissions on per-predicate registration state, keeps the
// append-only deduplicated enrollment lists, and seals predicates into
// finalized {root, commitments} snapshots. All operations on shared state run
// under one mutex, so a submission either lands fully before a publish
// snapshot or fully after it, and two submissions of the same commitment
// cannot both pass the duplicate check.
//
// The ledger never records which account submitted which commitment.

package enrollment

import (
	"fmt"
	"sync"
	"time"

	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"anoncred/internal/credential"
)

// State is the per-predicate registration state.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// ParseState validates a caller-supplied state string.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateOpen, StateClosed:
		return State(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
}

// ProofBundle is the public material a student needs to derive an inclusion
// path locally: the ordered commitment list and, once sealed, the published
// root. Finalized is false when the list is still live and the derived root
// will not match anything on-chain.
type ProofBundle struct {
	Commitments []string `json:"commitments"`
	Root        string   `json:"root,omitempty"`
	Finalized   bool     `json:"finalized"`
}

// PathResult is a server-derived inclusion path for one commitment.
type PathResult struct {
	Root       string   `json:"root"`
	Siblings   []string `json:"siblings"`
	Directions []int    `json:"directions"`
	Finalized  bool     `json:"finalized"`
}

// Service owns the enrollment state for all predicates.
type Service struct {
	mu    sync.Mutex
	store *Store
	state *dbState
}

// NewService builds a Service on top of an opened store, loading any
// persisted state.
func NewService(store *Store) (*Service, error) {
	state, err := store.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollment state: %w", err)
	}
	return &Service{store: store, state: state}, nil
}

// persist writes the in-memory state through the store. Callers hold s.mu.
func (s *Service) persist() error {
	return s.store.save(s.state)
}

// Ping reports whether the backing store is usable.
func (s *Service) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Ping()
}

// RegistrationState returns the state for a predicate, defaulting to closed.
func (s *Service) RegistrationState(predicateID int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registrationStateLocked(predicateID)
}

func (s *Service) registrationStateLocked(predicateID int) State {
	if st, ok := s.state.Registration[predicateID]; ok {
		return st
	}
	return StateClosed
}

// SetRegistrationState opens or closes registration for a predicate.
// Administrator-only at the transport layer; idempotent here (re-opening an
// open predicate is a no-op success).
func (s *Service) SetRegistrationState(predicateID int, st State) error {
	if _, err := ParseState(string(st)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registrationStateLocked(predicateID) == st {
		return nil
	}
	s.state.Registration[predicateID] = st
	return s.persist()
}

// OpenRegistration opens registration for a predicate.
func (s *Service) OpenRegistration(predicateID int) error {
	return s.SetRegistrationState(predicateID, StateOpen)
}

// CloseRegistration closes registration for a predicate.
func (s *Service) CloseRegistration(predicateID int) error {
	return s.SetRegistrationState(predicateID, StateClosed)
}

// Submit records a commitment under a predicate. Fails with
// ErrRegistrationClosed while the predicate is closed and with
// ErrDuplicateCommitment if the same (predicate, commitment) pair is already
// recorded; the duplicate check is the sole defense against a student
// enrolling twice with the same secret. The check and the append happen under
// one critical section and are persisted before it ends.
func (s *Service) Submit(predicateID int, commitment string) error {
	cm, err := credential.ParseElement(commitment)
	if err != nil {
		return err
	}
	canonical := cm.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registrationStateLocked(predicateID) != StateOpen {
		return fmt.Errorf("%w (predicate %d)", ErrRegistrationClosed, predicateID)
	}
	list := s.state.Enrollments[predicateID]
	for _, existing := range list {
		if existing == canonical {
			return fmt.Errorf("%w (predicate %d)", ErrDuplicateCommitment, predicateID)
		}
	}
	if len(list) >= 1<<credential.TreeHeight {
		return fmt.Errorf("%w: predicate %d is full", credential.ErrCapacityExceeded, predicateID)
	}
	s.state.Enrollments[predicateID] = append(list, canonical)
	return s.persist()
}

// ListByPredicate returns the current enrollment list in insertion order.
func (s *Service) ListByPredicate(predicateID int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.state.Enrollments[predicateID]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// Publish seals a predicate: builds the fixed-height tree over the current
// enrollment list and upserts the finalized snapshot. The caller is
// responsible for recording the returned root on the external ledger; because
// tree construction is deterministic over the same ordered list, retrying a
// failed upsert with the already-computed root is idempotent.
func (s *Service) Publish(predicateID int) (*FinalizedList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registrationStateLocked(predicateID) == StateOpen {
		return nil, fmt.Errorf("%w (predicate %d)", ErrRegistrationStillOpen, predicateID)
	}
	list := s.state.Enrollments[predicateID]
	if len(list) == 0 {
		return nil, fmt.Errorf("%w (predicate %d)", ErrNothingToPublish, predicateID)
	}

	root, err := rootOf(list)
	if err != nil {
		return nil, err
	}
	snapshot := &FinalizedList{
		PredicateID: predicateID,
		Root:        root,
		Commitments: append([]string(nil), list...),
		FinalizedAt: time.Now().UTC(),
	}
	s.state.Finalized[predicateID] = snapshot
	if err := s.persist(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Finalized returns the current finalized snapshot for a predicate, or nil.
func (s *Service) Finalized(predicateID int) *FinalizedList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Finalized[predicateID]
}

// Bundle returns the public proof material for a predicate: the finalized
// snapshot if one exists, else the live list marked finalized=false.
func (s *Service) Bundle(predicateID int) *ProofBundle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fin, ok := s.state.Finalized[predicateID]; ok {
		return &ProofBundle{
			Commitments: append([]string(nil), fin.Commitments...),
			Root:        fin.Root,
			Finalized:   true,
		}
	}
	live := s.state.Enrollments[predicateID]
	return &ProofBundle{
		Commitments: append([]string(nil), live...),
		Finalized:   false,
	}
}

// ProofPath derives the inclusion path for a commitment, preferring the
// finalized snapshot and falling back to the live list. Fails with
// ErrNotEnrolled if the commitment is absent.
//
// Note: serving paths means the server learns which commitment the requester
// holds at request time (not persisted). The wallet package derives paths
// client-side from Bundle instead; this endpoint mirrors the reference
// system's behavior for callers that accept the trade-off.
func (s *Service) ProofPath(predicateID int, commitment string) (*PathResult, error) {
	cm, err := credential.ParseElement(commitment)
	if err != nil {
		return nil, err
	}
	bundle := s.Bundle(predicateID)

	index := -1
	canonical := cm.String()
	for i, c := range bundle.Commitments {
		if c == canonical {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("%w (predicate %d)", ErrNotEnrolled, predicateID)
	}

	leaves, err := parseAll(bundle.Commitments)
	if err != nil {
		return nil, err
	}
	tree, err := credential.BuildTree(leaves, credential.TreeHeight)
	if err != nil {
		return nil, err
	}
	path, err := tree.ProofPath(index)
	if err != nil {
		return nil, err
	}

	root := tree.Root()
	result := &PathResult{
		Root:       root.String(),
		Siblings:   make([]string, len(path.Siblings)),
		Directions: append([]int(nil), path.Directions...),
		Finalized:  bundle.Finalized,
	}
	for i := range path.Siblings {
		result.Siblings[i] = path.Siblings[i].String()
	}
	return result, nil
}

// rootOf builds the padded tree over the list and returns the root string.
func rootOf(commitments []string) (string, error) {
	leaves, err := parseAll(commitments)
	if err != nil {
		return "", err
	}
	tree, err := credential.BuildTree(leaves, credential.TreeHeight)
	if err != nil {
		return "", err
	}
	root := tree.Root()
	return root.String(), nil
}

func parseAll(commitments []string) ([]fr.Element, error) {
	leaves := make([]fr.Element, len(commitments))
	for i, c := range commitments {
		e, err := credential.ParseElement(c)
		if err != nil {
			return nil, fmt.Errorf("stored commitment %d is corrupt: %w", i, err)
		}
		leaves[i] = e
	}
	return leaves, nil
}
