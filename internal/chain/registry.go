// registry.go - Per-predicate Merkle root registry.
//
// Stands in for the on-chain identity registry: one current root per
// predicate, settable only by the administrator principal. The core consumes
// the state transition (root published); event notification belongs to the UI
// layer and is exposed only as an optional callback.

package chain

import (
	"fmt"
	"sync"
)

// RootUpdate describes one root replacement, for observers.
type RootUpdate struct {
	PredicateID int
	OldRoot     string
	NewRoot     string
}

// Registry holds the published root per predicate.
type Registry struct {
	mu       sync.RWMutex
	admin    string
	roots    map[int]string
	onUpdate func(RootUpdate)
}

// NewRegistry creates a registry administered by the given principal.
func NewRegistry(admin string) *Registry {
	return &Registry{
		admin: admin,
		roots: make(map[int]string),
	}
}

// OnRootUpdate registers a single observer for root replacements.
func (r *Registry) OnRootUpdate(fn func(RootUpdate)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUpdate = fn
}

// UpdateRoot replaces the stored root for a predicate. Administrator-only.
func (r *Registry) UpdateRoot(caller string, predicateID int, root string) error {
	r.mu.Lock()
	if caller != r.admin {
		r.mu.Unlock()
		return fmt.Errorf("%w (caller %q)", ErrNotAdmin, caller)
	}
	old := r.roots[predicateID]
	r.roots[predicateID] = root
	fn := r.onUpdate
	r.mu.Unlock()

	if fn != nil {
		fn(RootUpdate{PredicateID: predicateID, OldRoot: old, NewRoot: root})
	}
	return nil
}

// Root returns the stored root for a predicate.
func (r *Registry) Root(predicateID int) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	root, ok := r.roots[predicateID]
	if !ok {
		return "", fmt.Errorf("%w %d", ErrNoRoot, predicateID)
	}
	return root, nil
}

// IsPredicateActive reports whether a root has been published for a predicate.
func (r *Registry) IsPredicateActive(predicateID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roots[predicateID]
	return ok
}
