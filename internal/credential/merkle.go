// merkle.go - Fixed-height Merkle accumulator over enrolled commitments.
//
// The tree is an ephemeral structure: it is recomputed on demand from an
// ordered commitment list plus canonical zero padding, and never persisted.
// Because the padding and the hash are fixed, two computations over the same
// ordered input always yield the same root.

package credential

import (
	"fmt"

	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// TreeHeight is the deployment tree height: 2^12 = 4096 leaves per predicate.
// It is a wire-format contract with the compiled membership circuit and must
// never change without recompiling the circuit.
const TreeHeight = 12

// ProofPath is the inclusion path for one leaf: one sibling and one direction
// bit per level, leaf to root. Direction bit 1 means the current node is the
// right child at that level (the sibling is the left hash input); 0 means it
// is the left child. The convention is fixed: the circuit reconstructs the
// root from these exact bits, and inverting them produces roots that fail
// verification with no other symptom.
type ProofPath struct {
	Siblings   []fr.Element
	Directions []int
}

// Tree is a fully materialized fixed-height binary hash tree.
// levels[0] holds the padded leaves; levels[height] holds the root.
type Tree struct {
	height int
	levels [][]fr.Element
}

// BuildTree builds the tree over the ordered commitments, padding on the
// right with the canonical zero leaf up to 2^height. Leaves are used as-is:
// commitments are already Poseidon2 digests and are not re-hashed. Sibling
// pairs are never sorted before hashing.
func BuildTree(commitments []fr.Element, height int) (*Tree, error) {
	capacity := 1 << height
	if len(commitments) > capacity {
		return nil, fmt.Errorf("%w: %d leaves, capacity %d", ErrCapacityExceeded, len(commitments), capacity)
	}
	levels := make([][]fr.Element, height+1)
	leaves := make([]fr.Element, capacity)
	copy(leaves, commitments) // remaining entries are the zero leaf
	levels[0] = leaves
	for l := 1; l <= height; l++ {
		below := levels[l-1]
		level := make([]fr.Element, len(below)/2)
		for i := range level {
			level[i] = HashPair(below[2*i], below[2*i+1])
		}
		levels[l] = level
	}
	return &Tree{height: height, levels: levels}, nil
}

// Height returns the fixed height the tree was built with.
func (t *Tree) Height() int {
	return t.height
}

// Root returns the top node.
func (t *Tree) Root() fr.Element {
	return t.levels[t.height][0]
}

// Leaf returns the (padded) leaf at the given index.
func (t *Tree) Leaf(index int) (fr.Element, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return fr.Element{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return t.levels[0][index], nil
}

// ProofPath derives the inclusion path for the leaf at the given index.
func (t *Tree) ProofPath(leafIndex int) (*ProofPath, error) {
	if leafIndex < 0 || leafIndex >= len(t.levels[0]) {
		return nil, fmt.Errorf("%w: %d (height %d)", ErrIndexOutOfRange, leafIndex, t.height)
	}
	path := &ProofPath{
		Siblings:   make([]fr.Element, t.height),
		Directions: make([]int, t.height),
	}
	idx := leafIndex
	for l := 0; l < t.height; l++ {
		path.Siblings[l] = t.levels[l][idx^1]
		path.Directions[l] = idx & 1
		idx >>= 1
	}
	return path, nil
}

// VerifyPath reconstructs the root from a leaf and its path and compares it
// against the expected root. This is the native analogue of the circuit walk;
// clients use it to sanity-check a path before spending prover time on it.
func VerifyPath(leaf fr.Element, path *ProofPath, root fr.Element) bool {
	if path == nil || len(path.Siblings) != len(path.Directions) {
		return false
	}
	current := leaf
	for l := range path.Siblings {
		if path.Directions[l] == 1 {
			current = HashPair(path.Siblings[l], current)
		} else {
			current = HashPair(current, path.Siblings[l])
		}
	}
	return current.Equal(&root)
}
