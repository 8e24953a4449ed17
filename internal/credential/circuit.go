package credential

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
	"github.com/consensys/gnark/std/permutation/poseidon2"
)

// MembershipCircuit proves that the prover's secret commits to some leaf of
// the accumulator with the public root, and binds the claim to a nullifier.
// Public inputs are exactly {Root, Nullifier, PredicateID}; which leaf is the
// prover's stays hidden inside the path witnesses.
type MembershipCircuit struct {
	// Public inputs (ordering is load-bearing: the verifier rebuilds the
	// public witness in declaration order)
	Root        frontend.Variable `gnark:",public"`
	Nullifier   frontend.Variable `gnark:",public"`
	PredicateID frontend.Variable `gnark:",public"`

	// Private inputs
	Secret     frontend.Variable
	Siblings   [TreeHeight]frontend.Variable
	Directions [TreeHeight]frontend.Variable
}

func (c *MembershipCircuit) Define(api frontend.API) error {
	// Width-2 Poseidon2 with the same round counts as the native hasher, so
	// in-circuit digests match the values computed off-circuit.
	perm, err := poseidon2.NewPoseidon2FromParameters(api, 2, 6, 50)
	if err != nil {
		return err
	}
	hasher := hash.NewMerkleDamgardHasher(api, perm, 0)

	// Leaf = commitment = Poseidon2(secret); leaves are not re-hashed by the
	// tree, so the walk starts directly from the commitment.
	hasher.Write(c.Secret)
	current := hasher.Sum()

	// Walk leaf to root. Direction bit 1 means the current node is the right
	// child, so the sibling supplies the left hash input.
	for l := 0; l < TreeHeight; l++ {
		api.AssertIsBoolean(c.Directions[l])
		left := api.Select(c.Directions[l], c.Siblings[l], current)
		right := api.Select(c.Directions[l], current, c.Siblings[l])
		hasher.Reset()
		hasher.Write(left, right)
		current = hasher.Sum()
	}
	api.AssertIsEqual(c.Root, current)

	// Nullifier = Poseidon2(secret, predicateId): one claim per secret per
	// predicate, without linking the claim to the leaf.
	hasher.Reset()
	hasher.Write(c.Secret, c.PredicateID)
	api.AssertIsEqual(c.Nullifier, hasher.Sum())

	return nil
}
