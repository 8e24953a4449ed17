// crypto.go - Finite-field hash engine and element utilities.
//
// Wraps the Poseidon2 permutation over the BN254 scalar field. Every
// commitment, tree node, and nullifier in the protocol is an element of this
// field, and both the native hasher here and the in-circuit hasher in
// circuit.go are instances of the same Merkle-Damgard construction, so the two
// sides agree bit-for-bit on every digest.

package credential

import (
	"fmt"
	"math/big"
	"strings"

	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	poseidon2 "github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

// hashElements absorbs field elements in order and returns the digest.
// Canonical big-endian encoding keeps every written block a valid element.
func hashElements(elems ...fr.Element) fr.Element {
	h := poseidon2.NewMerkleDamgardHasher()
	for i := range elems {
		b := elems[i].Bytes()
		h.Write(b[:])
	}
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

// HashOne hashes a single field element.
func HashOne(x fr.Element) fr.Element {
	return hashElements(x)
}

// HashPair hashes an ordered (left, right) pair. The order is semantically
// meaningful and is never normalized; see BuildTree.
func HashPair(left, right fr.Element) fr.Element {
	return hashElements(left, right)
}

// Nullifier derives the claim nullifier for a secret under a predicate.
// This is the native mirror of the derivation enforced by MembershipCircuit.
func Nullifier(secret fr.Element, predicateID int) fr.Element {
	var pred fr.Element
	pred.SetUint64(uint64(predicateID))
	return hashElements(secret, pred)
}

// RandomSecret generates a fresh private secret, uniform in the field.
// Secrets are generated client-side and never transmitted.
func RandomSecret() (fr.Element, error) {
	var s fr.Element
	if _, err := s.SetRandom(); err != nil {
		return fr.Element{}, fmt.Errorf("secret generation failed: %w", err)
	}
	return s, nil
}

// ParseElement parses a decimal or 0x-prefixed hex string into a canonical
// field element. Values outside [0, modulus) fail with ErrInvalidInput rather
// than being reduced: a silently reduced commitment would verify against a
// different leaf than the client computed.
func ParseElement(s string) (fr.Element, error) {
	var e fr.Element
	s = strings.TrimSpace(s)
	if s == "" {
		return e, fmt.Errorf("%w: empty string", ErrInvalidInput)
	}
	v := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = v.SetString(s[2:], 16)
	} else {
		_, ok = v.SetString(s, 10)
	}
	if !ok {
		return e, fmt.Errorf("%w: %q", ErrInvalidInput, s)
	}
	if v.Sign() < 0 || v.Cmp(fr.Modulus()) >= 0 {
		return e, fmt.Errorf("%w: %q outside field range", ErrInvalidInput, s)
	}
	e.SetBigInt(v)
	return e, nil
}

// ZeroLeaf returns the canonical padding leaf, the field element 0.
// It must match the circuit's expected padding value bit-for-bit.
func ZeroLeaf() fr.Element {
	var z fr.Element
	return z
}
