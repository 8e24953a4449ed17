// commitment.go - Commitment derivation for enrollment leaves.
//
// A commitment is the Poseidon2 hash of the student's private secret: a public
// field element that acts as the anonymous leaf identifier. The same secret
// always yields the same commitment, across predicates and across independent
// implementations sharing the hash parameters.

package credential

import (
	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Commit derives the public commitment from a private secret.
// Pure and deterministic; the secret itself is never persisted here.
func Commit(secret fr.Element) fr.Element {
	return HashOne(secret)
}

// CommitString parses a secret from its string form and returns the decimal
// string form of its commitment. Fails with ErrInvalidInput on malformed input.
func CommitString(secret string) (string, error) {
	s, err := ParseElement(secret)
	if err != nil {
		return "", err
	}
	cm := Commit(s)
	return cm.String(), nil
}
