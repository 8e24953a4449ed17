// credentials.go - Claim verification and credential issuance.
//
// Stands in for the on-chain credential contract: verifies a membership proof
// against the registry's stored root for the predicate and mints one
// soulbound token keyed by the proof's nullifier. From the caller's
// perspective a claim is one atomic transaction.

package chain

import (
	"fmt"
	"sync"

	"github.com/consensys/gnark/backend/groth16"

	"anoncred/internal/credential"
)

// Issued describes one successful claim, for observers.
type Issued struct {
	Student     string
	PredicateID int
	Nullifier   string
	TokenID     int
}

// Credentials verifies claims and drives issuance.
type Credentials struct {
	mu       sync.Mutex
	name     string
	registry *Registry
	sbt      *SoulboundToken
	vk       groth16.VerifyingKey
	onIssue  func(Issued)
}

// NewCredentials wires the claim verifier to its registry, token ledger, and
// verifying key. The returned contract must be set as the token minter.
func NewCredentials(name string, registry *Registry, sbt *SoulboundToken, vk groth16.VerifyingKey) *Credentials {
	return &Credentials{
		name:     name,
		registry: registry,
		sbt:      sbt,
		vk:       vk,
	}
}

// Name returns the principal this contract mints as.
func (c *Credentials) Name() string {
	return c.name
}

// OnIssued registers a single observer for successful claims.
func (c *Credentials) OnIssued(fn func(Issued)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onIssue = fn
}

// Claim verifies a membership proof with public inputs
// {nullifier, root, predicateId} and mints one token to the student.
//
// Order of checks is deliberate: root mismatch and proof failure are distinct
// signals (stale client vs. bogus proof) and must never be folded together.
// The nullifier check happens inside the mint, atomically with issuance.
func (c *Credentials) Claim(student string, predicateID int, proof []byte, nullifier, root string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.registry.Root(predicateID)
	if err != nil {
		return 0, err
	}
	rootElem, err := credential.ParseElement(root)
	if err != nil {
		return 0, err
	}
	nulElem, err := credential.ParseElement(nullifier)
	if err != nil {
		return 0, err
	}
	if rootElem.String() != stored {
		return 0, fmt.Errorf("%w (predicate %d)", ErrRootMismatch, predicateID)
	}

	if err := credential.VerifyMembership(proof, rootElem, nulElem, predicateID, c.vk); err != nil {
		return 0, err
	}

	tokenID, err := c.sbt.Mint(c.name, student, predicateID, nulElem.String())
	if err != nil {
		return 0, err
	}

	if c.onIssue != nil {
		c.onIssue(Issued{Student: student, PredicateID: predicateID, Nullifier: nulElem.String(), TokenID: tokenID})
	}
	return tokenID, nil
}
