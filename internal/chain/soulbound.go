// soulbound.go - Non-transferable credential token ledger.
//
// Mirrors the soulbound token contract: one token minted per consumed
// nullifier, transfers permanently rejected. The nullifier check-and-set is
// atomic with the mint so two racing claims with the same nullifier cannot
// both pass the "not yet used" check.

package chain

import (
	"fmt"
	"sync"
)

// Token is one issued, non-transferable credential.
type Token struct {
	ID          int    `json:"id"`
	Owner       string `json:"owner"`
	PredicateID int    `json:"predicateId"`
	Nullifier   string `json:"nullifier"`
}

// SoulboundToken is the token ledger.
type SoulboundToken struct {
	mu        sync.Mutex
	minter    string
	tokens    []Token
	consumed  map[string]bool // nullifier -> used
	ownerOf   map[int]string
	predicate map[int]int
}

// NewSoulboundToken creates an empty token ledger with the given minter
// principal (the credential contract).
func NewSoulboundToken(minter string) *SoulboundToken {
	return &SoulboundToken{
		minter:    minter,
		consumed:  make(map[string]bool),
		ownerOf:   make(map[int]string),
		predicate: make(map[int]int),
	}
}

// SetMinter replaces the minter principal.
func (t *SoulboundToken) SetMinter(minter string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.minter = minter
}

// Mint issues one token bound to a predicate, consuming the nullifier.
// Fails with ErrNullifierAlreadyUsed on reuse; the check, the record, and the
// mint are one critical section.
func (t *SoulboundToken) Mint(caller, to string, predicateID int, nullifier string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if caller != t.minter {
		return 0, fmt.Errorf("%w (caller %q)", ErrNotMinter, caller)
	}
	if t.consumed[nullifier] {
		return 0, fmt.Errorf("%w (predicate %d)", ErrNullifierAlreadyUsed, predicateID)
	}
	id := len(t.tokens)
	t.consumed[nullifier] = true
	t.tokens = append(t.tokens, Token{ID: id, Owner: to, PredicateID: predicateID, Nullifier: nullifier})
	t.ownerOf[id] = to
	t.predicate[id] = predicateID
	return id, nil
}

// TransferFrom always fails: issued credentials are bound to their owner.
func (t *SoulboundToken) TransferFrom(from, to string, tokenID int) error {
	return ErrSoulbound
}

// OwnerOf returns the owner of a token.
func (t *SoulboundToken) OwnerOf(tokenID int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	owner, ok := t.ownerOf[tokenID]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownToken, tokenID)
	}
	return owner, nil
}

// TokenPredicate returns the predicate a token was issued for.
func (t *SoulboundToken) TokenPredicate(tokenID int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pred, ok := t.predicate[tokenID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownToken, tokenID)
	}
	return pred, nil
}

// NullifierUsed reports whether a nullifier has been consumed.
func (t *SoulboundToken) NullifierUsed(nullifier string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consumed[nullifier]
}
