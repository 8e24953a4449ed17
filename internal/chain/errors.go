// errors.go - Error taxonomy for the issuance ledger simulation.
package chain

import "errors"

var (
	// ErrNotAdmin rejects root updates from a non-administrator principal.
	ErrNotAdmin = errors.New("chain: only the administrator may update roots")

	// ErrNotMinter rejects mints from any caller other than the configured
	// credential contract.
	ErrNotMinter = errors.New("chain: caller is not the minter")

	// ErrNoRoot reports a claim against a predicate with no published root.
	ErrNoRoot = errors.New("chain: no root published for predicate")

	// ErrRootMismatch reports a proof whose embedded root does not equal the
	// currently stored root. Surfaced verbatim as a potential attack signal.
	ErrRootMismatch = errors.New("chain: proof root does not match stored root")

	// ErrNullifierAlreadyUsed rejects a second claim with a nullifier that
	// has already minted a credential.
	ErrNullifierAlreadyUsed = errors.New("chain: nullifier already used")

	// ErrSoulbound rejects any transfer of an issued credential token.
	// Non-transferability is a permanent post-condition of issuance.
	ErrSoulbound = errors.New("chain: soulbound token transfer not allowed")

	// ErrUnknownToken reports a lookup for a token that was never minted.
	ErrUnknownToken = errors.New("chain: unknown token")
)
