// errors.go - State-conflict and lookup errors for the enrollment ledger.
//
// These are surfaced verbatim to callers and never coerced to generic
// failures; the HTTP layer maps them to status codes without rewording.
package enrollment

import "errors"

var (
	// ErrRegistrationClosed rejects a submission while the predicate is closed.
	ErrRegistrationClosed = errors.New("enrollment: registration is closed for this predicate")

	// ErrRegistrationStillOpen rejects publication while submissions are still
	// accepted; sealing an open list would let the published root and the
	// stored leaf list diverge.
	ErrRegistrationStillOpen = errors.New("enrollment: registration is still open")

	// ErrDuplicateCommitment rejects a commitment already enrolled under the
	// same predicate.
	ErrDuplicateCommitment = errors.New("enrollment: commitment already enrolled")

	// ErrNothingToPublish rejects publication of an empty enrollment list.
	ErrNothingToPublish = errors.New("enrollment: no commitments to publish")

	// ErrNotEnrolled reports a proof-path request for an absent commitment.
	ErrNotEnrolled = errors.New("enrollment: commitment not enrolled")

	// ErrInvalidState rejects a registration state that is neither open nor closed.
	ErrInvalidState = errors.New("enrollment: invalid registration state")
)
