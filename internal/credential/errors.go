// errors.go - Error taxonomy for the cryptographic core.
package credential

import "errors"

var (
	// ErrInvalidInput reports a value that is not a canonical element of the
	// working field (unparsable, negative, or >= the field modulus).
	ErrInvalidInput = errors.New("credential: input is not a field element")

	// ErrCapacityExceeded reports a leaf list longer than 2^height.
	ErrCapacityExceeded = errors.New("credential: tree capacity exceeded")

	// ErrIndexOutOfRange reports a leaf index outside [0, 2^height).
	ErrIndexOutOfRange = errors.New("credential: leaf index out of range")

	// ErrInvalidProof reports a membership proof that failed to deserialize
	// or to verify. Surfaced verbatim: verification failures are treated as
	// potential attack signals, not generic errors.
	ErrInvalidProof = errors.New("credential: invalid membership proof")
)
