// Package protocols implements the STWO verification pipeline: the proof
// model, Merkle decommitment verification, the polynomial commitment
// registry, the FRI verifier, and the out-of-domain sampling check.
package protocols

import "errors"

// Terminal verification failures. The orchestrator surfaces the first one
// hit and discards all state.
var (
	// ErrShape flags a structural mismatch: tree counts, column counts,
	// or log sizes out of range.
	ErrShape = errors.New("proof shape mismatch")

	// ErrOodsMismatch flags a composition polynomial evaluation that
	// differs from the proof's out-of-domain sample.
	ErrOodsMismatch = errors.New("oods: composition polynomial mismatch")

	// ErrPowFailed flags an insufficient proof-of-work nonce.
	ErrPowFailed = errors.New("proof of work verification failed")

	// ErrMerkleShape flags a Merkle witness of unexpected length.
	ErrMerkleShape = errors.New("merkle: witness shape mismatch")

	// ErrMerkleMismatch flags a reconstructed root differing from the
	// commitment.
	ErrMerkleMismatch = errors.New("merkle: root mismatch")

	// ErrMerkleOOB flags a query index out of range for its log size.
	ErrMerkleOOB = errors.New("merkle: query index out of bounds")

	// ErrFriCommitmentMismatch flags a FRI layer decommitment failing
	// against its root.
	ErrFriCommitmentMismatch = errors.New("fri: layer commitment mismatch")

	// ErrFriLastLayerMismatch flags a last layer polynomial that exceeds
	// its degree bound or disagrees with the folded evaluations.
	ErrFriLastLayerMismatch = errors.New("fri: last layer mismatch")

	// ErrFriInvalidProofShape flags a FRI proof with the wrong number of
	// layers or a malformed witness.
	ErrFriInvalidProofShape = errors.New("fri: invalid proof shape")

	// ErrFriInsufficientDegree flags column bounds that cannot fold down
	// to the configured last layer degree bound.
	ErrFriInsufficientDegree = errors.New("fri: insufficient degree")
)
