package stwoverifier

import (
	"errors"
	"fmt"

	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/protocols"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/utils"
)

// ErrorCode identifies the first verification step that failed.
type ErrorCode int

const (
	// ErrUnknown represents an unclassified error
	ErrUnknown ErrorCode = iota

	// ErrShape represents a structural mismatch in the proof or parameters
	ErrShape

	// ErrZeroInverse represents an inversion of zero
	ErrZeroInverse

	// ErrChannelExhausted represents exhausted rejection-sampling retries
	ErrChannelExhausted

	// ErrOodsMismatch represents a failed out-of-domain sampling check
	ErrOodsMismatch

	// ErrPowFailed represents an insufficient proof-of-work nonce
	ErrPowFailed

	// ErrMerkleShape represents a malformed Merkle witness
	ErrMerkleShape

	// ErrMerkleMismatch represents a Merkle root mismatch
	ErrMerkleMismatch

	// ErrMerkleOOB represents a query index out of range
	ErrMerkleOOB

	// ErrFriCommitmentMismatch represents a failed FRI layer decommitment
	ErrFriCommitmentMismatch

	// ErrFriLastLayerMismatch represents a last layer polynomial failure
	ErrFriLastLayerMismatch

	// ErrFriInvalidProofShape represents a malformed FRI proof
	ErrFriInvalidProofShape

	// ErrFriInsufficientDegree represents bounds that cannot fold down
	ErrFriInsufficientDegree
)

// String returns the spec tag of the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrShape:
		return "ShapeError"
	case ErrZeroInverse:
		return "ZeroInverse"
	case ErrChannelExhausted:
		return "ChannelExhausted"
	case ErrOodsMismatch:
		return "OodsMismatch"
	case ErrPowFailed:
		return "PowFailed"
	case ErrMerkleShape:
		return "MerkleShape"
	case ErrMerkleMismatch:
		return "MerkleMismatch"
	case ErrMerkleOOB:
		return "MerkleOOB"
	case ErrFriCommitmentMismatch:
		return "FriCommitmentMismatch"
	case ErrFriLastLayerMismatch:
		return "FriLastLayerMismatch"
	case ErrFriInvalidProofShape:
		return "FriInvalidProofShape"
	case ErrFriInsufficientDegree:
		return "FriInsufficientDegree"
	default:
		return "Unknown"
	}
}

// VerifyError is the terminal error of a verification run.
type VerifyError struct {
	Code  ErrorCode
	Cause error
}

// Error returns the error message.
func (e *VerifyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stwo-verifier: %s (caused by: %v)", e.Code, e.Cause)
	}
	return fmt.Sprintf("stwo-verifier: %s", e.Code)
}

// Unwrap returns the cause of the error.
func (e *VerifyError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error by code.
func (e *VerifyError) Is(target error) bool {
	t, ok := target.(*VerifyError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// codeFor classifies an internal error into its public code.
func codeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, protocols.ErrMerkleMismatch):
		return ErrMerkleMismatch
	case errors.Is(err, protocols.ErrMerkleShape):
		return ErrMerkleShape
	case errors.Is(err, protocols.ErrMerkleOOB):
		return ErrMerkleOOB
	case errors.Is(err, protocols.ErrFriCommitmentMismatch):
		return ErrFriCommitmentMismatch
	case errors.Is(err, protocols.ErrFriLastLayerMismatch):
		return ErrFriLastLayerMismatch
	case errors.Is(err, protocols.ErrFriInsufficientDegree):
		return ErrFriInsufficientDegree
	case errors.Is(err, protocols.ErrFriInvalidProofShape):
		return ErrFriInvalidProofShape
	case errors.Is(err, protocols.ErrOodsMismatch):
		return ErrOodsMismatch
	case errors.Is(err, protocols.ErrPowFailed):
		return ErrPowFailed
	case errors.Is(err, protocols.ErrShape):
		return ErrShape
	case errors.Is(err, core.ErrZeroInverse):
		return ErrZeroInverse
	case errors.Is(err, utils.ErrChannelExhausted):
		return ErrChannelExhausted
	default:
		return ErrUnknown
	}
}
