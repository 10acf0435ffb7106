package stwoverifier

import (
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/protocols"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/utils"
)

// M31 is an element of the Mersenne prime field of order 2^31 - 1.
type M31 = core.M31

// CM31 is an element of the quadratic extension of M31.
type CM31 = core.CM31

// QM31 is an element of the degree-4 extension of M31 (the secure field).
type QM31 = core.QM31

// Hash is a Keccak-256 digest.
type Hash = core.Hash

// Proof is a parsed STWO proof.
type Proof = protocols.Proof

// FriProof carries the FRI layer commitments and witnesses.
type FriProof = protocols.FriProof

// MerkleDecommitment is a multi-column Merkle opening witness.
type MerkleDecommitment = protocols.MerkleDecommitment

// CompositionPoly is the composition polynomial in coordinate form.
type CompositionPoly = protocols.CompositionPoly

// VerificationParams describes the committed trace layout.
type VerificationParams = protocols.VerificationParams

// ComponentParams holds the public inputs of one AIR component.
type ComponentParams = protocols.ComponentParams

// ComponentInfo describes a component's trace shape.
type ComponentInfo = protocols.ComponentInfo

// FriConfig holds the FRI protocol parameters.
type FriConfig = utils.FriConfig

// PcsConfig holds the commitment scheme parameters.
type PcsConfig = utils.PcsConfig

// VerifierInput bundles everything one verification run consumes.
type VerifierInput struct {
	Proof              *Proof
	Params             *VerificationParams
	TreeRoots          []Hash
	TreeColumnLogSizes [][]uint32
	Digest             Hash
	NDraws             uint32
}

// DefaultConfig returns utils.DefaultConfig: 5 PoW bits, log blowup 1,
// log last layer degree bound 0 and 16 queries.
func DefaultConfig() PcsConfig {
	return utils.DefaultConfig()
}

// ParseProof decodes a serialized proof from its wire format.
func ParseProof(data []byte) (*Proof, error) {
	proof, err := protocols.ParseProof(data)
	if err != nil {
		return nil, &VerifyError{Code: codeFor(err), Cause: err}
	}
	return proof, nil
}

// EncodeProof serializes a proof into its wire format.
func EncodeProof(proof *Proof) []byte {
	return protocols.EncodeProof(proof)
}
