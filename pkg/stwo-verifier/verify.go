package stwoverifier

import "github.com/vybium/stwo-verifier/internal/stwo-verifier/protocols"

// Verify runs the verification pipeline on the given input. It returns
// (true, nil) for an accepting proof and (false, *VerifyError) otherwise.
func Verify(input *VerifierInput) (bool, error) {
	if input == nil || input.Proof == nil || input.Params == nil {
		return false, &VerifyError{Code: ErrShape}
	}
	err := protocols.Verify(
		input.Proof,
		input.Params,
		input.TreeRoots,
		input.TreeColumnLogSizes,
		input.Digest,
		input.NDraws,
	)
	if err != nil {
		return false, &VerifyError{Code: codeFor(err), Cause: err}
	}
	return true, nil
}
