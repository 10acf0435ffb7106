// Package stwoverifier provides a verifier for STWO (Circle-STARK) proofs.
//
// Given a parsed proof, the verification parameters describing the trace
// layout, the committed tree roots, and the initial transcript state, the
// verifier deterministically accepts or rejects:
//
//	input := &stwoverifier.VerifierInput{
//		Proof:              proof,
//		Params:             params,
//		TreeRoots:          roots,
//		TreeColumnLogSizes: logSizes,
//		Digest:             digest,
//		NDraws:             0,
//	}
//	ok, err := stwoverifier.Verify(input)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if ok {
//		fmt.Println("Proof is valid!")
//	}
//
// The pipeline covers the M31/CM31/QM31 field tower, the circle group and
// its evaluation domains, the Keccak Fiat-Shamir channel with proof of
// work, multi-column Merkle decommitment verification, the FRI protocol
// with DEEP quotient answers, and the out-of-domain sampling consistency
// check of the composition polynomial.
//
// Serialized proofs are decoded with ParseProof. All verification state is
// owned by a single Verify call; nothing persists across calls.
package stwoverifier
