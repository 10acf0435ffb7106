// Command stwo-verify reads a verification request as JSON from stdin and
// prints the verdict. The proof itself travels in its binary wire format,
// hex encoded.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
	stwoverifier "github.com/vybium/stwo-verifier/pkg/stwo-verifier"
)

type verifyRequest struct {
	Proof              string     `json:"proof"`
	Params             paramsJSON `json:"params"`
	TreeRoots          []string   `json:"tree_roots"`
	TreeColumnLogSizes [][]uint32 `json:"tree_column_log_sizes"`
	Digest             string     `json:"digest"`
	NDraws             uint32     `json:"n_draws"`
}

type paramsJSON struct {
	Components                []componentJSON `json:"components"`
	NPreprocessedColumns      uint32          `json:"n_preprocessed_columns"`
	CompositionLogDegreeBound uint32          `json:"composition_log_degree_bound"`
}

type componentJSON struct {
	LogSize                     uint32      `json:"log_size"`
	ClaimedSum                  [4]uint32   `json:"claimed_sum"`
	MaxConstraintLogDegreeBound uint32      `json:"max_constraint_log_degree_bound"`
	MaskOffsets                 [][][]int32 `json:"mask_offsets"`
	PreprocessedColumns         []uint32    `json:"preprocessed_columns"`
}

func main() {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal(fmt.Sprintf("failed to read stdin: %v", err))
	}

	var req verifyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		fatal(fmt.Sprintf("failed to parse request: %v", err))
	}

	input, err := buildInput(&req)
	if err != nil {
		fatal(err.Error())
	}

	ok, err := stwoverifier.Verify(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rejected: %v\n", err)
		os.Exit(1)
	}
	if ok {
		fmt.Println("accepted")
	}
}

func buildInput(req *verifyRequest) (*stwoverifier.VerifierInput, error) {
	proofBytes, err := hex.DecodeString(req.Proof)
	if err != nil {
		return nil, fmt.Errorf("invalid proof hex: %w", err)
	}
	proof, err := stwoverifier.ParseProof(proofBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid proof: %w", err)
	}

	roots := make([]stwoverifier.Hash, len(req.TreeRoots))
	for i, h := range req.TreeRoots {
		if roots[i], err = parseHash(h); err != nil {
			return nil, fmt.Errorf("tree root %d: %w", i, err)
		}
	}
	digest, err := parseHash(req.Digest)
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}

	components := make([]stwoverifier.ComponentParams, len(req.Params.Components))
	for i, c := range req.Params.Components {
		components[i] = stwoverifier.ComponentParams{
			LogSize: c.LogSize,
			ClaimedSum: core.NewQM31(
				core.NewM31(uint64(c.ClaimedSum[0])),
				core.NewM31(uint64(c.ClaimedSum[1])),
				core.NewM31(uint64(c.ClaimedSum[2])),
				core.NewM31(uint64(c.ClaimedSum[3])),
			),
			Info: stwoverifier.ComponentInfo{
				MaxConstraintLogDegreeBound: c.MaxConstraintLogDegreeBound,
				LogSize:                     c.LogSize,
				MaskOffsets:                 c.MaskOffsets,
				PreprocessedColumns:         c.PreprocessedColumns,
			},
		}
	}

	return &stwoverifier.VerifierInput{
		Proof: proof,
		Params: &stwoverifier.VerificationParams{
			ComponentParams:                     components,
			NPreprocessedColumns:                req.Params.NPreprocessedColumns,
			ComponentsCompositionLogDegreeBound: req.Params.CompositionLogDegreeBound,
		},
		TreeRoots:          roots,
		TreeColumnLogSizes: req.TreeColumnLogSizes,
		Digest:             digest,
		NDraws:             req.NDraws,
	}, nil
}

func parseHash(s string) (stwoverifier.Hash, error) {
	var h stwoverifier.Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hash is %d bytes, want %d", len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

func fatal(msg string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(1)
}
