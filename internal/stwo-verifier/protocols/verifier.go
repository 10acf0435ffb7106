package protocols

import (
	"fmt"

	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/utils"
)

// GetRandomPoint draws the OODS point from the channel: one batch yields
// two secure felts, and the first one parameterizes the circle through
// x = (1 - t^2)/(1 + t^2), y = 2t/(1 + t^2).
func GetRandomPoint(channel *utils.Channel) (core.SecureCirclePoint, error) {
	felts, err := channel.DrawSecureFelts(2)
	if err != nil {
		return core.SecureCirclePoint{}, err
	}
	t := felts[0]
	tSq := t.Square()
	denomInv, err := tSq.Add(core.QM31One()).Inverse()
	if err != nil {
		return core.SecureCirclePoint{}, fmt.Errorf("oods point: %w", err)
	}
	return core.SecureCirclePoint{
		X: core.QM31One().Sub(tSq).Mul(denomInv),
		Y: t.Add(t).Mul(denomInv),
	}, nil
}

// ComputeSamplePoints materializes the mask sample points for every tree
// and column: each component shifts the OODS point by its mask offsets
// along its trace step, preprocessed columns sample the OODS point itself,
// and the composition tree samples it on all four coordinate columns.
//
// Components are laid out independently: each one restarts at column zero
// of every tree, which assumes a single component or components sharing
// one allocation. Shape mismatches against the sampled values are caught
// by the caller.
func ComputeSamplePoints(params *VerificationParams, treeColumnLogSizes [][]uint32, oodsPoint core.SecureCirclePoint) ([][][]core.SecureCirclePoint, error) {
	nTrees := len(treeColumnLogSizes) + 1
	points := make([][][]core.SecureCirclePoint, nTrees)
	for t, cols := range treeColumnLogSizes {
		points[t] = make([][]core.SecureCirclePoint, len(cols))
	}

	for _, comp := range params.ComponentParams {
		step := core.NewCanonicCoset(comp.LogSize).StepIndex()

		for _, colIdx := range comp.Info.PreprocessedColumns {
			if int(colIdx) >= len(points[0]) {
				return nil, fmt.Errorf("%w: preprocessed column %d out of range", ErrShape, colIdx)
			}
			points[0][colIdx] = append(points[0][colIdx], oodsPoint)
		}

		if len(comp.Info.MaskOffsets) >= nTrees {
			return nil, fmt.Errorf("%w: component has %d mask trees for %d commitment trees", ErrShape, len(comp.Info.MaskOffsets), nTrees-1)
		}
		for mt, tree := range comp.Info.MaskOffsets {
			for c, offsets := range tree {
				if c >= len(points[mt]) {
					return nil, fmt.Errorf("%w: mask column %d out of range for tree %d", ErrShape, c, mt)
				}
				for _, offset := range offsets {
					shift := step.MulSigned(offset).ToPoint()
					points[mt][c] = append(points[mt][c], oodsPoint.AddBase(shift))
				}
			}
		}
	}

	composition := make([][]core.SecureCirclePoint, 4)
	for k := range composition {
		composition[k] = []core.SecureCirclePoint{oodsPoint}
	}
	points[nTrees-1] = composition
	return points, nil
}

// Verify runs the full verification pipeline and returns nil only for an
// accepting proof. All state lives on this call's stack; any failure is
// terminal.
func Verify(
	proof *Proof,
	params *VerificationParams,
	treeRoots []core.Hash,
	treeColumnLogSizes [][]uint32,
	initialDigest core.Hash,
	initialNDraws uint32,
) error {
	if err := proof.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrShape, err)
	}
	if len(treeRoots) == 0 || len(treeRoots) != len(treeColumnLogSizes) {
		return fmt.Errorf("%w: %d tree roots for %d column layouts", ErrShape, len(treeRoots), len(treeColumnLogSizes))
	}
	if len(params.ComponentParams) == 0 {
		return fmt.Errorf("%w: no components", ErrShape)
	}
	if len(proof.Commitments) != len(treeRoots)+1 {
		return fmt.Errorf("%w: %d commitments for %d trees plus composition", ErrShape, len(proof.Commitments), len(treeRoots))
	}
	if int(params.NPreprocessedColumns) != len(treeColumnLogSizes[0]) {
		return fmt.Errorf("%w: %d preprocessed columns declared, tree has %d", ErrShape, params.NPreprocessedColumns, len(treeColumnLogSizes[0]))
	}

	channel := utils.NewChannel(initialDigest, initialNDraws)

	pcs := NewCommitmentSchemeVerifier(proof.Config)
	for i, root := range treeRoots {
		if err := pcs.Commit(root, treeColumnLogSizes[i], channel); err != nil {
			return err
		}
	}

	// Pre-OODS randomness; only its transcript effect matters here.
	if _, err := channel.DrawSecureFelt(); err != nil {
		return err
	}

	compositionLogSizes := []uint32{
		params.ComponentsCompositionLogDegreeBound,
		params.ComponentsCompositionLogDegreeBound,
		params.ComponentsCompositionLogDegreeBound,
		params.ComponentsCompositionLogDegreeBound,
	}
	if err := pcs.Commit(proof.Commitments[len(proof.Commitments)-1], compositionLogSizes, channel); err != nil {
		return err
	}

	oodsPoint, err := GetRandomPoint(channel)
	if err != nil {
		return err
	}

	samplePoints, err := ComputeSamplePoints(params, treeColumnLogSizes, oodsPoint)
	if err != nil {
		return err
	}
	if len(proof.SampledValues) != len(samplePoints) {
		return fmt.Errorf("%w: sampled values cover %d trees, expected %d", ErrShape, len(proof.SampledValues), len(samplePoints))
	}
	for t := range samplePoints {
		if len(proof.SampledValues[t]) != len(samplePoints[t]) {
			return fmt.Errorf("%w: tree %d has %d sampled columns, expected %d", ErrShape, t, len(proof.SampledValues[t]), len(samplePoints[t]))
		}
		for c := range samplePoints[t] {
			if len(proof.SampledValues[t][c]) != len(samplePoints[t][c]) {
				return fmt.Errorf("%w: tree %d column %d has %d samples, expected %d", ErrShape, t, c, len(proof.SampledValues[t][c]), len(samplePoints[t][c]))
			}
		}
	}

	if err := VerifyOods(proof, oodsPoint); err != nil {
		return err
	}

	var flatSampled []core.QM31
	for _, tree := range proof.SampledValues {
		for _, column := range tree {
			flatSampled = append(flatSampled, column...)
		}
	}
	channel.MixFelts(flatSampled)

	randomCoeff, err := channel.DrawSecureFelt()
	if err != nil {
		return err
	}

	friVerifier, err := NewFriVerifier(channel, proof.Config.FriConfig, proof.FriProof, pcs.CalculateBounds())
	if err != nil {
		return err
	}

	if !channel.VerifyPowNonce(proof.Config.PowBits, proof.ProofOfWork) {
		return fmt.Errorf("%w: nonce %d below %d bits", ErrPowFailed, proof.ProofOfWork, proof.Config.PowBits)
	}
	channel.MixU64(proof.ProofOfWork)

	positions := friVerifier.SampleQueryPositions(channel)

	if len(proof.QueriedValues) != len(pcs.Trees) || len(proof.Decommitments) != len(pcs.Trees) {
		return fmt.Errorf("%w: queried values or decommitments do not cover all %d trees", ErrShape, len(pcs.Trees))
	}

	// Per-tree Merkle verification of the queried values.
	queriedByColumn := make([][]core.M31, 0)
	for t, tree := range pcs.Trees {
		flat := proof.QueriedValues[t]
		cols := make([][]core.M31, len(tree.ColumnLogSizes))
		offset := 0
		for c, logSize := range tree.ColumnLogSizes {
			n := len(positions[logSize])
			if offset+n > len(flat) {
				return fmt.Errorf("%w: tree %d queried values truncated", ErrShape, t)
			}
			cols[c] = flat[offset : offset+n]
			offset += n
		}
		if offset != len(flat) {
			return fmt.Errorf("%w: tree %d has %d trailing queried values", ErrShape, t, len(flat)-offset)
		}
		if len(cols) == 0 {
			if len(proof.Decommitments[t].HashWitness) != 0 || len(proof.Decommitments[t].ColumnWitness) != 0 {
				return fmt.Errorf("%w: non-empty witness for empty tree %d", ErrMerkleShape, t)
			}
			continue
		}

		treeQueries := make(map[uint32][]int)
		for _, logSize := range utils.SortedUniqueDesc(tree.ColumnLogSizes) {
			treeQueries[logSize] = positions[logSize]
		}
		if err := tree.Verify(treeQueries, cols, proof.Decommitments[t]); err != nil {
			return fmt.Errorf("tree %d: %w", t, err)
		}
		queriedByColumn = append(queriedByColumn, cols...)
	}

	// Flatten columns across trees for the DEEP quotients.
	var columnLogSizes []uint32
	var samples [][]PointSample
	for t, tree := range pcs.Trees {
		for c, logSize := range tree.ColumnLogSizes {
			columnLogSizes = append(columnLogSizes, logSize)
			colSamples := make([]PointSample, len(samplePoints[t][c]))
			for k := range colSamples {
				colSamples[k] = PointSample{Point: samplePoints[t][c][k], Value: proof.SampledValues[t][c][k]}
			}
			samples = append(samples, colSamples)
		}
	}

	answers, err := FriAnswers(columnLogSizes, samples, randomCoeff, positions, queriedByColumn)
	if err != nil {
		return err
	}

	return friVerifier.Decommit(answers)
}
