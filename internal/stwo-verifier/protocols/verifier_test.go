package protocols

import (
	"errors"
	"testing"

	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/utils"
)

// testProofBundle is everything buildTestProof produced for one statement.
type testProofBundle struct {
	proof  *Proof
	params *VerificationParams
	roots  []core.Hash
	logs   [][]uint32
	digest core.Hash
}

// verify runs the pipeline on the bundle.
func (b *testProofBundle) verify() error {
	return Verify(b.proof, b.params, b.roots, b.logs, b.digest, 0)
}

// qm31Columns splits secure field values into their four M31 coordinate
// columns.
func qm31Columns(values []core.QM31) [][]core.M31 {
	columns := make([][]core.M31, 4)
	for k := range columns {
		columns[k] = make([]core.M31, len(values))
	}
	for i, v := range values {
		coords := v.ToM31s()
		for k := range columns {
			columns[k][i] = coords[k]
		}
	}
	return columns
}

// pairUpWithWitness walks sorted query positions, collecting the sibling
// pair layout and appending non-queried siblings from the full evaluation
// array to the witness.
func pairUpWithWitness(positions []int, fullEvals []core.QM31, witness *[]core.QM31) []int {
	var decommitmentPositions []int
	i := 0
	for i < len(positions) {
		base := positions[i] &^ 1
		for _, p := range [2]int{base, base + 1} {
			if i < len(positions) && positions[i] == p {
				i++
			} else {
				*witness = append(*witness, fullEvals[p])
			}
		}
		decommitmentPositions = append(decommitmentPositions, base, base+1)
	}
	return decommitmentPositions
}

// buildTestProof constructs an honest proof for a one-column trace and a
// composition polynomial, driving a channel through the exact verifier
// transcript. Trace and composition degree bounds are parameters so the
// FRI pipeline depth varies across tests.
func buildTestProof(t *testing.T, traceLogSize, compositionBound uint32) *testProofBundle {
	t.Helper()
	const blowup = 1
	config := utils.PcsConfig{
		PowBits: 1,
		FriConfig: utils.FriConfig{
			LogBlowupFactor:         blowup,
			LogLastLayerDegreeBound: 0,
			NQueries:                1,
		},
	}
	traceBlown := traceLogSize + blowup
	compBlown := compositionBound + blowup

	traceCoeffs := make([]core.M31, 1<<traceLogSize)
	for i := range traceCoeffs {
		traceCoeffs[i] = core.NewM31(uint64(i)*37 + 11)
	}
	var compCoeffs [4][]core.M31
	for k := range compCoeffs {
		compCoeffs[k] = make([]core.M31, 1<<compositionBound)
		for i := range compCoeffs[k] {
			compCoeffs[k][i] = core.NewM31(uint64(k+2)*1009 + uint64(i)*53)
		}
	}

	// Commitment columns: polynomial evaluations over the blown-up domain
	// in bit-reversed position order.
	evalColumn := func(coeffs []core.M31, logSize uint32) []core.M31 {
		domain := core.CanonicDomain(logSize)
		out := make([]core.M31, domain.Size())
		for p := range out {
			point := core.LiftPoint(domain.At(utils.BitReverseIndex(p, logSize)))
			v, err := evalCirclePolyAtPoint(coeffs, point)
			if err != nil {
				t.Fatalf("column evaluation failed: %v", err)
			}
			coords := v.ToM31s()
			if coords[1] != 0 || coords[2] != 0 || coords[3] != 0 {
				t.Fatal("base point evaluation left the base field")
			}
			out[p] = coords[0]
		}
		return out
	}
	traceColumn := evalColumn(traceCoeffs, traceBlown)
	compColumns := make([][]core.M31, 4)
	for k := range compColumns {
		compColumns[k] = evalColumn(compCoeffs[k], compBlown)
	}

	traceTree := newTestMerkleTree(t, []uint32{traceBlown}, [][]core.M31{traceColumn})
	compTree := newTestMerkleTree(t, []uint32{compBlown, compBlown, compBlown, compBlown}, compColumns)

	var zeroRoot, digest core.Hash
	digest[0] = 0x42
	roots := []core.Hash{zeroRoot, traceTree.root, zeroRoot}
	logs := [][]uint32{{}, {traceLogSize}, {}}

	// Drive the transcript exactly as the verifier does.
	ch := utils.NewChannel(digest, 0)
	ch.MixRoot(zeroRoot)
	ch.MixRoot(traceTree.root)
	ch.MixRoot(zeroRoot)
	if _, err := ch.DrawSecureFelt(); err != nil {
		t.Fatalf("pre-oods draw failed: %v", err)
	}
	ch.MixRoot(compTree.root)
	oods, err := GetRandomPoint(ch)
	if err != nil {
		t.Fatalf("oods point draw failed: %v", err)
	}

	traceSample, err := evalCirclePolyAtPoint(traceCoeffs, oods)
	if err != nil {
		t.Fatalf("trace sample failed: %v", err)
	}
	var compSamples [4]core.QM31
	for k := range compSamples {
		if compSamples[k], err = evalCirclePolyAtPoint(compCoeffs[k], oods); err != nil {
			t.Fatalf("composition sample failed: %v", err)
		}
	}
	sampledValues := [][][]core.QM31{
		{},
		{{traceSample}},
		{},
		{{compSamples[0]}, {compSamples[1]}, {compSamples[2]}, {compSamples[3]}},
	}
	flat := []core.QM31{traceSample, compSamples[0], compSamples[1], compSamples[2], compSamples[3]}
	ch.MixFelts(flat)
	randomCoeff, err := ch.DrawSecureFelt()
	if err != nil {
		t.Fatalf("random coeff draw failed: %v", err)
	}

	// DEEP quotients over the full domains, one column per unique size.
	columnLogSizes := []uint32{traceBlown, compBlown, compBlown, compBlown, compBlown}
	samples := [][]PointSample{
		{{Point: oods, Value: traceSample}},
		{{Point: oods, Value: compSamples[0]}},
		{{Point: oods, Value: compSamples[1]}},
		{{Point: oods, Value: compSamples[2]}},
		{{Point: oods, Value: compSamples[3]}},
	}
	fullColumns := [][]core.M31{traceColumn, compColumns[0], compColumns[1], compColumns[2], compColumns[3]}

	uniqueSizes := utils.SortedUniqueDesc(columnLogSizes)
	fullAnswers := make(map[uint32][]core.QM31)
	for _, logSize := range uniqueSizes {
		var cols []int
		for c, l := range columnLogSizes {
			if l == logSize {
				cols = append(cols, c)
			}
		}
		all := make([]int, 1<<logSize)
		for i := range all {
			all[i] = i
		}
		if fullAnswers[logSize], err = friAnswersForLogSize(logSize, cols, samples, randomCoeff, all, fullColumns); err != nil {
			t.Fatalf("full quotient computation failed: %v", err)
		}
	}

	// First FRI layer commits every quotient column.
	var flLogs []uint32
	var flCols [][]core.M31
	for _, logSize := range uniqueSizes {
		flCols = append(flCols, qm31Columns(fullAnswers[logSize])...)
		flLogs = append(flLogs, logSize, logSize, logSize, logSize)
	}
	firstTree := newTestMerkleTree(t, flLogs, flCols)
	ch.MixRoot(firstTree.root)
	alphaFirst, err := ch.DrawSecureFelt()
	if err != nil {
		t.Fatalf("first layer alpha draw failed: %v", err)
	}
	alphaFirstSq := alphaFirst.Square()

	fullFolded := make(map[uint32][]core.QM31)
	for _, logSize := range uniqueSizes {
		domain := core.CanonicDomain(logSize)
		if fullFolded[logSize], err = foldCircleIntoLine(allPairs(fullAnswers[logSize]), alphaFirst, domain); err != nil {
			t.Fatalf("first layer fold failed: %v", err)
		}
	}

	// Inner layer pipeline over the full domains.
	type innerLayerData struct {
		evals  []core.QM31
		tree   *testMerkleTree
		domain core.LineDomain
	}
	maxLog := uniqueSizes[0]
	nInner := int(maxLog) - blowup - 1
	pipeline := make([]core.QM31, 1<<(maxLog-1))
	lineDomain := core.NewLineDomain(core.HalfOdds(maxLog - 1))
	var innerData []innerLayerData
	si := 0
	mergeAt := func(lineBound uint32) {
		for si < len(uniqueSizes) && uniqueSizes[si]-blowup-1 == lineBound {
			folded := fullFolded[uniqueSizes[si]]
			for k := range pipeline {
				pipeline[k] = pipeline[k].Mul(alphaFirstSq).Add(folded[k])
			}
			si++
		}
	}
	curBound := maxLog - blowup - 1
	for i := 0; i < nInner; i++ {
		mergeAt(curBound)
		logSize := lineDomain.LogSize()
		tree := newTestMerkleTree(t, []uint32{logSize, logSize, logSize, logSize}, qm31Columns(pipeline))
		ch.MixRoot(tree.root)
		alphaI, err := ch.DrawSecureFelt()
		if err != nil {
			t.Fatalf("inner alpha draw failed: %v", err)
		}
		innerData = append(innerData, innerLayerData{
			evals:  append([]core.QM31(nil), pipeline...),
			tree:   tree,
			domain: lineDomain,
		})
		if pipeline, err = foldLine(allPairs(pipeline), alphaI, lineDomain); err != nil {
			t.Fatalf("inner fold failed: %v", err)
		}
		lineDomain = lineDomain.Double()
		curBound--
	}
	mergeAt(curBound)
	if si != len(uniqueSizes) {
		t.Fatalf("%d quotient columns never merged", len(uniqueSizes)-si)
	}
	for k := range pipeline {
		if !pipeline[k].Equal(pipeline[0]) {
			t.Fatalf("final fold is not constant at position %d", k)
		}
	}
	lastLayerPoly := []core.QM31{pipeline[0]}
	ch.MixFelts(lastLayerPoly)

	var nonce uint64
	for !ch.VerifyPowNonce(config.PowBits, nonce) {
		nonce++
		if nonce > 1<<20 {
			t.Fatal("no proof-of-work nonce found")
		}
	}
	ch.MixU64(nonce)

	// Query sampling, mirroring the verifier's masked draw.
	raw := ch.DrawU32s()
	master := int(raw[0]) & (1<<maxLog - 1)
	positions := make(map[uint32][]int)
	for _, logSize := range uniqueSizes {
		positions[logSize] = []int{master >> (maxLog - logSize)}
	}

	// Trace and composition tree openings.
	traceQueries := map[uint32][]int{traceBlown: positions[traceBlown]}
	compQueries := map[uint32][]int{compBlown: positions[compBlown]}
	queriedValues := [][]core.M31{
		{},
		traceTree.queriedValues(traceQueries)[0],
		{},
		nil,
	}
	for _, col := range compTree.queriedValues(compQueries) {
		queriedValues[3] = append(queriedValues[3], col...)
	}
	decommitments := []MerkleDecommitment{
		{},
		traceTree.decommit(traceQueries),
		{},
		compTree.decommit(compQueries),
	}

	// First layer witness and opening.
	var flWitness []core.QM31
	flQueries := make(map[uint32][]int)
	for _, logSize := range uniqueSizes {
		flQueries[logSize] = pairUpWithWitness(positions[logSize], fullAnswers[logSize], &flWitness)
	}
	firstLayerProof := FriLayerProof{
		FriWitness:   flWitness,
		Decommitment: firstTree.decommit(flQueries),
		Commitment:   firstTree.root,
	}

	// Inner layer witnesses and openings.
	innerProofs := make([]FriLayerProof, len(innerData))
	layerQueries := []int{master >> 1}
	for i, data := range innerData {
		var witness []core.QM31
		decPositions := pairUpWithWitness(layerQueries, data.evals, &witness)
		logSize := data.domain.LogSize()
		innerProofs[i] = FriLayerProof{
			FriWitness:   witness,
			Decommitment: data.tree.decommit(map[uint32][]int{logSize: decPositions}),
			Commitment:   data.tree.root,
		}
		layerQueries = []int{layerQueries[0] >> 1}
	}

	proof := &Proof{
		Commitments:   []core.Hash{zeroRoot, traceTree.root, zeroRoot, compTree.root},
		SampledValues: sampledValues,
		Decommitments: decommitments,
		QueriedValues: queriedValues,
		ProofOfWork:   nonce,
		FriProof: FriProof{
			FirstLayer:    firstLayerProof,
			InnerLayers:   innerProofs,
			LastLayerPoly: lastLayerPoly,
		},
		CompositionPoly: CompositionPoly{Coeffs: compCoeffs},
		Config:          config,
	}
	params := &VerificationParams{
		ComponentParams: []ComponentParams{{
			LogSize:    traceLogSize,
			ClaimedSum: core.QM31Zero(),
			Info: ComponentInfo{
				MaxConstraintLogDegreeBound: compositionBound,
				LogSize:                     traceLogSize,
				MaskOffsets:                 [][][]int32{{}, {{0}}, {}},
			},
		}},
		NPreprocessedColumns:                0,
		ComponentsCompositionLogDegreeBound: compositionBound,
	}
	return &testProofBundle{proof: proof, params: params, roots: roots, logs: logs, digest: digest}
}

// TestVerifyAccepts tests that honest proofs verify across pipeline
// depths.
func TestVerifyAccepts(t *testing.T) {
	tests := []struct {
		name             string
		traceLogSize     uint32
		compositionBound uint32
	}{
		{"single size, no inner layers", 1, 1},
		{"two sizes, two inner layers", 3, 1},
		{"two sizes, composition largest", 1, 3},
		{"deep pipeline", 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := buildTestProof(t, tt.traceLogSize, tt.compositionBound)
			if err := bundle.verify(); err != nil {
				t.Errorf("honest proof rejected: %v", err)
			}
		})
	}
}

// TestVerifyWireRoundTrip tests that a proof survives serialization and
// still verifies.
func TestVerifyWireRoundTrip(t *testing.T) {
	bundle := buildTestProof(t, 3, 1)
	decoded, err := ParseProof(EncodeProof(bundle.proof))
	if err != nil {
		t.Fatalf("ParseProof failed: %v", err)
	}
	bundle.proof = decoded
	if err := bundle.verify(); err != nil {
		t.Errorf("round-tripped proof rejected: %v", err)
	}
}

// TestVerifyRejectsMutations tests the spec's mutation battery: specific
// failure codes where the failing step is reached deterministically, and
// plain rejection where the transcript diverges first.
func TestVerifyRejectsMutations(t *testing.T) {
	t.Run("QueriedValueFlip", func(t *testing.T) {
		bundle := buildTestProof(t, 3, 1)
		bundle.proof.QueriedValues[1][0] = bundle.proof.QueriedValues[1][0].Add(1)
		if err := bundle.verify(); !errors.Is(err, ErrMerkleMismatch) {
			t.Errorf("got %v, want ErrMerkleMismatch", err)
		}
	})

	t.Run("CompositionCoeffFlip", func(t *testing.T) {
		bundle := buildTestProof(t, 3, 1)
		bundle.proof.CompositionPoly.Coeffs[1][0] = bundle.proof.CompositionPoly.Coeffs[1][0].Add(1)
		if err := bundle.verify(); !errors.Is(err, ErrOodsMismatch) {
			t.Errorf("got %v, want ErrOodsMismatch", err)
		}
	})

	t.Run("FirstLayerWitnessFlip", func(t *testing.T) {
		bundle := buildTestProof(t, 3, 1)
		if len(bundle.proof.FriProof.FirstLayer.FriWitness) == 0 {
			t.Fatal("expected a non-empty first layer witness")
		}
		w := &bundle.proof.FriProof.FirstLayer.FriWitness[0]
		*w = w.Add(core.QM31One())
		if err := bundle.verify(); !errors.Is(err, ErrFriCommitmentMismatch) {
			t.Errorf("got %v, want ErrFriCommitmentMismatch", err)
		}
	})

	t.Run("InsufficientPow", func(t *testing.T) {
		bundle := buildTestProof(t, 3, 1)
		bundle.proof.Config.PowBits = 255
		if err := bundle.verify(); !errors.Is(err, ErrPowFailed) {
			t.Errorf("got %v, want ErrPowFailed", err)
		}
	})

	t.Run("TraceRootFlip", func(t *testing.T) {
		bundle := buildTestProof(t, 3, 1)
		bundle.roots[1][0] ^= 1
		if err := bundle.verify(); err == nil {
			t.Error("flipped trace root accepted")
		}
	})

	t.Run("CompositionRootFlip", func(t *testing.T) {
		bundle := buildTestProof(t, 3, 1)
		bundle.proof.Commitments[3][0] ^= 1
		if err := bundle.verify(); err == nil {
			t.Error("flipped composition root accepted")
		}
	})

	t.Run("SampledValueFlip", func(t *testing.T) {
		bundle := buildTestProof(t, 3, 1)
		v := &bundle.proof.SampledValues[1][0][0]
		*v = v.Add(core.QM31One())
		if err := bundle.verify(); err == nil {
			t.Error("flipped sampled value accepted")
		}
	})

	t.Run("LastLayerPolyFlip", func(t *testing.T) {
		bundle := buildTestProof(t, 3, 1)
		p := &bundle.proof.FriProof.LastLayerPoly[0]
		*p = p.Add(core.QM31One())
		if err := bundle.verify(); err == nil {
			t.Error("flipped last layer polynomial accepted")
		}
	})
}

// TestVerifyShapeFailures tests structural rejections before any
// cryptographic work.
func TestVerifyShapeFailures(t *testing.T) {
	t.Run("PreprocessedCountMismatch", func(t *testing.T) {
		bundle := buildTestProof(t, 1, 1)
		bundle.params.NPreprocessedColumns = 5
		if err := bundle.verify(); !errors.Is(err, ErrShape) {
			t.Errorf("got %v, want ErrShape", err)
		}
	})

	t.Run("MissingCommitment", func(t *testing.T) {
		bundle := buildTestProof(t, 1, 1)
		bundle.proof.Commitments = bundle.proof.Commitments[:3]
		if err := bundle.verify(); !errors.Is(err, ErrShape) {
			t.Errorf("got %v, want ErrShape", err)
		}
	})

	t.Run("NoComponents", func(t *testing.T) {
		bundle := buildTestProof(t, 1, 1)
		bundle.params.ComponentParams = nil
		if err := bundle.verify(); !errors.Is(err, ErrShape) {
			t.Errorf("got %v, want ErrShape", err)
		}
	})

	t.Run("SampledValuesShape", func(t *testing.T) {
		bundle := buildTestProof(t, 1, 1)
		bundle.proof.SampledValues[1][0] = append(bundle.proof.SampledValues[1][0], core.QM31One())
		if err := bundle.verify(); !errors.Is(err, ErrShape) {
			t.Errorf("got %v, want ErrShape", err)
		}
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		bundle := buildTestProof(t, 1, 1)
		bundle.proof.Config.FriConfig.NQueries = 0
		if err := bundle.verify(); !errors.Is(err, ErrShape) {
			t.Errorf("got %v, want ErrShape", err)
		}
	})

	t.Run("DomainTooLarge", func(t *testing.T) {
		bundle := buildTestProof(t, 1, 1)
		bundle.logs[1] = []uint32{core.MaxCircleDomainLogSize}
		if err := bundle.verify(); !errors.Is(err, ErrShape) {
			t.Errorf("got %v, want ErrShape", err)
		}
	})
}
