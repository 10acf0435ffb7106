package protocols

import (
	"fmt"

	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/utils"
)

// LinePoly is a univariate polynomial in the line FFT basis, coefficients
// stored in FFT (bit-reversed) order as they appear on the wire.
type LinePoly struct {
	Coeffs []core.QM31
}

// NewLinePoly wraps coefficients after checking the length is a power of
// two.
func NewLinePoly(coeffs []core.QM31) (LinePoly, error) {
	if !utils.IsPowerOfTwo(len(coeffs)) {
		return LinePoly{}, fmt.Errorf("%w: last layer polynomial length %d is not a power of two", ErrFriInvalidProofShape, len(coeffs))
	}
	return LinePoly{Coeffs: coeffs}, nil
}

// LogSize returns the log2 coefficient count.
func (p LinePoly) LogSize() uint32 {
	return uint32(utils.Log2(len(p.Coeffs)))
}

// EvalAtPoint evaluates the polynomial by folding the coefficients over
// the doubling map orbit of x.
func (p LinePoly) EvalAtPoint(x core.QM31) core.QM31 {
	logSize := p.LogSize()
	factors := make([]core.QM31, logSize)
	for i := range factors {
		factors[i] = x
		x = core.DoubleXQM31(x)
	}
	// Highest doubling splits the top level.
	for i, j := 0, len(factors)-1; i < j; i, j = i+1, j-1 {
		factors[i], factors[j] = factors[j], factors[i]
	}
	return foldSecure(p.Coeffs, factors)
}

// foldSecure recursively combines coefficient halves: lhs + factor * rhs.
func foldSecure(values, factors []core.QM31) core.QM31 {
	if len(values) == 1 {
		return values[0]
	}
	half := len(values) / 2
	lhs := foldSecure(values[:half], factors[1:])
	rhs := foldSecure(values[half:], factors[1:])
	return lhs.Add(factors[0].Mul(rhs))
}

// friFirstLayerVerifier holds the commitment data of the first FRI layer,
// which commits one quotient column per distinct column bound.
type friFirstLayerVerifier struct {
	ColumnBounds  []uint32
	ColumnDomains []core.CircleDomain
	FoldingAlpha  core.QM31
	Proof         FriLayerProof
}

// friInnerLayerVerifier holds the commitment data of one inner FRI layer.
type friInnerLayerVerifier struct {
	DegreeBound  uint32
	Domain       core.LineDomain
	FoldingAlpha core.QM31
	Proof        FriLayerProof
}

// FriVerifier drives the FRI protocol: the commit phase binds the layer
// roots and folding challenges into the channel, the query phase samples
// positions, and decommit folds the DEEP quotient answers down to the last
// layer polynomial.
type FriVerifier struct {
	Config          utils.FriConfig
	FirstLayer      *friFirstLayerVerifier
	InnerLayers     []*friInnerLayerVerifier
	LastLayerDomain core.LineDomain
	LastLayerPoly   LinePoly

	// QueryPositionsPerLogSize is populated by SampleQueryPositions.
	QueryPositionsPerLogSize map[uint32][]int

	maxColumnLogSize uint32
}

// NewFriVerifier runs the FRI commit phase: it mixes every layer root,
// draws the folding challenges, and validates the proof shape against the
// column degree bounds (descending, deduplicated).
func NewFriVerifier(channel *utils.Channel, config utils.FriConfig, proof FriProof, columnBounds []uint32) (*FriVerifier, error) {
	bounds := utils.SortedUniqueDesc(columnBounds)
	if len(bounds) == 0 {
		return nil, fmt.Errorf("%w: no column bounds", ErrShape)
	}
	lastBound := config.LogLastLayerDegreeBound
	for _, b := range bounds {
		if b < lastBound+1 {
			return nil, fmt.Errorf("%w: column bound %d cannot fold to last layer bound %d", ErrFriInsufficientDegree, b, lastBound)
		}
	}

	first := &friFirstLayerVerifier{
		ColumnBounds:  bounds,
		ColumnDomains: make([]core.CircleDomain, len(bounds)),
		Proof:         proof.FirstLayer,
	}
	for i, b := range bounds {
		first.ColumnDomains[i] = core.CanonicDomain(b + config.LogBlowupFactor)
	}
	channel.MixRoot(proof.FirstLayer.Commitment)
	alpha, err := channel.DrawSecureFelt()
	if err != nil {
		return nil, err
	}
	first.FoldingAlpha = alpha

	maxBound := bounds[0]
	maxColumnLogSize := maxBound + config.LogBlowupFactor
	expectedInner := maxBound - 1 - lastBound
	if uint32(len(proof.InnerLayers)) != expectedInner {
		return nil, fmt.Errorf("%w: %d inner layers, expected %d", ErrFriInvalidProofShape, len(proof.InnerLayers), expectedInner)
	}

	// The first circle-to-line fold lands on the half coset of the
	// largest commitment domain.
	layerDomain := core.NewLineDomain(core.HalfOdds(maxColumnLogSize - 1))
	layerBound := maxBound - 1
	inner := make([]*friInnerLayerVerifier, len(proof.InnerLayers))
	for i := range proof.InnerLayers {
		channel.MixRoot(proof.InnerLayers[i].Commitment)
		foldingAlpha, err := channel.DrawSecureFelt()
		if err != nil {
			return nil, err
		}
		inner[i] = &friInnerLayerVerifier{
			DegreeBound:  layerBound,
			Domain:       layerDomain,
			FoldingAlpha: foldingAlpha,
			Proof:        proof.InnerLayers[i],
		}
		layerBound--
		layerDomain = layerDomain.Double()
	}

	lastLayerPoly, err := NewLinePoly(proof.LastLayerPoly)
	if err != nil {
		return nil, err
	}
	if len(proof.LastLayerPoly) > 1<<lastBound {
		return nil, fmt.Errorf("%w: last layer polynomial degree exceeds bound %d", ErrFriLastLayerMismatch, lastBound)
	}
	if layerDomain.LogSize() != lastBound+config.LogBlowupFactor {
		return nil, fmt.Errorf("%w: last layer domain log size %d, expected %d", ErrFriInvalidProofShape, layerDomain.LogSize(), lastBound+config.LogBlowupFactor)
	}
	channel.MixFelts(proof.LastLayerPoly)

	return &FriVerifier{
		Config:           config,
		FirstLayer:       first,
		InnerLayers:      inner,
		LastLayerDomain:  layerDomain,
		LastLayerPoly:    lastLayerPoly,
		maxColumnLogSize: maxColumnLogSize,
	}, nil
}

// SampleQueryPositions draws the query positions on the largest commitment
// domain and derives the positions for every smaller committed log size by
// folding, so positions stay aligned across FRI layers.
func (v *FriVerifier) SampleQueryPositions(channel *utils.Channel) map[uint32][]int {
	maxLog := v.maxColumnLogSize
	mask := (1 << maxLog) - 1

	var master []int
	for len(master) < int(v.Config.NQueries) {
		raw := channel.DrawU32s()
		for _, r := range raw {
			if len(master) == int(v.Config.NQueries) {
				break
			}
			master = append(master, int(r)&mask)
		}
	}
	master = utils.SortedUniqueInts(master)

	positions := make(map[uint32][]int)
	for _, bound := range v.FirstLayer.ColumnBounds {
		logSize := bound + v.Config.LogBlowupFactor
		folded := make([]int, len(master))
		for i, q := range master {
			folded[i] = q >> (maxLog - logSize)
		}
		positions[logSize] = utils.SortedUniqueInts(folded)
	}
	v.QueryPositionsPerLogSize = positions
	return positions
}

// evalPair is a sibling pair of evaluations at positions (pos, pos+1) of a
// bit-reversed evaluation array.
type evalPair struct {
	pos   int
	evals [2]core.QM31
}

// rebuildSparseEvals completes the queried evaluations into full sibling
// pairs, pulling missing siblings from the layer witness. It returns the
// pairs and the flat decommitment positions.
func rebuildSparseEvals(positions []int, queryEvals []core.QM31, witness *[]core.QM31) ([]evalPair, []int, error) {
	if len(positions) != len(queryEvals) {
		return nil, nil, fmt.Errorf("%w: %d evals for %d positions", ErrFriInvalidProofShape, len(queryEvals), len(positions))
	}
	var pairs []evalPair
	var decommitmentPositions []int
	i := 0
	for i < len(positions) {
		base := positions[i] &^ 1
		var evals [2]core.QM31
		for j, pos := range [2]int{base, base + 1} {
			if i < len(positions) && positions[i] == pos {
				evals[j] = queryEvals[i]
				i++
			} else {
				if len(*witness) == 0 {
					return nil, nil, fmt.Errorf("%w: fri witness exhausted", ErrFriInvalidProofShape)
				}
				evals[j] = (*witness)[0]
				*witness = (*witness)[1:]
			}
		}
		pairs = append(pairs, evalPair{pos: base, evals: evals})
		decommitmentPositions = append(decommitmentPositions, base, base+1)
	}
	return pairs, decommitmentPositions, nil
}

// pairColumnValues splits the pair evaluations into the four M31 columns
// the layer's Merkle tree commits to.
func pairColumnValues(pairs []evalPair) [][]core.M31 {
	columns := make([][]core.M31, 4)
	for k := range columns {
		columns[k] = make([]core.M31, 0, 2*len(pairs))
	}
	for _, pair := range pairs {
		for _, eval := range pair.evals {
			coords := eval.ToM31s()
			for k := range columns {
				columns[k] = append(columns[k], coords[k])
			}
		}
	}
	return columns
}

// foldCircleIntoLine folds circle evaluations onto the half-size line
// domain: ((f(p) + f(-p)) + alpha * (f(p) - f(-p)) / p.y) / 2.
func foldCircleIntoLine(pairs []evalPair, alpha core.QM31, domain core.CircleDomain) ([]core.QM31, error) {
	ys := make([]core.M31, len(pairs))
	for i, pair := range pairs {
		ys[i] = domain.At(utils.BitReverseIndex(pair.pos, domain.LogSize())).Y
	}
	yInvs, err := core.BatchInverseM31(ys)
	if err != nil {
		return nil, fmt.Errorf("circle fold: %w", err)
	}
	folded := make([]core.QM31, len(pairs))
	for i, pair := range pairs {
		f0 := pair.evals[0].Add(pair.evals[1])
		f1 := pair.evals[0].Sub(pair.evals[1]).MulM31(yInvs[i])
		folded[i] = f0.Add(alpha.Mul(f1)).MulM31(core.InvTwo())
	}
	return folded, nil
}

// foldLine folds line evaluations onto the doubled domain:
// ((f(x) + f(-x)) + alpha * (f(x) - f(-x)) / x) / 2.
func foldLine(pairs []evalPair, alpha core.QM31, domain core.LineDomain) ([]core.QM31, error) {
	xs := make([]core.M31, len(pairs))
	for i, pair := range pairs {
		xs[i] = domain.At(utils.BitReverseIndex(pair.pos, domain.LogSize()))
	}
	xInvs, err := core.BatchInverseM31(xs)
	if err != nil {
		return nil, fmt.Errorf("line fold: %w", err)
	}
	folded := make([]core.QM31, len(pairs))
	for i, pair := range pairs {
		f0 := pair.evals[0].Add(pair.evals[1])
		f1 := pair.evals[0].Sub(pair.evals[1]).MulM31(xInvs[i])
		folded[i] = f0.Add(alpha.Mul(f1)).MulM31(core.InvTwo())
	}
	return folded, nil
}

// verifyAndFold checks one inner layer's Merkle decommitment at the given
// queries and folds the evaluations onto the next layer's domain.
func (l *friInnerLayerVerifier) verifyAndFold(queries []int, evals []core.QM31) ([]int, []core.QM31, error) {
	witness := l.Proof.FriWitness
	pairs, decommitmentPositions, err := rebuildSparseEvals(queries, evals, &witness)
	if err != nil {
		return nil, nil, err
	}
	if len(witness) != 0 {
		return nil, nil, fmt.Errorf("%w: %d unused fri witness entries", ErrFriInvalidProofShape, len(witness))
	}

	logSize := l.Domain.LogSize()
	merkle := NewMerkleVerifier(l.Proof.Commitment, []uint32{logSize, logSize, logSize, logSize})
	if err := merkle.Verify(map[uint32][]int{logSize: decommitmentPositions}, pairColumnValues(pairs), l.Proof.Decommitment); err != nil {
		return nil, nil, fmt.Errorf("%w: inner layer at log size %d: %v", ErrFriCommitmentMismatch, logSize, err)
	}

	foldedEvals, err := foldLine(pairs, l.FoldingAlpha, l.Domain)
	if err != nil {
		return nil, nil, err
	}
	foldedQueries := make([]int, len(pairs))
	for i, pair := range pairs {
		foldedQueries[i] = pair.pos >> 1
	}
	return foldedQueries, foldedEvals, nil
}

// Decommit verifies the FRI layer decommitments against the DEEP quotient
// answers and checks the final fold against the last layer polynomial.
// answers maps each committed log size to the quotient evaluations at its
// query positions.
func (v *FriVerifier) Decommit(answers map[uint32][]core.QM31) error {
	if v.QueryPositionsPerLogSize == nil {
		return fmt.Errorf("%w: query positions not sampled", ErrShape)
	}

	// First layer: rebuild and fold each committed quotient column, and
	// verify all of them against the first layer root at once.
	witness := v.FirstLayer.Proof.FriWitness
	decommitmentPositions := make(map[uint32][]int)
	var columnValues [][]core.M31
	var columnLogSizes []uint32
	foldedFirstLayer := make([][]core.QM31, len(v.FirstLayer.ColumnBounds))
	for ci, bound := range v.FirstLayer.ColumnBounds {
		logSize := bound + v.Config.LogBlowupFactor
		positions := v.QueryPositionsPerLogSize[logSize]
		queryEvals := answers[logSize]
		pairs, decPositions, err := rebuildSparseEvals(positions, queryEvals, &witness)
		if err != nil {
			return fmt.Errorf("first layer column at log size %d: %w", logSize, err)
		}
		decommitmentPositions[logSize] = decPositions
		columnValues = append(columnValues, pairColumnValues(pairs)...)
		columnLogSizes = append(columnLogSizes, logSize, logSize, logSize, logSize)
		if foldedFirstLayer[ci], err = foldCircleIntoLine(pairs, v.FirstLayer.FoldingAlpha, v.FirstLayer.ColumnDomains[ci]); err != nil {
			return err
		}
	}
	if len(witness) != 0 {
		return fmt.Errorf("%w: %d unused first layer witness entries", ErrFriInvalidProofShape, len(witness))
	}
	merkle := NewMerkleVerifier(v.FirstLayer.Proof.Commitment, columnLogSizes)
	if err := merkle.Verify(decommitmentPositions, columnValues, v.FirstLayer.Proof.Decommitment); err != nil {
		return fmt.Errorf("%w: first layer: %v", ErrFriCommitmentMismatch, err)
	}

	// Walk the layer pipeline, merging each first layer column when the
	// fold reaches its size.
	maxLog := v.maxColumnLogSize
	masterPositions := v.QueryPositionsPerLogSize[maxLog]
	layerQueries := make([]int, len(masterPositions))
	for i, q := range masterPositions {
		layerQueries[i] = q >> 1
	}
	layerQueries = utils.SortedUniqueInts(layerQueries)
	layerEvals := make([]core.QM31, len(layerQueries))

	firstAlphaSq := v.FirstLayer.FoldingAlpha.Square()
	bounds := v.FirstLayer.ColumnBounds
	ci := 0
	mergeColumns := func(lineBound uint32) error {
		for ci < len(bounds) && bounds[ci]-1 == lineBound {
			folded := foldedFirstLayer[ci]
			if len(folded) != len(layerQueries) {
				return fmt.Errorf("%w: folded first layer column misaligned", ErrFriInvalidProofShape)
			}
			for k := range layerEvals {
				layerEvals[k] = layerEvals[k].Mul(firstAlphaSq).Add(folded[k])
			}
			ci++
		}
		return nil
	}

	for _, layer := range v.InnerLayers {
		if err := mergeColumns(layer.DegreeBound); err != nil {
			return err
		}
		var err error
		if layerQueries, layerEvals, err = layer.verifyAndFold(layerQueries, layerEvals); err != nil {
			return err
		}
	}
	if err := mergeColumns(v.Config.LogLastLayerDegreeBound); err != nil {
		return err
	}
	if ci != len(bounds) {
		return fmt.Errorf("%w: %d first layer columns never folded in", ErrFriInvalidProofShape, len(bounds)-ci)
	}

	// Last layer: the folded evaluations must agree with the committed
	// low-degree polynomial.
	logSize := v.LastLayerDomain.LogSize()
	for k, q := range layerQueries {
		x := v.LastLayerDomain.At(utils.BitReverseIndex(q, logSize))
		expected := v.LastLayerPoly.EvalAtPoint(core.QM31FromM31(x))
		if !layerEvals[k].Equal(expected) {
			return fmt.Errorf("%w: at position %d", ErrFriLastLayerMismatch, q)
		}
	}
	return nil
}
