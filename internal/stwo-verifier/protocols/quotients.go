package protocols

import (
	"fmt"
	"runtime"

	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/utils"
)

// PointSample is one out-of-domain sample: the mask point and the claimed
// column value there.
type PointSample struct {
	Point core.SecureCirclePoint
	Value core.QM31
}

// ColumnSampleBatch groups the samples of all columns that share one mask
// point, so the point's quotient denominator is computed once.
type ColumnSampleBatch struct {
	Point   core.SecureCirclePoint
	Columns []int
	Values  []core.QM31
}

// groupSamplesByPoint batches the (column, sample) pairs by sample point,
// in first-seen order.
func groupSamplesByPoint(columns []int, samples [][]PointSample) []ColumnSampleBatch {
	var batches []ColumnSampleBatch
	for local, col := range columns {
		for _, sample := range samples[col] {
			found := false
			for i := range batches {
				if batches[i].Point.Equal(sample.Point) {
					batches[i].Columns = append(batches[i].Columns, local)
					batches[i].Values = append(batches[i].Values, sample.Value)
					found = true
					break
				}
			}
			if !found {
				batches = append(batches, ColumnSampleBatch{
					Point:   sample.Point,
					Columns: []int{local},
					Values:  []core.QM31{sample.Value},
				})
			}
		}
	}
	return batches
}

// lineCoeffs are the coefficients (a, b, c) of the complex conjugate line
// through a sample: the quotient numerator for a column value v at domain
// point D is v*c - (a*D.y + b).
type lineCoeffs struct {
	a core.QM31
	b core.QM31
	c core.QM31
}

// complexConjugateLineCoeffs computes the line through (P, v) and
// (conj(P), conj(v)), scaled by the accumulated random coefficient power.
func complexConjugateLineCoeffs(point core.SecureCirclePoint, value, alpha core.QM31) lineCoeffs {
	a := value.ComplexConjugate().Sub(value)
	c := point.ComplexConjugate().Y.Sub(point.Y)
	b := value.Mul(c).Sub(a.Mul(point.Y))
	return lineCoeffs{a: alpha.Mul(a), b: alpha.Mul(b), c: alpha.Mul(c)}
}

// pairVanishing evaluates the polynomial vanishing on the pair
// (excluded0, excluded1) at p.
func pairVanishing(excluded0, excluded1, p core.SecureCirclePoint) core.QM31 {
	return excluded0.Y.Sub(excluded1.Y).Mul(p.X).
		Add(excluded1.X.Sub(excluded0.X).Mul(p.Y)).
		Add(excluded0.X.Mul(excluded1.Y).Sub(excluded0.Y.Mul(excluded1.X)))
}

// FriAnswers computes the DEEP quotient evaluations at the query positions
// for every unique column log size, descending. These are the first-layer
// FRI evaluations.
//
// columnLogSizes, samples and queriedValues are per flattened column in
// tree-major, column-major order; queriedValues holds the committed values
// at the column's query positions.
func FriAnswers(
	columnLogSizes []uint32,
	samples [][]PointSample,
	randomCoeff core.QM31,
	queryPositionsPerLogSize map[uint32][]int,
	queriedValues [][]core.M31,
) (map[uint32][]core.QM31, error) {
	if len(samples) != len(columnLogSizes) || len(queriedValues) != len(columnLogSizes) {
		return nil, fmt.Errorf("%w: column count mismatch in fri answers", ErrShape)
	}

	answers := make(map[uint32][]core.QM31)
	for _, logSize := range utils.SortedUniqueDesc(columnLogSizes) {
		var columns []int
		for col, l := range columnLogSizes {
			if l == logSize {
				columns = append(columns, col)
			}
		}
		positions := queryPositionsPerLogSize[logSize]
		if positions == nil {
			return nil, fmt.Errorf("%w: no query positions for log size %d", ErrShape, logSize)
		}
		for _, col := range columns {
			if len(queriedValues[col]) != len(positions) {
				return nil, fmt.Errorf("%w: column %d has %d queried values for %d positions", ErrShape, col, len(queriedValues[col]), len(positions))
			}
		}

		logAnswers, err := friAnswersForLogSize(logSize, columns, samples, randomCoeff, positions, queriedValues)
		if err != nil {
			return nil, err
		}
		answers[logSize] = logAnswers
	}
	return answers, nil
}

// friAnswersForLogSize accumulates the quotients of the columns committed
// at one log size.
func friAnswersForLogSize(
	logSize uint32,
	columns []int,
	samples [][]PointSample,
	randomCoeff core.QM31,
	positions []int,
	queriedValues [][]core.M31,
) ([]core.QM31, error) {
	batches := groupSamplesByPoint(columns, samples)
	if len(batches) == 0 {
		return nil, fmt.Errorf("%w: no samples for log size %d", ErrShape, logSize)
	}

	coeffs := make([][]lineCoeffs, len(batches))
	batchCoeffs := make([]core.QM31, len(batches))
	for bi, batch := range batches {
		alpha := core.QM31One()
		coeffs[bi] = make([]lineCoeffs, len(batch.Values))
		for k, value := range batch.Values {
			alpha = alpha.Mul(randomCoeff)
			coeffs[bi][k] = complexConjugateLineCoeffs(batch.Point, value, alpha)
		}
		batchCoeffs[bi] = alpha
	}

	domain := core.CanonicDomain(logSize)
	domainPoints := make([]core.SecureCirclePoint, len(positions))
	denominators := make([]core.QM31, 0, len(positions)*len(batches))
	for pi, p := range positions {
		domainPoints[pi] = core.LiftPoint(domain.At(utils.BitReverseIndex(p, logSize)))
		for _, batch := range batches {
			denominators = append(denominators, pairVanishing(batch.Point, batch.Point.ComplexConjugate(), domainPoints[pi]))
		}
	}
	denominatorInvs, err := core.ParallelBatchInverseQM31(denominators, runtime.NumCPU())
	if err != nil {
		return nil, fmt.Errorf("fri answers at log size %d: %w", logSize, err)
	}

	answers := make([]core.QM31, len(positions))
	for pi := range positions {
		acc := core.QM31Zero()
		for bi, batch := range batches {
			numerator := core.QM31Zero()
			for k, local := range batch.Columns {
				value := queriedValues[columns[local]][pi]
				term := coeffs[bi][k].c.MulM31(value).
					Sub(coeffs[bi][k].a.Mul(domainPoints[pi].Y)).
					Sub(coeffs[bi][k].b)
				numerator = numerator.Add(term)
			}
			acc = acc.Mul(batchCoeffs[bi]).Add(numerator.Mul(denominatorInvs[pi*len(batches)+bi]))
		}
		answers[pi] = acc
	}
	return answers, nil
}
