package protocols

import (
	"fmt"

	"github.com/vybium/stwo-verifier/internal/stwo-verifier/core"
	"github.com/vybium/stwo-verifier/internal/stwo-verifier/utils"
)

// foldBase recursively combines M31 coefficient halves with secure field
// folding factors: lhs + factor * rhs.
func foldBase(values []core.M31, factors []core.QM31) core.QM31 {
	if len(values) == 1 {
		return core.QM31FromM31(values[0])
	}
	half := len(values) / 2
	lhs := foldBase(values[:half], factors[1:])
	rhs := foldBase(values[half:], factors[1:])
	return lhs.Add(factors[0].Mul(rhs))
}

// evalCirclePolyAtPoint evaluates a circle polynomial given by M31
// coefficients in the circle FFT basis (products of y, x and its
// doublings) at a secure field point.
func evalCirclePolyAtPoint(coeffs []core.M31, point core.SecureCirclePoint) (core.QM31, error) {
	if !utils.IsPowerOfTwo(len(coeffs)) {
		return core.QM31{}, fmt.Errorf("%w: circle polynomial length %d is not a power of two", ErrShape, len(coeffs))
	}
	logSize := uint32(utils.Log2(len(coeffs)))
	if logSize == 0 {
		return core.QM31FromM31(coeffs[0]), nil
	}

	mappings := make([]core.QM31, 0, logSize)
	mappings = append(mappings, point.Y)
	if logSize >= 2 {
		mappings = append(mappings, point.X)
		x := point.X
		for i := uint32(2); i < logSize; i++ {
			x = core.DoubleXQM31(x)
			mappings = append(mappings, x)
		}
	}
	// Highest doubling splits the top level.
	for i, j := 0, len(mappings)-1; i < j; i, j = i+1, j-1 {
		mappings[i], mappings[j] = mappings[j], mappings[i]
	}
	return foldBase(coeffs, mappings), nil
}

// EvalCompositionPolyAtPoint evaluates the composition polynomial at the
// OODS point: each of the four coordinate polynomials is evaluated as a
// circle polynomial and the results are recomposed into the secure field.
func EvalCompositionPolyAtPoint(poly CompositionPoly, point core.SecureCirclePoint) (core.QM31, error) {
	var partials [4]core.QM31
	for k, coeffs := range poly.Coeffs {
		if len(coeffs) != len(poly.Coeffs[0]) {
			return core.QM31{}, fmt.Errorf("%w: composition coordinate polynomials differ in length", ErrShape)
		}
		partial, err := evalCirclePolyAtPoint(coeffs, point)
		if err != nil {
			return core.QM31{}, err
		}
		partials[k] = partial
	}
	return core.FromPartialEvals(partials), nil
}

// VerifyOods checks that the composition polynomial carried by the proof
// evaluates at the OODS point to the value sampled from the composition
// tree (its four coordinate columns at the OODS point).
func VerifyOods(proof *Proof, oodsPoint core.SecureCirclePoint) error {
	sampled := proof.SampledValues
	if len(sampled) == 0 {
		return fmt.Errorf("%w: no sampled values", ErrShape)
	}
	composition := sampled[len(sampled)-1]
	if len(composition) != 4 {
		return fmt.Errorf("%w: composition tree has %d columns, expected 4", ErrShape, len(composition))
	}
	var partials [4]core.QM31
	for k, column := range composition {
		if len(column) != 1 {
			return fmt.Errorf("%w: composition column %d has %d samples, expected 1", ErrShape, k, len(column))
		}
		partials[k] = column[0]
	}
	sampledEval := core.FromPartialEvals(partials)

	eval, err := EvalCompositionPolyAtPoint(proof.CompositionPoly, oodsPoint)
	if err != nil {
		return err
	}
	if !eval.Equal(sampledEval) {
		return fmt.Errorf("%w", ErrOodsMismatch)
	}
	return nil
}
