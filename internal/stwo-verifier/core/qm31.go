package core

import "fmt"

// qm31R is the irreducible element R = 2 + i defining the extension
// QM31 = CM31[u]/(u^2 - R).
var qm31R = CM31{Real: 2, Imag: 1}

// QM31 is an element of the degree-4 extension of M31 (the secure field),
// stored as First + Second*u.
type QM31 struct {
	First  CM31
	Second CM31
}

// NewQM31 creates a secure field element from its four base coordinates
// (a, b, c, d) = (a + b*i) + (c + d*i)*u.
func NewQM31(a, b, c, d M31) QM31 {
	return QM31{First: CM31{Real: a, Imag: b}, Second: CM31{Real: c, Imag: d}}
}

// QM31FromM31 embeds a base field element as ((a, 0), (0, 0)).
func QM31FromM31(a M31) QM31 {
	return QM31{First: CM31FromM31(a)}
}

// QM31FromCM31 embeds a CM31 element in the first component.
func QM31FromCM31(a CM31) QM31 {
	return QM31{First: a}
}

// QM31Zero returns the additive identity.
func QM31Zero() QM31 {
	return QM31{}
}

// QM31One returns the multiplicative identity.
func QM31One() QM31 {
	return QM31{First: CM31One()}
}

// ToM31s returns the four base field coordinates (a, b, c, d).
func (a QM31) ToM31s() [4]M31 {
	return [4]M31{a.First.Real, a.First.Imag, a.Second.Real, a.Second.Imag}
}

// Add returns a + b.
func (a QM31) Add(b QM31) QM31 {
	return QM31{First: a.First.Add(b.First), Second: a.Second.Add(b.Second)}
}

// Sub returns a - b.
func (a QM31) Sub(b QM31) QM31 {
	return QM31{First: a.First.Sub(b.First), Second: a.Second.Sub(b.Second)}
}

// Neg returns -a.
func (a QM31) Neg() QM31 {
	return QM31{First: a.First.Neg(), Second: a.Second.Neg()}
}

// Mul returns a * b.
// (a + b*u)(c + d*u) = (ac + R*bd) + (ad + bc)*u with R = 2 + i.
func (a QM31) Mul(b QM31) QM31 {
	return QM31{
		First:  a.First.Mul(b.First).Add(qm31R.Mul(a.Second.Mul(b.Second))),
		Second: a.First.Mul(b.Second).Add(a.Second.Mul(b.First)),
	}
}

// Square returns a^2.
func (a QM31) Square() QM31 {
	return a.Mul(a)
}

// MulM31 returns a scaled by a base field element.
func (a QM31) MulM31(b M31) QM31 {
	return QM31{First: a.First.MulM31(b), Second: a.Second.MulM31(b)}
}

// MulCM31 returns a scaled by a CM31 element.
func (a QM31) MulCM31(b CM31) QM31 {
	return QM31{First: a.First.Mul(b), Second: a.Second.Mul(b)}
}

// ComplexConjugate maps a + b*u to a - b*u, the order-two field
// automorphism that fixes CM31. Together with the
// conjugate of a sample point it defines the conjugate line used by the
// DEEP quotients.
func (a QM31) ComplexConjugate() QM31 {
	return QM31{First: a.First, Second: a.Second.Neg()}
}

// IsZero reports whether the element is zero.
func (a QM31) IsZero() bool {
	return a.First.IsZero() && a.Second.IsZero()
}

// Equal reports whether two elements are equal.
func (a QM31) Equal(b QM31) bool {
	return a.First.Equal(b.First) && a.Second.Equal(b.Second)
}

// Inverse returns a^(-1) = (a - b*u) * (a^2 - R*b^2)^(-1) for an element
// a + b*u. Fails on zero input.
func (a QM31) Inverse() (QM31, error) {
	if a.IsZero() {
		return QM31{}, ErrZeroInverse
	}
	denom := a.First.Square().Sub(qm31R.Mul(a.Second.Square()))
	denomInv, err := denom.Inverse()
	if err != nil {
		return QM31{}, err
	}
	return QM31{First: a.First.Mul(denomInv), Second: a.Second.Neg().Mul(denomInv)}, nil
}

// Pow returns a^exp by square-and-multiply.
func (a QM31) Pow(exp uint64) QM31 {
	result := QM31One()
	base := a
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Square()
		exp >>= 1
	}
	return result
}

// FromPartialEvals recomposes a secure field element from the four partial
// evaluations of its coordinate polynomials:
// e0 + i*e1 + u*e2 + iu*e3.
func FromPartialEvals(evals [4]QM31) QM31 {
	res := evals[0]
	res = res.Add(evals[1].Mul(NewQM31(0, 1, 0, 0)))
	res = res.Add(evals[2].Mul(NewQM31(0, 0, 1, 0)))
	res = res.Add(evals[3].Mul(NewQM31(0, 0, 0, 1)))
	return res
}

// String returns the representation "(a + bi) + (c + di)u".
func (a QM31) String() string {
	return fmt.Sprintf("(%s) + (%s)u", a.First, a.Second)
}
