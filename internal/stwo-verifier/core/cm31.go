package core

import "fmt"

// CM31 is an element of the quadratic extension M31[i]/(i^2 + 1),
// stored as Real + Imag*i.
type CM31 struct {
	Real M31
	Imag M31
}

// NewCM31 creates an extension element from its two base coordinates.
func NewCM31(real, imag M31) CM31 {
	return CM31{Real: real, Imag: imag}
}

// CM31FromM31 embeds a base field element as (a, 0).
func CM31FromM31(a M31) CM31 {
	return CM31{Real: a}
}

// CM31Zero returns the additive identity.
func CM31Zero() CM31 {
	return CM31{}
}

// CM31One returns the multiplicative identity.
func CM31One() CM31 {
	return CM31{Real: 1}
}

// Add returns a + b.
func (a CM31) Add(b CM31) CM31 {
	return CM31{Real: a.Real.Add(b.Real), Imag: a.Imag.Add(b.Imag)}
}

// Sub returns a - b.
func (a CM31) Sub(b CM31) CM31 {
	return CM31{Real: a.Real.Sub(b.Real), Imag: a.Imag.Sub(b.Imag)}
}

// Neg returns -a.
func (a CM31) Neg() CM31 {
	return CM31{Real: a.Real.Neg(), Imag: a.Imag.Neg()}
}

// Mul returns a * b.
// (a0 + a1*i)(b0 + b1*i) = (a0*b0 - a1*b1) + (a0*b1 + a1*b0)*i
func (a CM31) Mul(b CM31) CM31 {
	return CM31{
		Real: a.Real.Mul(b.Real).Sub(a.Imag.Mul(b.Imag)),
		Imag: a.Real.Mul(b.Imag).Add(a.Imag.Mul(b.Real)),
	}
}

// Square returns a^2.
func (a CM31) Square() CM31 {
	return a.Mul(a)
}

// MulM31 returns a scaled by a base field element.
func (a CM31) MulM31(b M31) CM31 {
	return CM31{Real: a.Real.Mul(b), Imag: a.Imag.Mul(b)}
}

// Conjugate returns the complex conjugate (a0, -a1).
func (a CM31) Conjugate() CM31 {
	return CM31{Real: a.Real, Imag: a.Imag.Neg()}
}

// IsZero reports whether the element is zero.
func (a CM31) IsZero() bool {
	return a.Real.IsZero() && a.Imag.IsZero()
}

// Equal reports whether two elements are equal.
func (a CM31) Equal(b CM31) bool {
	return a.Real == b.Real && a.Imag == b.Imag
}

// Inverse returns a^(-1) = conj(a) / (a0^2 + a1^2). Fails on zero input.
func (a CM31) Inverse() (CM31, error) {
	if a.IsZero() {
		return CM31{}, ErrZeroInverse
	}
	norm := a.Real.Square().Add(a.Imag.Square())
	normInv, err := norm.Inverse()
	if err != nil {
		return CM31{}, err
	}
	return a.Conjugate().MulM31(normInv), nil
}

// String returns the representation "a0 + a1i".
func (a CM31) String() string {
	return fmt.Sprintf("%s + %si", a.Real, a.Imag)
}
