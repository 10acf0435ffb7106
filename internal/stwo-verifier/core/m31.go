// Package core provides the field tower (M31, CM31, QM31) and the circle
// group primitives used by the STWO verification pipeline.
package core

import (
	"errors"
	"fmt"
)

// Modulus is the Mersenne prime P = 2^31 - 1 underlying the whole tower.
const Modulus uint32 = (1 << 31) - 1

// ErrZeroInverse is returned when a zero element is inverted.
var ErrZeroInverse = errors.New("cannot invert zero element")

// M31 is an element of the Mersenne prime field of order 2^31 - 1.
// The stored value is always fully reduced, i.e. in [0, P).
type M31 uint32

// NewM31 creates a field element from an arbitrary uint64 value,
// reducing it modulo P.
func NewM31(v uint64) M31 {
	return M31(fullReduce(v))
}

// partialReduce reduces a value known to be below 2P into [0, P).
func partialReduce(v uint32) uint32 {
	if v >= Modulus {
		return v - Modulus
	}
	return v
}

// fullReduce reduces a value known to be below P^2 into [0, P) using the
// folded-shift identity for Mersenne primes.
func fullReduce(v uint64) uint32 {
	s1 := (v >> 31) + v + 1
	s2 := (s1 >> 31) + v
	return uint32(s2 & uint64(Modulus))
}

// Add returns a + b mod P.
func (a M31) Add(b M31) M31 {
	return M31(partialReduce(uint32(a) + uint32(b)))
}

// Sub returns a - b mod P.
func (a M31) Sub(b M31) M31 {
	return M31(partialReduce(uint32(a) + Modulus - uint32(b)))
}

// Neg returns -a mod P.
func (a M31) Neg() M31 {
	return M31(partialReduce(Modulus - uint32(a)))
}

// Mul returns a * b mod P.
func (a M31) Mul(b M31) M31 {
	return M31(fullReduce(uint64(a) * uint64(b)))
}

// Square returns a^2 mod P.
func (a M31) Square() M31 {
	return a.Mul(a)
}

// Double returns 2a mod P.
func (a M31) Double() M31 {
	return a.Add(a)
}

// IsZero reports whether the element is zero.
func (a M31) IsZero() bool {
	return a == 0
}

// Equal reports whether two elements are equal.
func (a M31) Equal(b M31) bool {
	return a == b
}

// sqn returns a^(2^n) by repeated squaring.
func (a M31) sqn(n int) M31 {
	for i := 0; i < n; i++ {
		a = a.Square()
	}
	return a
}

// Inverse returns a^(-1) = a^(P-2) via a fixed addition chain for the
// exponent 2147483645 = 4*(2^29 - 1) + 1. Fails on zero input.
func (a M31) Inverse() (M31, error) {
	if a.IsZero() {
		return 0, ErrZeroInverse
	}
	// a_k denotes a^(2^k - 1).
	a2 := a.Square().Mul(a)
	a4 := a2.sqn(2).Mul(a2)
	a5 := a4.Square().Mul(a)
	a9 := a5.sqn(4).Mul(a4)
	a10 := a5.sqn(5).Mul(a5)
	a20 := a10.sqn(10).Mul(a10)
	a29 := a20.sqn(9).Mul(a9)
	return a29.sqn(2).Mul(a), nil
}

// Pow returns a^exp by square-and-multiply.
func (a M31) Pow(exp uint64) M31 {
	result := M31(1)
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

// String returns the decimal representation of the element.
func (a M31) String() string {
	return fmt.Sprintf("%d", uint32(a))
}

// m31InvTwo is the inverse of 2, used by the FRI folding butterfly.
const m31InvTwo M31 = 1 << 30

// InvTwo returns 2^(-1) mod P.
func InvTwo() M31 {
	return m31InvTwo
}
