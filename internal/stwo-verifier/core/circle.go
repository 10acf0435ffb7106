package core

import (
	"fmt"

	"github.com/holiman/uint256"
)

// CircleOrderLog is the log2 order of the full circle group over M31.
const CircleOrderLog = 31

// CirclePointIndex addresses a point on the circle group as a multiple of
// the full-order generator. Arithmetic is modulo 2^31.
type CirclePointIndex uint32

const circleIndexMask = (uint32(1) << CircleOrderLog) - 1

// NewCirclePointIndex wraps a raw value into the index group.
func NewCirclePointIndex(v uint32) CirclePointIndex {
	return CirclePointIndex(v & circleIndexMask)
}

// SubgroupGen returns the index generating the subgroup of size 2^logSize.
func SubgroupGen(logSize uint32) CirclePointIndex {
	return NewCirclePointIndex(1 << (CircleOrderLog - logSize))
}

// Add returns a + b mod 2^31.
func (a CirclePointIndex) Add(b CirclePointIndex) CirclePointIndex {
	return NewCirclePointIndex(uint32(a) + uint32(b))
}

// Sub returns a - b mod 2^31.
func (a CirclePointIndex) Sub(b CirclePointIndex) CirclePointIndex {
	return NewCirclePointIndex(uint32(a) - uint32(b))
}

// Neg returns -a mod 2^31.
func (a CirclePointIndex) Neg() CirclePointIndex {
	return NewCirclePointIndex(-uint32(a))
}

// Mul returns a scaled by an unsigned factor mod 2^31.
func (a CirclePointIndex) Mul(scalar uint32) CirclePointIndex {
	return NewCirclePointIndex(uint32(a) * scalar)
}

// MulSigned returns a scaled by a signed factor mod 2^31, as used for the
// signed mask offsets.
func (a CirclePointIndex) MulSigned(scalar int32) CirclePointIndex {
	if scalar < 0 {
		return a.Mul(uint32(-int64(scalar))).Neg()
	}
	return a.Mul(uint32(scalar))
}

// CirclePoint is a point (x, y) with x^2 + y^2 = 1 over M31. The circle
// group is cyclic of order 2^31.
type CirclePoint struct {
	X M31
	Y M31
}

// Generator is the fixed full-order generator of the M31 circle group.
func Generator() CirclePoint {
	return CirclePoint{X: 2, Y: 1268011823}
}

// CircleIdentity returns the group identity (1, 0).
func CircleIdentity() CirclePoint {
	return CirclePoint{X: 1}
}

// IsOnCircle checks the defining equation x^2 + y^2 = 1.
func (p CirclePoint) IsOnCircle() bool {
	return p.X.Square().Add(p.Y.Square()).Equal(1)
}

// Add applies the circle group law:
// (x1, y1) + (x2, y2) = (x1*x2 - y1*y2, x1*y2 + y1*x2).
func (p CirclePoint) Add(q CirclePoint) CirclePoint {
	return CirclePoint{
		X: p.X.Mul(q.X).Sub(p.Y.Mul(q.Y)),
		Y: p.X.Mul(q.Y).Add(p.Y.Mul(q.X)),
	}
}

// Neg returns the inverse (conjugate) point (x, -y).
func (p CirclePoint) Neg() CirclePoint {
	return CirclePoint{X: p.X, Y: p.Y.Neg()}
}

// Double returns 2p.
func (p CirclePoint) Double() CirclePoint {
	return p.Add(p)
}

// DoubleX applies the doubling map on x-coordinates: pi(x) = 2x^2 - 1.
func DoubleX(x M31) M31 {
	return x.Square().Double().Sub(1)
}

// DoubleXQM31 applies the doubling map pi(x) = 2x^2 - 1 in the secure
// field.
func DoubleXQM31(x QM31) QM31 {
	sq := x.Square()
	return sq.Add(sq).Sub(QM31One())
}

// MulScalar returns scalar * p by double-and-add over the bit expansion of
// a 256-bit scalar.
func (p CirclePoint) MulScalar(scalar *uint256.Int) CirclePoint {
	result := CircleIdentity()
	cur := p
	s := new(uint256.Int).Set(scalar)
	for !s.IsZero() {
		if s[0]&1 == 1 {
			result = result.Add(cur)
		}
		cur = cur.Double()
		s.Rsh(s, 1)
	}
	return result
}

// Equal reports whether two points are equal.
func (p CirclePoint) Equal(q CirclePoint) bool {
	return p.X.Equal(q.X) && p.Y.Equal(q.Y)
}

// String returns the representation "(x, y)".
func (p CirclePoint) String() string {
	return fmt.Sprintf("(%s, %s)", p.X, p.Y)
}

// ToPoint materializes the group element addressed by the index.
func (a CirclePointIndex) ToPoint() CirclePoint {
	return Generator().MulScalar(uint256.NewInt(uint64(a)))
}

// SecureCirclePoint is a circle point with coordinates lifted to the secure
// field, as used for out-of-domain sample points.
type SecureCirclePoint struct {
	X QM31
	Y QM31
}

// LiftPoint embeds a base field circle point into the secure field.
func LiftPoint(p CirclePoint) SecureCirclePoint {
	return SecureCirclePoint{X: QM31FromM31(p.X), Y: QM31FromM31(p.Y)}
}

// Add applies the group law in secure field coordinates.
func (p SecureCirclePoint) Add(q SecureCirclePoint) SecureCirclePoint {
	return SecureCirclePoint{
		X: p.X.Mul(q.X).Sub(p.Y.Mul(q.Y)),
		Y: p.X.Mul(q.Y).Add(p.Y.Mul(q.X)),
	}
}

// AddBase translates the point by a base field circle point.
func (p SecureCirclePoint) AddBase(q CirclePoint) SecureCirclePoint {
	return p.Add(LiftPoint(q))
}

// Neg returns the inverse point.
func (p SecureCirclePoint) Neg() SecureCirclePoint {
	return SecureCirclePoint{X: p.X, Y: p.Y.Neg()}
}

// ComplexConjugate conjugates both coordinates. The pair (p, conj(p)) spans
// the conjugate line the DEEP quotients vanish on.
func (p SecureCirclePoint) ComplexConjugate() SecureCirclePoint {
	return SecureCirclePoint{X: p.X.ComplexConjugate(), Y: p.Y.ComplexConjugate()}
}

// Equal reports whether two points are equal.
func (p SecureCirclePoint) Equal(q SecureCirclePoint) bool {
	return p.X.Equal(q.X) && p.Y.Equal(q.Y)
}
