package core

// MaxCircleDomainLogSize caps evaluation domains at 2^30 points. Larger
// domains cannot exist: the group has order 2^31 and a domain is a union of
// a half coset and its conjugate.
const MaxCircleDomainLogSize = 30

// CircleDomain is an evaluation domain of size 2^(k+1) given by a half
// coset H of size 2^k: it enumerates H followed by -H.
type CircleDomain struct {
	HalfCoset Coset
}

// NewCircleDomain creates the domain defined by the given half coset.
func NewCircleDomain(halfCoset Coset) CircleDomain {
	return CircleDomain{HalfCoset: halfCoset}
}

// LogSize returns the log2 size of the domain.
func (d CircleDomain) LogSize() uint32 {
	return d.HalfCoset.LogSize + 1
}

// Size returns the number of points in the domain.
func (d CircleDomain) Size() int {
	return 1 << d.LogSize()
}

// IndexAt returns the index of the i-th domain point: the half coset for
// the first half, its negation for the second.
func (d CircleDomain) IndexAt(i int) CirclePointIndex {
	half := d.HalfCoset.Size()
	if i < half {
		return d.HalfCoset.IndexAt(i)
	}
	return d.HalfCoset.IndexAt(i - half).Neg()
}

// At materializes the i-th domain point.
func (d CircleDomain) At(i int) CirclePoint {
	half := d.HalfCoset.Size()
	if i < half {
		return d.HalfCoset.At(i)
	}
	return d.HalfCoset.At(i - half).Neg()
}

// IsCanonic reports whether the domain is a canonic trace domain:
// 4 * initialIndex = stepIndex on the half coset.
func (d CircleDomain) IsCanonic() bool {
	return d.HalfCoset.InitialIndex.Mul(4) == d.HalfCoset.StepIndex
}

// Split breaks the domain into 2^logParts translates of a subdomain of
// log size (logSize - logParts). It returns the subdomain and the offset
// indices along the original step.
func (d CircleDomain) Split(logParts uint32) (CircleDomain, []CirclePointIndex) {
	sub := NewCircleDomain(NewCosetWithStep(
		d.HalfCoset.InitialIndex,
		d.HalfCoset.StepIndex.Mul(1<<logParts),
		d.HalfCoset.LogSize-logParts,
	))
	offsets := make([]CirclePointIndex, 1<<logParts)
	for i := range offsets {
		offsets[i] = d.HalfCoset.StepIndex.Mul(uint32(i))
	}
	return sub, offsets
}

// CanonicDomain returns the canonic evaluation domain of the given log
// size.
func CanonicDomain(logSize uint32) CircleDomain {
	return NewCanonicCoset(logSize).CircleDomain()
}

// LineDomain is the x-coordinate projection of a coset, the univariate
// domain the inner FRI layers evaluate on.
type LineDomain struct {
	Coset Coset
}

// NewLineDomain creates the line domain over the given coset.
func NewLineDomain(coset Coset) LineDomain {
	return LineDomain{Coset: coset}
}

// LogSize returns the log2 size of the domain.
func (d LineDomain) LogSize() uint32 {
	return d.Coset.LogSize
}

// Size returns the number of points in the domain.
func (d LineDomain) Size() int {
	return d.Coset.Size()
}

// At returns the x-coordinate of the i-th coset point.
func (d LineDomain) At(i int) M31 {
	return d.Coset.At(i).X
}

// Double maps the domain through the doubling map, halving its size.
func (d LineDomain) Double() LineDomain {
	return LineDomain{Coset: d.Coset.Double()}
}
