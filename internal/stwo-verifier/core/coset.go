package core

import "fmt"

// Coset is the set {initial + k*step : k in [0, 2^logSize)} of circle
// points, addressed by indices. Initial and step points are cached; an
// element lookup adds the cached initial point to the point of index i*step.
type Coset struct {
	InitialIndex CirclePointIndex
	StepIndex    CirclePointIndex
	LogSize      uint32

	initial CirclePoint
	step    CirclePoint
}

// NewCoset creates the coset of size 2^logSize whose step generates the
// matching subgroup.
func NewCoset(initialIndex CirclePointIndex, logSize uint32) Coset {
	return NewCosetWithStep(initialIndex, SubgroupGen(logSize), logSize)
}

// NewCosetWithStep creates a coset with an explicit step index.
func NewCosetWithStep(initialIndex, stepIndex CirclePointIndex, logSize uint32) Coset {
	return Coset{
		InitialIndex: initialIndex,
		StepIndex:    stepIndex,
		LogSize:      logSize,
		initial:      initialIndex.ToPoint(),
		step:         stepIndex.ToPoint(),
	}
}

// Subgroup returns the subgroup of size 2^logSize as a coset.
func Subgroup(logSize uint32) Coset {
	return NewCoset(0, logSize)
}

// Odds returns the coset of size 2^logSize with initial index the generator
// of the 2^(logSize+1) subgroup, i.e. the odd multiples of that generator.
func Odds(logSize uint32) Coset {
	return NewCoset(SubgroupGen(logSize+1), logSize)
}

// HalfOdds returns the standard evaluation coset of size 2^logSize: initial
// index is the generator of the 2^(logSize+2) subgroup.
func HalfOdds(logSize uint32) Coset {
	return NewCoset(SubgroupGen(logSize+2), logSize)
}

// Size returns the number of points in the coset.
func (c Coset) Size() int {
	return 1 << c.LogSize
}

// IndexAt returns the index of the i-th coset element.
func (c Coset) IndexAt(i int) CirclePointIndex {
	return c.InitialIndex.Add(c.StepIndex.Mul(uint32(i)))
}

// At materializes the i-th coset element.
func (c Coset) At(i int) CirclePoint {
	return c.initial.Add(c.StepIndex.Mul(uint32(i)).ToPoint())
}

// Shift translates the coset by the given index.
func (c Coset) Shift(offset CirclePointIndex) Coset {
	return NewCosetWithStep(c.InitialIndex.Add(offset), c.StepIndex, c.LogSize)
}

// Conjugate returns the coset of the negated points.
func (c Coset) Conjugate() Coset {
	return NewCosetWithStep(c.InitialIndex.Neg(), c.StepIndex.Neg(), c.LogSize)
}

// Double maps every element through the doubling map, halving the size.
func (c Coset) Double() Coset {
	if c.LogSize == 0 {
		panic("cannot double a singleton coset")
	}
	return NewCosetWithStep(c.InitialIndex.Add(c.InitialIndex), c.StepIndex.Add(c.StepIndex), c.LogSize-1)
}

// String returns a compact description of the coset.
func (c Coset) String() string {
	return fmt.Sprintf("coset{initial: %d, step: %d, logSize: %d}", c.InitialIndex, c.StepIndex, c.LogSize)
}

// CanonicCoset is the standard trace domain of a given log size: the
// half-odds coset of half the size defines it, and the step of the full
// size subgroup strides through the trace rows.
type CanonicCoset struct {
	halfCoset Coset
}

// NewCanonicCoset creates the canonic coset of size 2^logSize.
func NewCanonicCoset(logSize uint32) CanonicCoset {
	if logSize == 0 {
		panic("canonic coset requires log size >= 1")
	}
	return CanonicCoset{halfCoset: HalfOdds(logSize - 1)}
}

// LogSize returns the log2 size of the full domain.
func (c CanonicCoset) LogSize() uint32 {
	return c.halfCoset.LogSize + 1
}

// StepIndex returns the index of the subgroup generator striding the trace.
func (c CanonicCoset) StepIndex() CirclePointIndex {
	return SubgroupGen(c.LogSize())
}

// Step returns the subgroup generator striding the trace.
func (c CanonicCoset) Step() CirclePoint {
	return c.StepIndex().ToPoint()
}

// HalfCoset returns the defining half coset.
func (c CanonicCoset) HalfCoset() Coset {
	return c.halfCoset
}

// CircleDomain returns the canonic evaluation domain.
func (c CanonicCoset) CircleDomain() CircleDomain {
	return NewCircleDomain(c.halfCoset)
}
