package core

import (
	"errors"
	"testing"
)

// TestCM31Arithmetic tests the quadratic extension operations.
func TestCM31Arithmetic(t *testing.T) {
	t.Run("ISquaredIsMinusOne", func(t *testing.T) {
		i := NewCM31(0, 1)
		if got := i.Mul(i); !got.Equal(CM31FromM31(M31(0).Sub(1))) {
			t.Errorf("i^2 = %v, want -1", got)
		}
	})

	t.Run("Mul", func(t *testing.T) {
		// (1 + 2i)(3 + 4i) = 3 - 8 + (4 + 6)i = -5 + 10i
		a := NewCM31(1, 2)
		b := NewCM31(3, 4)
		want := NewCM31(M31(0).Sub(5), 10)
		if got := a.Mul(b); !got.Equal(want) {
			t.Errorf("(1+2i)(3+4i) = %v, want %v", got, want)
		}
	})

	t.Run("InverseRoundTrip", func(t *testing.T) {
		values := []CM31{
			NewCM31(1, 0),
			NewCM31(0, 1),
			NewCM31(1, 2),
			NewCM31(123456, 7891011),
			NewCM31(M31(Modulus-1), M31(Modulus-2)),
		}
		for _, v := range values {
			inv, err := v.Inverse()
			if err != nil {
				t.Fatalf("Inverse(%v) failed: %v", v, err)
			}
			if got := v.Mul(inv); !got.Equal(CM31One()) {
				t.Errorf("%v * inverse = %v, want 1", v, got)
			}
		}
	})

	t.Run("InverseZero", func(t *testing.T) {
		if _, err := CM31Zero().Inverse(); !errors.Is(err, ErrZeroInverse) {
			t.Errorf("expected ErrZeroInverse, got %v", err)
		}
	})
}

// TestQM31Arithmetic tests the secure field operations.
func TestQM31Arithmetic(t *testing.T) {
	t.Run("USquaredIsR", func(t *testing.T) {
		u := NewQM31(0, 0, 1, 0)
		want := QM31{First: NewCM31(2, 1)}
		if got := u.Mul(u); !got.Equal(want) {
			t.Errorf("u^2 = %v, want 2+i", got)
		}
	})

	t.Run("InverseRoundTrip", func(t *testing.T) {
		a := NewQM31(1, 2, 3, 4)
		inv, err := a.Inverse()
		if err != nil {
			t.Fatalf("Inverse failed: %v", err)
		}
		if got := a.Mul(inv); !got.Equal(QM31One()) {
			t.Errorf("(1,2,3,4) * inverse = %v, want (1,0,0,0)", got)
		}
	})

	t.Run("InverseZero", func(t *testing.T) {
		if _, err := QM31Zero().Inverse(); !errors.Is(err, ErrZeroInverse) {
			t.Errorf("expected ErrZeroInverse, got %v", err)
		}
	})

	t.Run("MulM31MatchesEmbeddedMul", func(t *testing.T) {
		a := NewQM31(5, 6, 7, 8)
		s := M31(991)
		if got, want := a.MulM31(s), a.Mul(QM31FromM31(s)); !got.Equal(want) {
			t.Errorf("MulM31 = %v, want %v", got, want)
		}
	})

	t.Run("CoordsRoundTrip", func(t *testing.T) {
		a := NewQM31(10, 20, 30, 40)
		coords := a.ToM31s()
		if got := NewQM31(coords[0], coords[1], coords[2], coords[3]); !got.Equal(a) {
			t.Errorf("coordinate round trip = %v, want %v", got, a)
		}
	})

	t.Run("PowMatchesRepeatedMul", func(t *testing.T) {
		a := NewQM31(3, 1, 4, 1)
		want := QM31One()
		for i := 0; i < 7; i++ {
			want = want.Mul(a)
		}
		if got := a.Pow(7); !got.Equal(want) {
			t.Errorf("Pow(7) = %v, want %v", got, want)
		}
	})
}

// TestBatchInverseQM31 tests Montgomery's trick in the secure field,
// including the chunked parallel variant.
func TestBatchInverseQM31(t *testing.T) {
	elements := make([]QM31, 2048)
	for i := range elements {
		elements[i] = NewQM31(M31(i+1), M31(2*i+3), 5, 7)
	}

	t.Run("RoundTrip", func(t *testing.T) {
		inverses, err := BatchInverseQM31(elements[:64])
		if err != nil {
			t.Fatalf("BatchInverseQM31 failed: %v", err)
		}
		for i := range inverses {
			if got := elements[i].Mul(inverses[i]); !got.Equal(QM31One()) {
				t.Fatalf("element %d: product = %v, want 1", i, got)
			}
		}
	})

	t.Run("ParallelMatchesSequential", func(t *testing.T) {
		sequential, err := BatchInverseQM31(elements)
		if err != nil {
			t.Fatalf("sequential failed: %v", err)
		}
		parallel, err := ParallelBatchInverseQM31(elements, 4)
		if err != nil {
			t.Fatalf("parallel failed: %v", err)
		}
		for i := range sequential {
			if !sequential[i].Equal(parallel[i]) {
				t.Fatalf("element %d diverged between variants", i)
			}
		}
	})

	t.Run("ZeroElement", func(t *testing.T) {
		if _, err := BatchInverseQM31([]QM31{QM31One(), {}}); !errors.Is(err, ErrZeroInverse) {
			t.Errorf("got %v, want ErrZeroInverse", err)
		}
	})
}

// TestFromPartialEvals tests the basis recomposition of a secure field
// element from its four coordinate evaluations.
func TestFromPartialEvals(t *testing.T) {
	t.Run("BaseCoordinates", func(t *testing.T) {
		evals := [4]QM31{
			QM31FromM31(7),
			QM31FromM31(11),
			QM31FromM31(13),
			QM31FromM31(17),
		}
		if got := FromPartialEvals(evals); !got.Equal(NewQM31(7, 11, 13, 17)) {
			t.Errorf("FromPartialEvals = %v, want (7,11,13,17)", got)
		}
	})

	t.Run("Linearity", func(t *testing.T) {
		a := NewQM31(1, 2, 3, 4)
		b := NewQM31(5, 6, 7, 8)
		got := FromPartialEvals([4]QM31{a, b, QM31Zero(), QM31Zero()})
		want := a.Add(b.Mul(NewQM31(0, 1, 0, 0)))
		if !got.Equal(want) {
			t.Errorf("FromPartialEvals = %v, want %v", got, want)
		}
	})
}

// TestComplexConjugate tests that conjugation fixes embedded base field
// values and is an involution.
func TestComplexConjugate(t *testing.T) {
	t.Run("FixesReals", func(t *testing.T) {
		a := QM31FromM31(12345)
		if got := a.ComplexConjugate(); !got.Equal(a) {
			t.Errorf("conj of embedded base element changed: %v", got)
		}
	})

	t.Run("Involution", func(t *testing.T) {
		a := NewQM31(1, 2, 3, 4)
		if got := a.ComplexConjugate().ComplexConjugate(); !got.Equal(a) {
			t.Errorf("double conjugate = %v, want %v", got, a)
		}
	})
}
