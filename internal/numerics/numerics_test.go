package numerics

import (
	"math"
	"testing"
)

func TestCrossCorrelateSelf(t *testing.T) {
	x := []float64{0.1, 0.4, -0.2, 0.9, 1.3, -0.5, 0.25, 0.8}
	got := CrossCorrelate(x, x)
	if math.Abs(got-1) > 1e-5 {
		t.Errorf("CrossCorrelate(x, x) = %v, want 1 +/- 1e-5", got)
	}
}

func TestNibbleReverseRoundTrip(t *testing.T) {
	for b := 0; b < 256; b++ {
		got := NibbleReverse(NibbleReverse(uint8(b)))
		if got != uint8(b) {
			t.Errorf("NibbleReverse(NibbleReverse(%d)) = %d, want %d", b, got, b)
		}
	}
}

func TestReverseBitsRoundTrip(t *testing.T) {
	for b := 0; b < 256; b++ {
		got := ReverseBits(ReverseBits(uint8(b)))
		if got != uint8(b) {
			t.Errorf("ReverseBits(ReverseBits(%d)) = %d, want %d", b, got, b)
		}
	}
}

func TestReverseBitsKnownValue(t *testing.T) {
	// 0b11010010 -> 0b01001011
	got := ReverseBits(0b11010010)
	want := uint8(0b01001011)
	if got != want {
		t.Errorf("ReverseBits(0b11010010) = %08b, want %08b", got, want)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want float64
	}{
		{-1, 0, 20, 0},
		{100, 0, 20, 20},
		{5, 0, 20, 5},
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestRotateLeft(t *testing.T) {
	// Rotating a one-hot pattern within an 8-bit field should be a pure
	// cyclic shift.
	v := uint32(0b00000001)
	got := RotateLeft(v, 3, 8)
	want := uint32(0b00001000)
	if got != want {
		t.Errorf("RotateLeft(1, 3, 8) = %08b, want %08b", got, want)
	}
}

func TestCorrelationMatchesCrossCorrelate(t *testing.T) {
	a := []float64{0.1, 0.4, -0.2, 0.9, 1.3, -0.5, 0.25, 0.8}
	b := []float64{-0.3, 0.2, 0.1, -0.6, 0.4, 0.9, -1.1, 0.05}

	want := CrossCorrelate(a, b)
	got := Correlation(a, b)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Correlation(a, b) = %v, want %v (CrossCorrelate's gonum-backed equivalent)", got, want)
	}
}

func TestInstantaneousFrequencyTailDuplication(t *testing.T) {
	in := make([]complex128, 8)
	for i := range in {
		in[i] = Expj(float64(i) * 0.3)
	}
	out := make([]float64, len(in))
	InstantaneousFrequency(in, out)
	if out[len(out)-1] != out[len(out)-2] {
		t.Errorf("last entry %v does not equal penultimate %v", out[len(out)-1], out[len(out)-2])
	}
}
