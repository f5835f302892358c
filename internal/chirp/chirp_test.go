package chirp

import (
	"math"
	"testing"
)

// TestUpDownFreqOppositeSign checks the operationally meaningful form of
// the up/down-chirp conjugate relationship: the instantaneous frequency of
// the up-chirp is the negation of the down-chirp's, which is what the
// sliding-correlation detectors in internal/demod actually rely on. The
// raw sample values differ by the shared (1+1j) scaling constant baked
// into both chirps by the reference formula, so they are not literal
// complex conjugates of one another; see DESIGN.md for the full
// discussion.
func TestUpDownFreqOppositeSign(t *testing.T) {
	const sps = 8192
	r := Build(sps, 125000, 1e6, 125000.0/128)

	for i := 0; i < sps-1; i++ {
		if math.Abs(r.UpFreq[i]+r.DownFreq[i]) > 1e-4 {
			t.Fatalf("index %d: UpFreq=%v DownFreq=%v, want approx opposite sign", i, r.UpFreq[i], r.DownFreq[i])
		}
	}
}

func TestBuildLength(t *testing.T) {
	r := Build(1024, 125000, 1e6, 125000.0/128)
	if len(r.Down) != 1024 || len(r.Up) != 1024 || len(r.DownFreq) != 1024 || len(r.UpFreq) != 1024 {
		t.Fatalf("expected all vectors to have length 1024, got %d/%d/%d/%d",
			len(r.Down), len(r.Up), len(r.DownFreq), len(r.UpFreq))
	}
}
