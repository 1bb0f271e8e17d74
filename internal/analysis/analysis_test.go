package analysis

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestAmplitudes(t *testing.T) {
	iq := []int8{3, 4, 0, 0, -6, 8}

	got := Amplitudes(iq)
	want := []float64{5, 0, 10}

	if len(got) != len(want) {
		t.Fatalf("got %d amplitudes, want %d", len(got), len(want))
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("amplitude[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestAmplitudes_OddLength(t *testing.T) {
	// A dangling I sample counts as a zero-Q pair.
	got := Amplitudes([]int8{5})
	if len(got) != 1 || !almostEqual(got[0], 5) {
		t.Errorf("Amplitudes([5]) = %v, want [5]", got)
	}
}

func TestAmplitudes_Empty(t *testing.T) {
	if got := Amplitudes(nil); got != nil {
		t.Errorf("Amplitudes(nil) = %v, want nil", got)
	}
}

func TestPhases(t *testing.T) {
	iq := []int8{1, 0, 0, 1, -1, 0, 0, -1}

	got := Phases(iq)
	want := []float64{0, math.Pi / 2, math.Pi, -math.Pi / 2}

	if len(got) != len(want) {
		t.Fatalf("got %d phases, want %d", len(got), len(want))
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("phase[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestUnwrapPhases(t *testing.T) {
	// A track crossing the -π/π boundary must come out continuous.
	in := []float64{3.0, -3.0, -2.8}
	got := UnwrapPhases(in)

	want := []float64{3.0, -3.0 + 2*math.Pi, -2.8 + 2*math.Pi}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("unwrapped[%d] = %f, want %f", i, got[i], want[i])
		}
	}

	for i := 1; i < len(got); i++ {
		if math.Abs(got[i]-got[i-1]) > math.Pi {
			t.Errorf("discontinuity between %d and %d: %f -> %f", i-1, i, got[i-1], got[i])
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})

	if !almostEqual(s.Mean, 5) {
		t.Errorf("Mean = %f, want 5", s.Mean)
	}
	if s.Min != 2 || s.Max != 9 {
		t.Errorf("Min/Max = %f/%f, want 2/9", s.Min, s.Max)
	}
	// Sample standard deviation of this classic sequence.
	if want := math.Sqrt(32.0 / 7.0); !almostEqual(s.StdDev, want) {
		t.Errorf("StdDev = %f, want %f", s.StdDev, want)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if s := Summarize(nil); s != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero", s)
	}
}

func TestAmplitudeSummary(t *testing.T) {
	s := AmplitudeSummary([]int8{3, 4, 6, 8})
	if !almostEqual(s.Min, 5) || !almostEqual(s.Max, 10) || !almostEqual(s.Mean, 7.5) {
		t.Errorf("AmplitudeSummary = %+v, want min 5, max 10, mean 7.5", s)
	}
}
