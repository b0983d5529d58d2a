package resample

import (
	"math"
	"testing"
)

func TestChooseDivisor_ExactMatch(t *testing.T) {
	// divisor=112 gives PALClock/113 = 15694.2...; nearby requests should
	// resolve to the same divisor as the closest achievable rate.
	div, fs := ChooseDivisor(15700)
	want := float64(PALClock) / float64(div+1)
	if fs != want {
		t.Fatalf("fs %f does not match PALClock/(div+1) %f", fs, want)
	}
	// Brute-force confirm no other divisor is closer.
	best := math.Abs(fs - 15700)
	for d := 1; d <= 255; d++ {
		f := float64(PALClock) / float64(d+1)
		if math.Abs(f-15700) < best-1e-9 {
			t.Fatalf("divisor %d (fs=%f) is closer to 15700 than chosen fs=%f", d, f, fs)
		}
	}
}

func TestResample_PreservesDurationRatio(t *testing.T) {
	in := make([]float32, 1000)
	for i := range in {
		in[i] = float32(math.Sin(float64(i) * 0.1))
	}
	out := Resample(in, 44100, 15700)
	wantLen := int(float64(len(in)) * 15700 / 44100)
	diff := len(out) - wantLen
	if diff > 2 || diff < -2 {
		t.Errorf("resampled length %d, want ~%d", len(out), wantLen)
	}
}

func TestResample_EmptyInput(t *testing.T) {
	if out := Resample(nil, 44100, 15700); out != nil {
		t.Fatalf("expected nil for empty input, got %v", out)
	}
}

func TestResample_DCInputStaysDC(t *testing.T) {
	in := make([]float32, 500)
	for i := range in {
		in[i] = 0.7
	}
	out := Resample(in, 44100, 15700)
	mid := out[len(out)/2]
	if math.Abs(float64(mid)-0.7) > 0.05 {
		t.Errorf("DC resample drifted: got %f, want ~0.7", mid)
	}
}

func TestDCBlock_RemovesConstantOffset(t *testing.T) {
	in := make([]float32, 2000)
	for i := range in {
		in[i] = 0.5
	}
	out := DCBlock(in, 20, 15700)
	tail := out[len(out)-1]
	if math.Abs(float64(tail)) > 0.05 {
		t.Errorf("DC component not removed: tail sample = %f", tail)
	}
}

func TestDCBlock_PreservesLength(t *testing.T) {
	in := make([]float32, 50)
	out := DCBlock(in, 20, 15700)
	if len(out) != len(in) {
		t.Fatalf("DCBlock changed length: %d -> %d", len(in), len(out))
	}
}

func TestNormalize_PeakAtHeadroom(t *testing.T) {
	in := []float32{0.1, -0.5, 0.3, -0.9, 0.2}
	out := Normalize(in, 0.05)
	peak := float32(0)
	for _, v := range out {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	want := float32(0.95)
	if math.Abs(float64(peak-want)) > 1e-4 {
		t.Errorf("peak after normalize = %f, want %f", peak, want)
	}
}

func TestNormalize_SilenceUnchanged(t *testing.T) {
	in := make([]float32, 10)
	out := Normalize(in, 0.02)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("silent sample %d became %f", i, v)
		}
	}
}
