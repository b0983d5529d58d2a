package preemphasis

import "testing"

func TestBuild_TapCount(t *testing.T) {
	f := Build(15700)
	taps := f.Taps()
	if len(taps) != NumTaps {
		t.Fatalf("got %d taps, want %d", len(taps), NumTaps)
	}
}

func TestBuild_DCNormalized(t *testing.T) {
	f := Build(15700)
	taps := f.Taps()
	var sum float64
	for _, v := range taps {
		sum += v
	}
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("DC gain = %f, want ~1.0", sum)
	}
}

func TestApply_PreservesLength(t *testing.T) {
	f := Build(15700)
	in := make([]float32, 100)
	for i := range in {
		in[i] = 0.5
	}
	out := f.Apply(in)
	if len(out) != len(in) {
		t.Fatalf("Apply changed length: %d -> %d", len(in), len(out))
	}
}

func TestApply_DCInputStaysNearDC(t *testing.T) {
	f := Build(15700)
	in := make([]float32, 200)
	for i := range in {
		in[i] = 1.0
	}
	out := f.Apply(in)
	// Away from the edges, a DC input through a DC-normalized FIR should
	// reproduce ~DC.
	mid := out[100]
	if mid < 0.9 || mid > 1.1 {
		t.Errorf("DC response = %f, want ~1.0", mid)
	}
}

func TestIdentity_Passthrough(t *testing.T) {
	in := []float32{0.1, -0.2, 0.3}
	out := Identity(in)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("Identity changed sample %d: %f -> %f", i, in[i], out[i])
		}
	}
	out[0] = 999
	if in[0] == 999 {
		t.Fatal("Identity must return a copy, not alias the input")
	}
}
