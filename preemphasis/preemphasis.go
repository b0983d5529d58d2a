// Package preemphasis implements the 15-tap linear-phase FIR pre-emphasis
// filter that compensates for zero-order-hold (ZOH) rolloff, per spec.md
// §4.C: magnitude response is the inverse of sinc(f/fs), blended 70% with
// an identity filter, applied in the float domain before quantization.
//
// Grounded on _examples/IntuitionAmiga-IntuitionEngine/pokey_engine.go's
// package-level immutable-table init idiom (pokeyPlusVolumeCurve built once
// via var x = func(){...}()) and audio_chip.go's staged-filter shape
// (oscillator -> envelope -> mix -> filter -> overdrive -> reverb, each a
// function over a float buffer). Tap design uses frequency-sampling (the
// standard closed-form route from a desired magnitude response to a
// finite-length linear-phase FIR), assembled with gonum/floats the way
// other_examples/manifests/emer-auditory (an auditory-DSP repo in the
// retrieval pack) depends on gonum for numeric vector work rather than
// hand-rolled loops.
package preemphasis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// NumTaps is fixed at 15 per spec.md §4.C.
	NumTaps = 15
	// blend is the 70% weighting applied to the ZOH-compensation response,
	// the remaining 30% being the identity (flat) response.
	blend = 0.70
)

// Filter holds an immutable, precomputed tap set for one target sample
// rate. Build it once per rate; Apply is then a pure function over a
// buffer with no further allocation of the coefficient table.
type Filter struct {
	taps [NumTaps]float64
	fs   float64
}

// sincNorm is the normalized sinc: sin(pi x)/(pi x), sinc(0) = 1.
func sincNorm(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// Build constructs the 15-tap FIR for target sample rate fs (Hz) via
// frequency sampling: the desired magnitude response D(f) = (1-blend) +
// blend/sinc(f/fs) is sampled at the DFT bin frequencies k*fs/NumTaps,
// k = 0..NumTaps/2, which span [0, fs/2], and inverse-transformed into a
// Type-I (odd-length, symmetric) linear-phase
// filter — spec.md §4.C's "inverse of sinc(f/fs) rolloff... blended 70%
// with an identity filter."
func Build(fs float64) *Filter {
	const n = NumTaps
	half := n / 2 // 7

	desired := make([]float64, half+1)
	for k := 0; k <= half; k++ {
		f := float64(k) / float64(n) * fs
		s := sincNorm(f / fs)
		inv := 1.0
		if s > 1e-6 {
			inv = 1.0 / s
		} else {
			inv = 1.0 / 1e-6
		}
		desired[k] = (1-blend)*1.0 + blend*inv
	}

	f := &Filter{fs: fs}
	for m := 0; m < n; m++ {
		shift := float64(m - half)
		sum := desired[0]
		for k := 1; k <= half; k++ {
			sum += 2 * desired[k] * math.Cos(2*math.Pi*float64(k)*shift/float64(n))
		}
		f.taps[m] = sum / float64(n)
	}

	// Normalize DC gain to 1 so the filter doesn't change overall level,
	// only spectral tilt: sum of taps == response at f=0.
	dc := floats.Sum(f.taps[:])
	if dc != 0 {
		floats.Scale(1/dc, f.taps[:])
	}
	return f
}

// Taps returns the (read-only, by convention) coefficient array.
func (f *Filter) Taps() [NumTaps]float64 { return f.taps }

// Apply runs the FIR over in, returning a new slice of the same length.
// The taps are centred on each output sample (no group delay), and samples
// beyond either end of the buffer are treated as zero.
func (f *Filter) Apply(in []float32) []float32 {
	out := make([]float32, len(in))
	half := NumTaps / 2
	for i := range in {
		var acc float64
		for t := 0; t < NumTaps; t++ {
			srcIdx := i + t - half
			if srcIdx < 0 || srcIdx >= len(in) {
				continue
			}
			acc += f.taps[t] * float64(in[srcIdx])
		}
		out[i] = float32(acc)
	}
	return out
}

// Identity returns the input unchanged as a new slice, used when
// Config.Enhance is false (spec.md §4.C: "otherwise identity").
func Identity(in []float32) []float32 {
	out := make([]float32, len(in))
	copy(out, in)
	return out
}
