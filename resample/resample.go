// Package resample implements spec.md §4.D: resample PCM to the nearest
// POKEY-achievable rate, DC-block at 20 Hz, and peak-normalize with
// headroom.
//
// Grounded on _examples/IntuitionAmiga-IntuitionEngine/pokey_engine.go's
// calcFrequency (POKEY clock/divisor arithmetic) for ChooseDivisor, and on
// audio_chip.go's staged signal-processing pipeline (each stage a pure
// function over a float buffer) for the DCBlock/Normalize/Resample shape.
// Normalize's gain scaling uses gonum/floats, matching the gonum
// dependency adopted for preemphasis (see DESIGN.md).
package resample

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// PALClock is the Atari PAL POKEY master clock, Hz (spec.md §4.D/§6).
const PALClock = 1_773_447

// ChooseDivisor picks divisor in [0,255] so that PALClock/(divisor+1) is as
// close as possible to requestedHz, returning the divisor and the achieved
// rate (spec.md §4.D).
func ChooseDivisor(requestedHz int) (divisor int, fs float64) {
	bestDiv := 0
	bestFs := float64(PALClock) / 1.0
	bestDelta := math.Abs(bestFs - float64(requestedHz))
	for d := 1; d <= 255; d++ {
		f := float64(PALClock) / float64(d+1)
		delta := math.Abs(f - float64(requestedHz))
		if delta < bestDelta {
			bestDelta = delta
			bestDiv = d
			bestFs = f
		}
	}
	return bestDiv, bestFs
}

// kernelHalfWidth controls the windowed-sinc resampling kernel span; 32
// gives a 64-tap-equivalent kernel (32 taps each side of center).
const kernelHalfWidth = 32

// Resample converts pcm (sampled at srcRate Hz) to dstRate Hz using a
// windowed-sinc (Lanczos-windowed) polyphase-equivalent kernel: for each
// output sample, the fractional source position is computed and a
// bandlimited interpolation is evaluated directly, which is mathematically
// the same operation a polyphase filter bank performs, without needing to
// precompute per-phase coefficient tables for an arbitrary rate ratio.
func Resample(pcm []float32, srcRate int, dstRate float64) []float32 {
	if srcRate <= 0 || dstRate <= 0 || len(pcm) == 0 {
		return nil
	}
	ratio := float64(srcRate) / dstRate
	outLen := int(float64(len(pcm)) / ratio)
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float32, outLen)

	// When downsampling, widen the kernel to avoid aliasing (a lower
	// effective cutoff needs a wider sinc); when upsampling, keep it fixed.
	scale := 1.0
	if ratio > 1 {
		scale = 1.0 / ratio
	}

	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		center := int(math.Floor(srcPos))
		frac := srcPos - float64(center)

		var acc, wsum float64
		for k := -kernelHalfWidth; k <= kernelHalfWidth; k++ {
			srcIdx := center + k
			if srcIdx < 0 || srcIdx >= len(pcm) {
				continue
			}
			x := (float64(k) - frac) * scale
			w := lanczosKernel(x, kernelHalfWidth)
			acc += w * float64(pcm[srcIdx])
			wsum += w
		}
		if wsum != 0 {
			acc /= wsum
		}
		out[i] = float32(acc)
	}
	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// lanczosKernel is sinc(x) windowed by sinc(x/a), zero outside [-a,a].
func lanczosKernel(x float64, a int) float64 {
	af := float64(a)
	if x < -af || x > af {
		return 0
	}
	return sinc(x) * sinc(x/af)
}

// DCBlock applies a one-pole high-pass filter at cutoffHz (spec.md §4.D:
// "20 Hz high-pass DC-block"), y[n] = x[n] - x[n-1] + R*y[n-1].
func DCBlock(pcm []float32, cutoffHz float64, sampleRate float64) []float32 {
	if len(pcm) == 0 {
		return nil
	}
	r := 1.0 - (2 * math.Pi * cutoffHz / sampleRate)
	out := make([]float32, len(pcm))
	var prevX, prevY float64
	for i, x := range pcm {
		xf := float64(x)
		y := xf - prevX + r*prevY
		out[i] = float32(y)
		prevX = xf
		prevY = y
	}
	return out
}

// Normalize peak-normalizes pcm to [-1,1] with headroom epsilon (e.g. 0.02
// for ~2% headroom), so that saturating quantization downstream is rare
// (spec.md §4.D).
func Normalize(pcm []float32, epsilon float64) []float32 {
	out := make([]float32, len(pcm))
	copy(out, pcm)
	if len(out) == 0 {
		return out
	}
	peak := 0.0
	for _, v := range out {
		a := math.Abs(float64(v))
		if a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return out
	}
	target := 1.0 - epsilon
	gain := target / peak
	f64 := make([]float64, len(out))
	for i, v := range out {
		f64[i] = float64(v)
	}
	floats.Scale(gain, f64)
	for i, v := range f64 {
		out[i] = float32(v)
	}
	return out
}
