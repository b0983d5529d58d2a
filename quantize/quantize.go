// Package quantize maps float PCM samples to POKEY level indices, either by
// nearest-neighbour search or first-order noise-shaped error diffusion
// (spec.md §4.B).
//
// Grounded on _examples/IntuitionAmiga-IntuitionEngine/pokey_engine.go's
// pokeyVolumeGain/pokeyGainToDAC pair: a small, allocation-free per-sample
// mapping from a float domain into a discrete hardware-level domain, the
// same shape this package generalizes to a full multi-channel level table.
package quantize

import "github.com/intuitionamiga/pokeyxex/levels"

// Mode selects the quantizer algorithm (spec.md §4.B).
type Mode int

const (
	Nearest Mode = iota
	NoiseShaped
)

// Stats reports normal-operating-condition telemetry (spec.md §7: quantizer
// saturation is never an error, but the pipeline still reports it when
// Config.Verbose is set).
type Stats struct {
	Samples       int
	Saturated     int
	SumAbsError   float64
}

// MeanAbsError returns SumAbsError / Samples, or 0 if Samples == 0.
func (s Stats) MeanAbsError() float64 {
	if s.Samples == 0 {
		return 0
	}
	return s.SumAbsError / float64(s.Samples)
}

// Quantize maps pcm (float32 in [-1,1]) to a stream of level indices using
// table t and gain, which should be chosen so that positive full scale (+1)
// maps to s=L-1 (peak-normalization gain, spec.md §4.B). The target is
// x*gain with no offset, so zero maps to s=0 and negative samples saturate
// to s=0.
//
// mode == NoiseShaped is forbidden for VQ (spec.md §4.B policy); callers
// enforce that at the Config.Validate() layer, not here, so this function
// stays a pure, reusable primitive.
func Quantize(pcm []float32, t *levels.Table, gain float64, mode Mode) ([]byte, Stats) {
	out := make([]byte, len(pcm))
	stats := Stats{Samples: len(pcm)}
	maxS := t.Len() - 1

	lowV, highV := t.ModeledVoltage(0), t.ModeledVoltage(maxS)

	var err float64
	for i, x := range pcm {
		target := float64(x)*gain + err
		if target < lowV || target > highV {
			stats.Saturated++
		}
		s := nearestIndex(t, target)
		out[i] = byte(s)
		if mode == NoiseShaped {
			err = target - t.ModeledVoltage(s)
		}
		stats.SumAbsError += absF(target - t.ModeledVoltage(s))
	}
	return out, stats
}

// nearestIndex returns argmin_s |target - modeled_voltage(V[s])|. The search
// is always within [0, L-1] by construction (spec.md §4.B): callers detect
// and count saturation themselves by comparing target against the table's
// endpoint voltages before calling this, since the index alone can't
// distinguish "target fell exactly on an endpoint" from "target overshot it".
func nearestIndex(t *levels.Table, target float64) int {
	l := t.Len()
	lo, hi := 0, l-1
	// ModeledVoltage(s) is strictly increasing in s (levels.VoltageCurve is
	// strictly increasing and single-step allocation only ever adds one
	// increment per step), so a binary search finds the nearest crossing.
	for lo < hi {
		mid := (lo + hi) / 2
		if t.ModeledVoltage(mid) < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo > 0 {
		if absF(t.ModeledVoltage(lo-1)-target) <= absF(t.ModeledVoltage(lo)-target) {
			return lo - 1
		}
	}
	return lo
}

// Gain computes the peak-normalization gain G such that a full-scale
// sample (x == 1) maps to s = L-1 (spec.md §4.B).
func Gain(t *levels.Table) float64 {
	return t.ModeledVoltage(t.Len() - 1)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
