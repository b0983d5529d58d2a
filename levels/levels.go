// Package levels builds the single-step, multi-channel POKEY voltage level
// table and the per-channel AUDC lookup tables it implies (spec.md §4.A).
//
// Grounded on _examples/IntuitionAmiga-IntuitionEngine/pokey_engine.go: the
// measured, chip-characterized volume curve used here mirrors that file's
// pokeyPlusVolumeCurve (a 16-entry, ~2dB/step logarithmic curve derived from
// real POKEY DAC measurements), and the package-level immutable-table init
// idiom (var X = func() T {...}()) is copied from the same file. AUDC bit
// layout constants are re-derived from pokey_constants.go.
package levels

import "math"

// Level is one entry of the ordered level table: one POKEY volume (0..15)
// per channel.
type Level []uint8

// Table is the ordered, single-step level table plus its AUDC lookups.
type Table struct {
	Channels int
	Levels   []Level // length L = 15*Channels + 1
	AUDC     [][256]byte
}

// AUDC bit layout (pokey_constants.go: AUDC_VOLUME_MASK / AUDC_VOLUME_ONLY).
const (
	audcVolumeMask = 0x0F
	audcVolumeOnly = 0x10
)

// VoltageCurve is the measured nonlinear mapping volume(0..15) -> relative
// analog volts, used only for the monotonicity check (spec.md §3) and by
// the noise-shaped quantizer's error-diffusion target. It mirrors
// pokey_engine.go's pokeyPlusVolumeCurve (2dB/step POKEY+ curve): the
// measured hardware DAC is logarithmic, not linear, so the single-step
// ramp's *analog* sum is checked against this curve rather than against
// raw volume integers.
var VoltageCurve = func() [16]float64 {
	var curve [16]float64
	curve[0] = 0
	for i := 1; i < 16; i++ {
		db := float64(i-15) * 2.0
		curve[i] = math.Pow(10.0, db/20.0)
	}
	curve[15] = 1.0
	return curve
}()

// Build constructs the single-step level table and AUDC lookups for a
// channel count C in [1,4] (spec.md §4.A, resolved per §8 scenario 6 as a
// sequential fill rather than round-robin). It never fails
// for valid C.
func Build(channels int) (*Table, error) {
	if channels < 1 || channels > 4 {
		return nil, errInvalidChannels(channels)
	}

	l := 15*channels + 1
	levels := make([]Level, l)
	vols := make([]uint8, channels)
	levels[0] = append(Level(nil), vols...)

	for i := 1; i < l; i++ {
		// Single-step allocation: fill channel 0 to 15 before touching
		// channel 1, and so on (spec.md §8 scenario 6: sequential fill, not
		// round-robin).
		ch := 0
		for vols[ch] >= 15 {
			ch++
		}
		vols[ch]++
		levels[i] = append(Level(nil), vols...)
	}

	t := &Table{Channels: channels, Levels: levels}
	t.AUDC = make([][256]byte, channels)
	for ch := 0; ch < channels; ch++ {
		var tab [256]byte
		for idx := 0; idx < l; idx++ {
			tab[idx] = audcVolumeOnly | (levels[idx][ch] & audcVolumeMask)
		}
		for idx := l; idx < 256; idx++ {
			tab[idx] = audcVolumeOnly // deterministic don't-care (spec.md §3)
		}
		t.AUDC[ch] = tab
	}
	return t, nil
}

// Len returns L = 15*Channels + 1.
func (t *Table) Len() int { return len(t.Levels) }

// ModeledVoltage returns the modeled analog sum Σ f(vi) for level s
// (spec.md §3's monotonicity invariant).
func (t *Table) ModeledVoltage(s int) float64 {
	sum := 0.0
	for _, v := range t.Levels[s] {
		sum += VoltageCurve[v]
	}
	return sum
}

// CheckSingleStep verifies P1 (spec.md §8): every consecutive pair differs
// in exactly one channel by exactly ±1.
func (t *Table) CheckSingleStep() error {
	for s := 0; s+1 < len(t.Levels); s++ {
		diffs := 0
		for ch := 0; ch < t.Channels; ch++ {
			d := int(t.Levels[s+1][ch]) - int(t.Levels[s][ch])
			if d != 0 {
				diffs++
				if d != 1 && d != -1 {
					return errStep(s, ch, d)
				}
			}
		}
		if diffs != 1 {
			return errStepCount(s, diffs)
		}
	}
	return nil
}

// CheckMonotone verifies P2 (spec.md §8): the modeled voltage sum is
// non-decreasing in s.
func (t *Table) CheckMonotone() error {
	prev := t.ModeledVoltage(0)
	for s := 1; s < len(t.Levels); s++ {
		v := t.ModeledVoltage(s)
		if v < prev {
			return errMonotone(s, prev, v)
		}
		prev = v
	}
	return nil
}
