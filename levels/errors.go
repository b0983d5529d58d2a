package levels

import "fmt"

func errInvalidChannels(c int) error {
	return fmt.Errorf("levels: channels must be in [1,4], got %d", c)
}

func errStep(s, ch, d int) error {
	return fmt.Errorf("levels: single-step violation at s=%d channel=%d delta=%d", s, ch, d)
}

func errStepCount(s, n int) error {
	return fmt.Errorf("levels: single-step violation at s=%d: %d channels changed, expected exactly 1", s, n)
}

func errMonotone(s int, prev, v float64) error {
	return fmt.Errorf("levels: monotonicity violation at s=%d: voltage dropped from %f to %f", s, prev, v)
}
