// config.go - pipeline configuration (spec.md §6)
//
// Grounded on sap_parser.go's SAPHeader struct-with-defaults pattern: a
// plain exported struct, a constructor that fills sane defaults, and a
// Validate() pass that returns descriptive errors rather than panicking.

package pokeyxex

import (
	"fmt"

	"github.com/intuitionamiga/pokeyxex/resample"
)

// Compression selects codec F/G/raw (spec.md §6).
type Compression string

const (
	CompressionOff Compression = "off"
	CompressionLZ  Compression = "lz"
	CompressionVQ  Compression = "vq"
)

// LZMode selects the bank-budget model for the DeltaLZ codec (spec.md §4.G).
type LZMode string

const (
	LZModeScalar LZMode = "scalar"
	LZMode1CPS   LZMode = "1cps"
)

// PALClock is the Atari PAL POKEY master clock, Hz (spec.md §4.D, §6).
const PALClock = 1_773_447

// Hardware constants exposed per spec.md §6.
const (
	IRQMask    = 0x01
	Silence    = 0x10
	PortBMain  = 0xFC
	BankBase   = 0x4000
	BankSize   = 0x4000 // 16 KB
	LZBufBase  = 0x8000
	LZBufEnd   = 0xC000
	CodeBase   = 0x2000
	StubAddr   = 0x0600
	MaxBanksHW = 64
)

// Config is the full set of recognized pipeline options (spec.md §6).
type Config struct {
	Compression  Compression
	VecSize      int // VQ vector dimension: 2, 4, 8, 16
	Channels     int // POKEY channel count C: 1..4
	Rate         int // target sample rate, Hz; snapped to PALClock/(d+1)
	Enhance      bool
	MaxBanks     int // 1..64
	NoiseShaping bool
	NoiseGate    int // 0..100
	Mode         LZMode

	// Verbose enables RMSE/SNR reporting and k-means convergence stats
	// (spec.md §7: "Verification RMSE/SNR is reported, never gating").
	Verbose bool

	// Strict turns MaxBanksExceeded into a hard error instead of a
	// truncation warning (spec.md §7).
	Strict bool

	// XEXSizeCeiling, if non-zero, triggers XEXTooLarge when exceeded
	// (spec.md §7, optional).
	XEXSizeCeiling int

	Logger Logger
}

// DefaultConfig returns the authoritative default: compression=vq,
// vec_size=4 (spec.md §9 "Ambiguity" resolution), 1 POKEY channel,
// 15700 Hz (snapped to divisor 112, PALClock/113 ≈ 15694 Hz),
// noise shaping off, no noise gate, 64 banks max, scalar LZ budget model.
func DefaultConfig() Config {
	return Config{
		Compression:  CompressionVQ,
		VecSize:      4,
		Channels:     1,
		Rate:         15700,
		Enhance:      false,
		MaxBanks:     MaxBanksHW,
		NoiseShaping: false, // forbidden alongside compression=vq (see Validate)
		NoiseGate:    0,
		Mode:         LZModeScalar,
	}
}

var validVecSizes = map[int]bool{2: true, 4: true, 8: true, 16: true}

// Validate checks the configuration per spec.md §6/§7, returning a
// *PipelineError{Kind: InvalidConfig} describing the first problem found.
func (c Config) Validate() error {
	switch c.Compression {
	case CompressionOff, CompressionLZ, CompressionVQ:
	default:
		return newErr(InvalidConfig, "compression must be one of off/lz/vq, got %q", c.Compression)
	}
	if c.Compression == CompressionVQ {
		if !validVecSizes[c.VecSize] {
			return newErr(InvalidConfig, "vec_size must be one of 2,4,8,16 for compression=vq, got %d", c.VecSize)
		}
	} else if c.VecSize != 0 {
		return newErr(InvalidConfig, "vec_size is only valid with compression=vq (mutually exclusive with %q)", c.Compression)
	}
	if c.Channels < 1 || c.Channels > 4 {
		return newErr(InvalidConfig, "channels must be in [1,4], got %d", c.Channels)
	}
	if c.Rate <= 0 {
		return newErr(InvalidConfig, "rate must be positive, got %d", c.Rate)
	}
	if c.MaxBanks < 1 || c.MaxBanks > MaxBanksHW {
		return newErr(InvalidConfig, "max_banks must be in [1,%d], got %d", MaxBanksHW, c.MaxBanks)
	}
	if c.NoiseGate < 0 || c.NoiseGate > 100 {
		return newErr(InvalidConfig, "noise_gate must be in [0,100], got %d", c.NoiseGate)
	}
	if c.Compression == CompressionVQ && c.NoiseShaping {
		return newErr(InvalidConfig, "noise_shaping is forbidden for compression=vq")
	}
	switch c.Mode {
	case LZModeScalar, LZMode1CPS, "":
	default:
		return newErr(InvalidConfig, "mode must be one of scalar/1cps, got %q", c.Mode)
	}
	return nil
}

// resolvedRate snaps cfg.Rate to the nearest achievable PAL_CLOCK/(d+1),
// returning the divisor and achieved sample rate (spec.md §4.D). It
// delegates to the resample package, which owns the canonical
// divisor-search implementation.
func resolvedRate(requested int) (divisor int, fs float64) {
	return resample.ChooseDivisor(requested)
}

func (c Config) String() string {
	return fmt.Sprintf("Config{compression=%s vec_size=%d channels=%d rate=%d enhance=%v max_banks=%d noise_shaping=%v noise_gate=%d mode=%s}",
		c.Compression, c.VecSize, c.Channels, c.Rate, c.Enhance, c.MaxBanks, c.NoiseShaping, c.NoiseGate, c.Mode)
}
