// pipeline.go - top-level orchestration (spec.md §2 data flow, SPEC_FULL
// "TOP-LEVEL PIPELINE")
//
// Grounded on the teacher's program_executor.go: one documented entry
// point wiring each stage (there: parser -> loader -> CPU -> bus; here:
// resample -> preemphasis -> quantize -> bank/codec -> project -> assembler
// -> xex) with no stage importing another except through this file.
package pokeyxex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/intuitionamiga/pokeyxex/assembler"
	"github.com/intuitionamiga/pokeyxex/bank"
	"github.com/intuitionamiga/pokeyxex/deltalz"
	"github.com/intuitionamiga/pokeyxex/levels"
	"github.com/intuitionamiga/pokeyxex/preemphasis"
	"github.com/intuitionamiga/pokeyxex/project"
	"github.com/intuitionamiga/pokeyxex/quantize"
	"github.com/intuitionamiga/pokeyxex/resample"
	"github.com/intuitionamiga/pokeyxex/vqcodec"
	"github.com/intuitionamiga/pokeyxex/xex"
)

// dcBlockCutoffHz is the fixed 20 Hz DC-block corner (spec.md §4.D).
const dcBlockCutoffHz = 20.0

// normalizeHeadroom leaves ~2% peak headroom before quantization (spec.md
// §4.D).
const normalizeHeadroom = 0.02

// audctlDirectClock is the fixed AUDCTL register value the generated
// config.asm carries. spec.md §4.H names AUDCTL_VAL as one of the fixed
// constants but gives no derivation formula; this is a documented Open
// Question decision (see DESIGN.md): bit 6 ("channel 1 clocked directly
// from 1.79 MHz rather than the 64 kHz base clock") is the one AUDCTL
// feature resample.ChooseDivisor's arithmetic actually assumes, since its
// divisor search operates directly against PALClock. Nothing else in this
// pipeline uses 16-bit channel pairing, the 9-bit poly counter, or the
// high-pass-by-another-channel bits, so every other bit stays clear.
const audctlDirectClock byte = 0x40

// Result is everything Pipeline.Encode produces (SPEC_FULL "TOP-LEVEL
// PIPELINE").
type Result struct {
	XEX       []byte
	Fragments map[string]string
	Warnings  []string

	// Verification stats, populated only when Config.Verbose is set
	// (spec.md §7: "reported, never gating").
	QuantStats   quantize.Stats
	VQStats      map[int]vqcodec.Stats
	CyclesAvail  float64
	CyclesNeeded float64
	Feasible     bool
}

// Pipeline is the single entry point tying modules A-J together.
type Pipeline struct {
	Config Config
	Logger Logger
}

// New validates cfg and returns a ready-to-use Pipeline (spec.md §6/§7).
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		if cfg.Verbose {
			logger = defaultLogger()
		} else {
			logger = nopLogger{}
		}
	}
	return &Pipeline{Config: cfg, Logger: logger}, nil
}

// Encode runs the full A->J pipeline over pcm (mono float32 in roughly
// [-1,1], sampled at sourceRate Hz), producing a self-booting XEX plus the
// generated fragment set (spec.md §2, §8 scenarios 1-6).
func (p *Pipeline) Encode(pcm []float32, sourceRate int) (*Result, error) {
	cfg := p.Config
	if len(pcm) == 0 {
		return nil, newErr(AudioTooShort, "input PCM is empty")
	}

	divisor, fs := resolvedRate(cfg.Rate)
	p.Logger.Printf("resolved rate: requested=%d achieved=%.2f divisor=%d", cfg.Rate, fs, divisor)

	resampled := resample.Resample(pcm, sourceRate, fs)
	resampled = resample.DCBlock(resampled, dcBlockCutoffHz, fs)
	resampled = resample.Normalize(resampled, normalizeHeadroom)

	if cfg.Enhance {
		filter := preemphasis.Build(fs)
		resampled = filter.Apply(resampled)
	} else {
		resampled = preemphasis.Identity(resampled)
	}

	table, err := levels.Build(cfg.Channels)
	if err != nil {
		return nil, wrapErr(InvalidConfig, err, "building level table")
	}

	qmode := quantize.Nearest
	if cfg.NoiseShaping {
		qmode = quantize.NoiseShaped
	}
	gain := quantize.Gain(table)
	levelStream, qstats := quantize.Quantize(resampled, table, gain, qmode)

	if len(levelStream) < 1 {
		return nil, newErr(AudioTooShort, "decoded PCM yields fewer samples than one bank requires")
	}
	p.Logger.Printf("quantized %d samples, saturated=%d mean_abs_err=%.4f", qstats.Samples, qstats.Saturated, qstats.MeanAbsError())

	bankResult, compressMode, vqStats, warnings, err := p.packSamples(levelStream, fs, table)
	if err != nil {
		return nil, err
	}

	params := p.buildProjectParams(table, divisor, compressMode, bankResult)

	fragments, err := project.Generate(params)
	if err != nil {
		return nil, wrapErr(InvalidConfig, err, "generating project fragments")
	}

	entrySource := renderEntryStub(len(bankResult.Banks), compressMode)
	sources := make(map[string]string, len(fragments)+1)
	for name, body := range fragments {
		sources[name] = body
	}
	sources["entry.asm"] = entrySource

	asm := assembler.New(sources)
	prog, err := asm.Assemble("entry.asm")
	if err != nil {
		if ae, ok := err.(*assembler.AssemblerError); ok {
			return nil, &PipelineError{Kind: AssemblerError, Message: ae.Error(), File: ae.File, Line: ae.Line, Cause: err}
		}
		return nil, wrapErr(AssemblerError, err, "assembling generated fragments")
	}

	writer := xex.NewWriter()
	for _, seg := range prog.Segments {
		writer.AddSegment(seg.Origin, seg.Bytes)
		if seg.Kind == "INIT" {
			writer.SetInit(seg.InitAddr)
		}
	}
	startAddr, ok := prog.LookupSymbol("start")
	if !ok {
		return nil, newErr(AssemblerError, "generated program has no 'start' entry symbol")
	}
	writer.SetRun(int(startAddr))

	xexBytes := writer.Bytes()
	if cfg.XEXSizeCeiling > 0 && len(xexBytes) > cfg.XEXSizeCeiling {
		return nil, newErr(XEXTooLarge, "XEX size %d exceeds configured ceiling %d", len(xexBytes), cfg.XEXSizeCeiling)
	}
	if err := xex.Verify(xexBytes); err != nil {
		return nil, wrapErr(AssemblerError, err, "linked XEX failed verification")
	}

	result := &Result{
		XEX:       xexBytes,
		Fragments: fragments,
		Warnings:  warnings,
	}
	if cfg.Verbose {
		result.QuantStats = qstats
		result.VQStats = vqStats
		if cfg.Compression == CompressionLZ {
			mode := deltalz.ModeScalar
			if cfg.Mode == LZMode1CPS {
				mode = deltalz.Mode1CPS
			}
			avail, needed, ok := deltalz.CheckFeasibility(mode, fs)
			result.CyclesAvail, result.CyclesNeeded, result.Feasible = avail, needed, ok
			if !ok {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"deltalz mode=%s may not keep up at %.0f Hz: %.1f cycles/sample available, %.1f needed", mode, fs, avail, needed))
			}
		}
	}
	return result, nil
}

// packSamples dispatches to the codec named by cfg.Compression, mapping
// each codec's two failure modes (bank.ErrOverflow, strict truncation)
// onto the root Kind taxonomy (spec.md §7).
func (p *Pipeline) packSamples(levelStream []byte, fs float64, table *levels.Table) (*bank.Result, int, map[int]vqcodec.Stats, []string, error) {
	cfg := p.Config

	switch cfg.Compression {
	case CompressionOff:
		codec := bank.RawCodec{Filler: Silence}
		res, err := bank.Pack(levelStream, codec, cfg.MaxBanks, cfg.Strict)
		if err != nil {
			return nil, 0, nil, nil, translatePackError(err)
		}
		return res, 0, nil, res.Warnings, nil

	case CompressionVQ:
		codec := &vqcodec.Codec{VecSize: cfg.VecSize, Levels: table.Len(), Gate: cfg.NoiseGate, Verbose: cfg.Verbose}
		res, err := bank.Pack(levelStream, codec, cfg.MaxBanks, cfg.Strict)
		if err != nil {
			return nil, 0, nil, nil, translatePackError(err)
		}
		var stats map[int]vqcodec.Stats
		if cfg.Verbose {
			stats = make(map[int]vqcodec.Stats, len(res.Banks))
			for i := range res.Banks {
				if s, ok := codec.Stats(i); ok {
					stats[i] = s
				}
			}
		}
		return res, 2, stats, res.Warnings, nil

	case CompressionLZ:
		res, err := deltalz.Encode(levelStream, cfg.MaxBanks, cfg.Strict)
		if err != nil {
			return nil, 0, nil, nil, translatePackError(err)
		}
		return res, 1, nil, res.Warnings, nil
	}
	return nil, 0, nil, nil, newErr(InvalidConfig, "unreachable: compression=%q", cfg.Compression)
}

// translatePackError maps the only two failure modes bank.Pack and
// deltalz.Encode ever return into root Kinds: an ErrOverflow-wrapped error
// (a single unit that cannot fit even its own bank) becomes BankOverflow;
// anything else (the strict-mode "(strict mode)" fmt.Errorf truncation
// error) becomes MaxBanksExceeded, since neither package exposes a more
// specific sentinel for that case.
func translatePackError(err error) error {
	if errors.Is(err, bank.ErrOverflow) {
		return wrapErr(BankOverflow, err, "sample unit does not fit in one bank")
	}
	return wrapErr(MaxBanksExceeded, err, "input exceeds max_banks in strict mode")
}

// buildProjectParams assembles the project.Params fixed-fragment input
// from the pipeline's intermediate state.
func (p *Pipeline) buildProjectParams(table *levels.Table, divisor, compressMode int, res *bank.Result) *project.Params {
	cfg := p.Config
	banks := make([][]byte, len(res.Banks))
	for i, b := range res.Banks {
		banks[i] = b.Bytes
	}

	params := &project.Params{
		Channels:     cfg.Channels,
		CompressMode: compressMode,
		Divisor:      divisor,
		AudctlVal:    audctlDirectClock,
		IRQMask:      IRQMask,
		Silence:      Silence,
		PortBMain:    PortBMain,
		AUDC:         table.AUDC,
		Banks:        banks,
		ErrorTitle:   "ERROR",
		ErrorMessage: "DECODE FAILED",
	}
	copy(params.SplashLine1[:], project.ScreenCode("POKEY-XEX PLAYER"))
	copy(params.SplashLine2[:], project.ScreenCode("EXTENDED MEMORY AUDIO"))

	if compressMode == 2 {
		params.VecSize = cfg.VecSize
		// vq_lo_tab/vq_hi_tab derive from bank 0's codebook only (an Open
		// Question decision, spec.md §4.H gives no formula tying these two
		// 256-byte tables to a specific bank or vector component): the
		// first two components of each of bank 0's 256 codebook entries,
		// taking the low/high bytes of the codebook's leading dimension
		// pair the same way AUDF/AUDC register pairs are split elsewhere
		// in this table set.
		if len(banks) > 0 {
			cb := banks[0]
			for i := 0; i < 256; i++ {
				base := i * cfg.VecSize
				if base < len(cb) {
					params.VQLo[i] = cb[base]
				}
				if cfg.VecSize > 1 && base+1 < len(cb) {
					params.VQHi[i] = cb[base+1]
				}
			}
		}
	}
	return params
}

// renderEntryStub produces the glue source that ties the generated
// fragments into one assemblable program. The on-target IRQ-driven
// playback loop is the "player assembly fixture" spec.md treats as
// already existing (SPEC_FULL MODULE G expansion: "the on-target decoder
// lives in the player assembly fixture"); this pipeline does not generate
// one. In its place this stub sets POKEY to a known silent state, runs
// the first bank's init routine, and idles, so Encode still yields a
// real, verifiable, self-booting XEX end to end rather than leaving
// linkage untested.
// dataTableBase is where the fixed-size lookup tables land: clear of the
// zero page and the stub/code/bank regions (spec.md §4.H/§6 never pins an
// address for these, only for CODE_BASE/BANK_BASE/STUB_ADDR/LZ_BUF_*).
const dataTableBase = 0x1C00

// renderEntryStub's icl choices are resolved here in Go, not with .if/.else
// around icl in the generated text: loadAndParse splices every icl it finds
// unconditionally, before either assembler pass ever evaluates a condition
// (spec.md §4.I), so a conditionally-icl'd fragment that doesn't exist for
// the current compress mode would fail to load regardless of which branch
// is later found active.
func renderEntryStub(numBanks int, compressMode int) string {
	var src strings.Builder
	src.WriteString("icl \"config.asm\"\n")

	fmt.Fprintf(&src, "org $%04X\n", dataTableBase)
	src.WriteString("icl \"audc_tables.asm\"\n")
	if compressMode == 2 {
		src.WriteString("icl \"vq_tables.asm\"\n")
	}
	src.WriteString("icl \"portb_table.asm\"\n")
	src.WriteString("icl \"splash_data.asm\"\n")

	src.WriteString("org STUB_ADDR\n")
	src.WriteString("icl \"banks.asm\"\n")

	// Every bank shares the same 0x4000..0x7FFF CPU window (spec.md §3
	// "Bank"): on real hardware PORTB selects which physical 16 KB page
	// answers there, so identical addresses across bank segments are
	// correct, not a collision (spec.md §4.J invariant: "later overwrites
	// earlier" — P8/scenario 5 — the exact semantics this reuses).
	for i := 0; i < numBanks; i++ {
		src.WriteString("org BANK_BASE\n")
		fmt.Fprintf(&src, "icl \"bank_%02d.asm\"\n", i)
	}

	src.WriteString(`
org CODE_BASE
start:
    lda #AUDCTL_VAL
    sta $D208
    lda #POKEY_DIVISOR
    sta $D200
    sta $D202
    sta $D204
    sta $D206
    lda #SILENCE
    sta $D201
    sta $D203
    sta $D205
    sta $D207
    jsr bank_00_init
idle:
    jmp idle

loader:
    rts
`)
	return src.String()
}
