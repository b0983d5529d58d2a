// Package project renders the generated assembly fragment set consumed by
// the static player fixture (spec.md §4.H). Every fragment name, and the
// constants/tables each one carries, are fixed by contract with that
// player; this package only knows how to render them as text, not how the
// player interprets them.
//
// Grounded on cpu_6502_opcode_table_gen.go's generated-table shape: a flat,
// mechanical []Fragment slice drives emission the same way that file's
// table drives opcode dispatch, so adding a new fragment never touches
// unrelated rendering code (spec.md §9 Design Note, SPEC_FULL MODULE H
// expansion).
package project

import (
	"fmt"
	"strings"
)

// Fixed architectural constants (spec.md §4.H / §6): these are hardware
// memory-map facts, not user-configurable options, so they live here
// rather than on Params.
const (
	CodeBase  = 0x2000
	BankBase  = 0x4000
	LZBufBase = 0x8000
	LZBufEnd  = 0xC000
	StubAddr  = 0x0600
)

// Params carries every value the fragment set needs to render (spec.md
// §4.H file-by-file list).
type Params struct {
	VecSize      int // 0 when CompressMode != 2
	Channels     int
	CompressMode int // 0=off, 1=lz, 2=vq
	Divisor      int
	AudctlVal    byte
	IRQMask      byte
	Silence      byte
	PortBMain    byte

	AUDC [][256]byte // one entry per channel, len == Channels

	VQLo, VQHi [256]byte // rendered only when CompressMode == 2

	Banks [][]byte // one payload per bank, emitted as bank_XX.asm

	SplashLine1, SplashLine2 [40]byte
	ErrorTitle, ErrorMessage string
}

// Fragment is one named, independently renderable output file.
type Fragment struct {
	Name   string
	Render func(p *Params) string
}

var fixedFragments = []Fragment{
	{"config.asm", renderConfig},
	{"audc_tables.asm", renderAUDCTables},
	{"vq_tables.asm", renderVQTables},
	{"portb_table.asm", renderPortBTable},
	{"splash_data.asm", renderSplashData},
	{"banks.asm", renderBanksStub},
}

// Generate renders the full fragment set named in spec.md §4.H.
// vq_tables.asm is emitted only when CompressMode == 2 ("(VQ only)").
func Generate(p *Params) (map[string]string, error) {
	if p.Channels < 1 || p.Channels > 4 {
		return nil, fmt.Errorf("project: channels must be in [1,4], got %d", p.Channels)
	}
	if len(p.AUDC) != p.Channels {
		return nil, fmt.Errorf("project: AUDC table count %d does not match channels %d", len(p.AUDC), p.Channels)
	}
	if p.CompressMode < 0 || p.CompressMode > 2 {
		return nil, fmt.Errorf("project: compress_mode must be 0, 1, or 2, got %d", p.CompressMode)
	}

	out := make(map[string]string, len(fixedFragments)+len(p.Banks))
	for _, f := range fixedFragments {
		if f.Name == "vq_tables.asm" && p.CompressMode != 2 {
			continue
		}
		out[f.Name] = f.Render(p)
	}
	for i, bank := range p.Banks {
		out[fmt.Sprintf("bank_%02d.asm", i)] = renderBank(i, bank)
	}
	return out, nil
}

func writeByteRows(b *strings.Builder, data []byte, perRow int) {
	for i := 0; i < len(data); i += perRow {
		end := i + perRow
		if end > len(data) {
			end = len(data)
		}
		parts := make([]string, end-i)
		for j, v := range data[i:end] {
			parts[j] = fmt.Sprintf("$%02X", v)
		}
		fmt.Fprintf(b, "    .byte %s\n", strings.Join(parts, ","))
	}
}

func renderConfig(p *Params) string {
	var b strings.Builder
	fmt.Fprintf(&b, "N_BANKS = %d\n", len(p.Banks))
	fmt.Fprintf(&b, "VEC_SIZE = %d\n", p.VecSize)
	fmt.Fprintf(&b, "POKEY_CHANNELS = %d\n", p.Channels)
	fmt.Fprintf(&b, "COMPRESS_MODE = %d\n", p.CompressMode)
	fmt.Fprintf(&b, "POKEY_DIVISOR = %d\n", p.Divisor)
	fmt.Fprintf(&b, "AUDCTL_VAL = $%02X\n", p.AudctlVal)
	fmt.Fprintf(&b, "IRQ_MASK = $%02X\n", p.IRQMask)
	fmt.Fprintf(&b, "SILENCE = $%02X\n", p.Silence)
	fmt.Fprintf(&b, "PORTB_MAIN = $%02X\n", p.PortBMain)
	fmt.Fprintf(&b, "CODE_BASE = $%04X\n", CodeBase)
	fmt.Fprintf(&b, "BANK_BASE = $%04X\n", BankBase)
	fmt.Fprintf(&b, "LZ_BUF_BASE = $%04X\n", LZBufBase)
	fmt.Fprintf(&b, "LZ_BUF_END = $%04X\n", LZBufEnd)
	fmt.Fprintf(&b, "STUB_ADDR = $%04X\n", StubAddr)
	return b.String()
}

// renderAUDCTables always emits four tables; channels beyond p.Channels are
// silence throughout (spec.md §4.H: "unused channels still emitted as
// silence").
func renderAUDCTables(p *Params) string {
	var b strings.Builder
	for ch := 0; ch < 4; ch++ {
		fmt.Fprintf(&b, "audc%d_tab:\n", ch+1)
		var table [256]byte
		if ch < len(p.AUDC) {
			table = p.AUDC[ch]
		} else {
			for i := range table {
				table[i] = p.Silence
			}
		}
		writeByteRows(&b, table[:], 16)
	}
	return b.String()
}

func renderVQTables(p *Params) string {
	var b strings.Builder
	b.WriteString("vq_lo_tab:\n")
	writeByteRows(&b, p.VQLo[:], 16)
	b.WriteString("vq_hi_tab:\n")
	writeByteRows(&b, p.VQHi[:], 16)
	return b.String()
}

func renderPortBTable(p *Params) string {
	var b strings.Builder
	b.WriteString("portb_table:\n")
	writeByteRows(&b, make([]byte, len(p.Banks)), 16)
	return b.String()
}

// ScreenCode maps printable ASCII (0x20-0x7F) to ANTIC Mode 2 internal
// screen codes by subtracting 0x20, the standard Atari remap; anything
// outside that range renders as a blank screen code. Exported so callers
// building splash/banner text (e.g. the top-level pipeline) use the same
// mapping as error title/message rendering.
func ScreenCode(s string) []byte {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c <= 0x7F {
			out[i] = c - 0x20
		}
	}
	return out
}

func renderSplashData(p *Params) string {
	var b strings.Builder
	b.WriteString("splash_line1:\n")
	writeByteRows(&b, p.SplashLine1[:], 20)
	b.WriteString("splash_line2:\n")
	writeByteRows(&b, p.SplashLine2[:], 20)
	b.WriteString("error_title:\n")
	writeByteRows(&b, ScreenCode(p.ErrorTitle), 20)
	b.WriteString("error_message:\n")
	writeByteRows(&b, ScreenCode(p.ErrorMessage), 20)
	return b.String()
}

func renderBanksStub(p *Params) string {
	var b strings.Builder
	for i := range p.Banks {
		fmt.Fprintf(&b, "bank_%02d_init:\n", i)
		fmt.Fprintf(&b, "ini bank_%02d_init\n", i)
		fmt.Fprintf(&b, "    lda #%d\n", i)
		b.WriteString("    sta portb_table\n")
		b.WriteString("    jsr loader\n")
		b.WriteString("    rts\n")
	}
	return b.String()
}

func renderBank(index int, payload []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "bank_%02d_data:\n", index)
	writeByteRows(&b, payload, 16)
	return b.String()
}
