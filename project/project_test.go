package project

import (
	"strings"
	"testing"

	"github.com/intuitionamiga/pokeyxex/assembler"
)

func sampleParams(compressMode int) *Params {
	audc := make([][256]byte, 1)
	for i := range audc[0] {
		audc[0][i] = 0x10
	}
	return &Params{
		VecSize:      4,
		Channels:     1,
		CompressMode: compressMode,
		Divisor:      111,
		AudctlVal:    0x00,
		IRQMask:      0x01,
		Silence:      0x10,
		PortBMain:    0xFC,
		AUDC:         audc,
		Banks:        [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}},
		ErrorTitle:   "ERROR",
		ErrorMessage: "BAD FILE",
	}
}

func TestGenerate_FixedFragmentSet(t *testing.T) {
	out, err := Generate(sampleParams(0))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []string{"config.asm", "audc_tables.asm", "portb_table.asm", "splash_data.asm", "banks.asm", "bank_00.asm", "bank_01.asm"}
	for _, name := range want {
		if _, ok := out[name]; !ok {
			t.Errorf("missing fragment %q", name)
		}
	}
	if _, ok := out["vq_tables.asm"]; ok {
		t.Error("vq_tables.asm emitted when CompressMode != 2")
	}
}

func TestGenerate_VQTablesOnlyForVQ(t *testing.T) {
	out, err := Generate(sampleParams(2))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := out["vq_tables.asm"]; !ok {
		t.Error("vq_tables.asm missing when CompressMode == 2")
	}
}

func TestGenerate_RejectsBadChannelCount(t *testing.T) {
	p := sampleParams(0)
	p.Channels = 5
	if _, err := Generate(p); err == nil {
		t.Fatal("expected error for channels out of range")
	}
}

func TestGenerate_RejectsMismatchedAUDCCount(t *testing.T) {
	p := sampleParams(0)
	p.Channels = 2
	if _, err := Generate(p); err == nil {
		t.Fatal("expected error for AUDC/channels mismatch")
	}
}

func TestRenderConfig_ContainsFixedConstants(t *testing.T) {
	p := sampleParams(2)
	out, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	cfg := out["config.asm"]
	for _, want := range []string{"N_BANKS = 2", "VEC_SIZE = 4", "POKEY_CHANNELS = 1", "COMPRESS_MODE = 2", "POKEY_DIVISOR = 111", "CODE_BASE = $2000", "BANK_BASE = $4000"} {
		if !strings.Contains(cfg, want) {
			t.Errorf("config.asm missing %q:\n%s", want, cfg)
		}
	}
}

func TestRenderAUDCTables_UnusedChannelsAreSilence(t *testing.T) {
	out, err := Generate(sampleParams(0))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	tab := out["audc_tables.asm"]
	if !strings.Contains(tab, "audc1_tab:") || !strings.Contains(tab, "audc4_tab:") {
		t.Fatalf("expected all four channel tables present:\n%s", tab)
	}
	// Channel 4 (index 3) is unused at Channels=1: every byte must be silence.
	idx := strings.Index(tab, "audc4_tab:")
	section := tab[idx:]
	if !strings.Contains(section, "$10,$10,$10") {
		t.Errorf("unused channel table does not look like all-silence:\n%s", section)
	}
}

// Cross-package sanity check: the equate/byte-only fragments this package
// emits are valid input to the assembler package (spec.md §4.H fragments
// feed directly into §4.I assembly).
func TestGeneratedFragments_AssembleCleanly(t *testing.T) {
	out, err := Generate(sampleParams(2))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, name := range []string{"config.asm", "audc_tables.asm", "vq_tables.asm", "portb_table.asm", "bank_00.asm"} {
		src := "org $6000\n" + out[name]
		a := assembler.New(map[string]string{"f.asm": src})
		if _, err := a.Assemble("f.asm"); err != nil {
			t.Errorf("%s failed to assemble: %v", name, err)
		}
	}
}
