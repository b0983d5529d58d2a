package assembler

import (
	"strings"
	"testing"
)

func fillerBytes(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "0"
	}
	return strings.Join(parts, ",")
}

func TestAssemble_SimpleProgram(t *testing.T) {
	src := `
start = $4000
org start
entry:
    lda #$01
    sta $d200
    jmp entry
`
	a := New(map[string]string{"main.asm": src})
	prog, err := a.Assemble("main.asm")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(prog.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(prog.Segments))
	}
	seg := prog.Segments[0]
	if seg.Origin != 0x4000 {
		t.Fatalf("origin = 0x%04X, want 0x4000", seg.Origin)
	}
	want := []byte{0xA9, 0x01, 0x8D, 0x00, 0xD2, 0x4C, 0x00, 0x40}
	if string(seg.Bytes) != string(want) {
		t.Fatalf("bytes = % X, want % X", seg.Bytes, want)
	}
	if v, ok := prog.LookupSymbol("entry"); !ok || v != 0x4000 {
		t.Fatalf("entry = %v,%v, want 0x4000,true", v, ok)
	}
}

func TestAssemble_BranchExactlyAtMaxRange(t *testing.T) {
	// spec.md §8 scenario 4: offset 127 assembles cleanly.
	src := "org $1000\n" +
		"bne target\n" +
		".byte " + fillerBytes(127) + "\n" +
		"target:\n" +
		"    nop\n"
	a := New(map[string]string{"main.asm": src})
	prog, err := a.Assemble("main.asm")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	b := prog.Segments[0].Bytes
	if b[0] != 0xD0 || b[1] != 0x7F {
		t.Fatalf("branch encoding = % X, want D0 7F", b[:2])
	}
}

func TestAssemble_BranchOneByteOutOfRange(t *testing.T) {
	// spec.md §8 scenario 4: offset 128 must fail with the correct line.
	src := "org $1000\n" +
		"bne target\n" +
		".byte " + fillerBytes(128) + "\n" +
		"target:\n" +
		"    nop\n"
	a := New(map[string]string{"main.asm": src})
	_, err := a.Assemble("main.asm")
	if err == nil {
		t.Fatal("expected branch-out-of-range error")
	}
	ae, ok := err.(*AssemblerError)
	if !ok {
		t.Fatalf("error type = %T, want *AssemblerError", err)
	}
	if ae.Kind != ErrBranchOutOfRange {
		t.Fatalf("Kind = %v, want ErrBranchOutOfRange", ae.Kind)
	}
	if ae.Line != 2 {
		t.Fatalf("Line = %d, want 2", ae.Line)
	}
}

func TestAssemble_DuplicateLabelFails(t *testing.T) {
	src := `
org $2000
foo:
    nop
foo:
    nop
`
	a := New(map[string]string{"main.asm": src})
	_, err := a.Assemble("main.asm")
	if err == nil {
		t.Fatal("expected duplicate label error")
	}
	ae, ok := err.(*AssemblerError)
	if !ok || ae.Kind != ErrDuplicateLabel {
		t.Fatalf("error = %v, want ErrDuplicateLabel", err)
	}
}

func TestAssemble_UndefinedSymbolFails(t *testing.T) {
	src := `
org $2000
    lda nosuch
`
	a := New(map[string]string{"main.asm": src})
	_, err := a.Assemble("main.asm")
	if err == nil {
		t.Fatal("expected undefined symbol error")
	}
	ae, ok := err.(*AssemblerError)
	if !ok || ae.Kind != ErrUndefinedSymbol {
		t.Fatalf("error = %v, want ErrUndefinedSymbol", err)
	}
}

func TestAssemble_ForwardReferenceResolvesAbsolute(t *testing.T) {
	// A forward-referenced operand cannot be proven <= 0xFF during layout,
	// so it must widen to the absolute-addressing encoding even though the
	// final value happens to be a zero-page address.
	src := `
org $2000
    lda target
target = $0050
`
	a := New(map[string]string{"main.asm": src})
	prog, err := a.Assemble("main.asm")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	b := prog.Segments[0].Bytes
	if len(b) != 3 || b[0] != 0xAD {
		t.Fatalf("bytes = % X, want 3-byte absolute LDA (AD ..)", b)
	}
}

func TestAssemble_BackReferenceUsesZeroPage(t *testing.T) {
	src := `
org $2000
target = $0050
    lda target
`
	a := New(map[string]string{"main.asm": src})
	prog, err := a.Assemble("main.asm")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	b := prog.Segments[0].Bytes
	if len(b) != 2 || b[0] != 0xA5 || b[1] != 0x50 {
		t.Fatalf("bytes = % X, want A5 50", b)
	}
}

func TestAssemble_ConditionalSkipsInactiveBranch(t *testing.T) {
	src := `
org $2000
flag = 0
.if flag
    lda #$01
.else
    lda #$02
.endif
`
	a := New(map[string]string{"main.asm": src})
	prog, err := a.Assemble("main.asm")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	b := prog.Segments[0].Bytes
	if len(b) != 2 || b[1] != 0x02 {
		t.Fatalf("bytes = % X, want A9 02 (the .else branch)", b)
	}
}

func TestAssemble_ConditionalTakesTrueBranch(t *testing.T) {
	src := `
org $2000
flag = 1
.if flag
    lda #$01
.else
    lda #$02
.endif
`
	a := New(map[string]string{"main.asm": src})
	prog, err := a.Assemble("main.asm")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	b := prog.Segments[0].Bytes
	if len(b) != 2 || b[1] != 0x01 {
		t.Fatalf("bytes = % X, want A9 01 (the .if branch)", b)
	}
}

func TestAssemble_ByteAndWordDirectives(t *testing.T) {
	src := `
org $3000
    .byte $01,$02,$03
    .word $1234
`
	a := New(map[string]string{"main.asm": src})
	prog, err := a.Assemble("main.asm")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []byte{0x01, 0x02, 0x03, 0x34, 0x12}
	if string(prog.Segments[0].Bytes) != string(want) {
		t.Fatalf("bytes = % X, want % X", prog.Segments[0].Bytes, want)
	}
}

func TestAssemble_IclSplicesIncludedFile(t *testing.T) {
	a := New(map[string]string{
		"main.asm":  "org $2000\nicl \"sub.asm\"\n    nop\n",
		"sub.asm":   "    lda #$AA\n",
	})
	prog, err := a.Assemble("main.asm")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []byte{0xA9, 0xAA, 0xEA}
	if string(prog.Segments[0].Bytes) != string(want) {
		t.Fatalf("bytes = % X, want % X", prog.Segments[0].Bytes, want)
	}
}

func TestAssemble_MissingIncludeFails(t *testing.T) {
	a := New(map[string]string{"main.asm": "icl \"missing.asm\"\n"})
	_, err := a.Assemble("main.asm")
	if err == nil {
		t.Fatal("expected include-not-found error")
	}
	ae, ok := err.(*AssemblerError)
	if !ok || ae.Kind != ErrIncludeNotFound {
		t.Fatalf("error = %v, want ErrIncludeNotFound", err)
	}
}

func TestAssemble_LocalLabelsScopeToEnclosingGlobal(t *testing.T) {
	src := `
org $2000
first:
@loop:
    dex
    bne @loop
second:
@loop:
    dey
    bne @loop
`
	a := New(map[string]string{"main.asm": src})
	prog, err := a.Assemble("main.asm")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(prog.Segments[0].Bytes) != 6 {
		t.Fatalf("bytes len = %d, want 6 (two 1-byte ops + two 2-byte branches)", len(prog.Segments[0].Bytes))
	}
}

func TestAssemble_IniMaterializesInitKind(t *testing.T) {
	src := `
org $4000
    lda #$00
ini $4000
`
	a := New(map[string]string{"main.asm": src})
	prog, err := a.Assemble("main.asm")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if prog.Segments[0].Kind != "INIT" || prog.Segments[0].InitAddr != 0x4000 {
		t.Fatalf("segment = %+v, want Kind=INIT InitAddr=0x4000", prog.Segments[0])
	}
}

func TestAssemble_ErrorDirectiveAborts(t *testing.T) {
	src := "org $2000\n.error \"unreachable configuration\"\n"
	a := New(map[string]string{"main.asm": src})
	_, err := a.Assemble("main.asm")
	if err == nil {
		t.Fatal("expected .error directive to abort assembly")
	}
	ae, ok := err.(*AssemblerError)
	if !ok || ae.Kind != ErrDirective {
		t.Fatalf("error = %v, want ErrDirective", err)
	}
}
