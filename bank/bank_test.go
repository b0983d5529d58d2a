package bank

import (
	"errors"
	"testing"
)

func TestPack_RawSingleBank(t *testing.T) {
	stream := make([]byte, 16)
	for i := range stream {
		stream[i] = byte(i)
	}
	res, err := Pack(stream, RawCodec{Filler: 0x00}, 1, false)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if len(res.Banks) != 1 {
		t.Fatalf("got %d banks, want 1", len(res.Banks))
	}
	if len(res.Banks[0].Bytes) != BankSize {
		t.Fatalf("bank length = %d, want %d", len(res.Banks[0].Bytes), BankSize)
	}
	for i := 0; i < 16; i++ {
		if res.Banks[0].Bytes[i] != byte(i) {
			t.Errorf("byte %d = %d, want %d", i, res.Banks[0].Bytes[i], i)
		}
	}
	for i := 16; i < BankSize; i++ {
		if res.Banks[0].Bytes[i] != 0 {
			t.Fatalf("padding byte %d not zero: %d", i, res.Banks[0].Bytes[i])
		}
	}
}

func TestPack_MaxBanksTruncatesWithWarning(t *testing.T) {
	stream := make([]byte, BankSize*3)
	res, err := Pack(stream, RawCodec{}, 2, false)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if len(res.Banks) != 2 {
		t.Fatalf("got %d banks, want 2", len(res.Banks))
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a truncation warning")
	}
}

func TestPack_StrictModeErrorsOnTruncation(t *testing.T) {
	stream := make([]byte, BankSize*3)
	_, err := Pack(stream, RawCodec{}, 2, true)
	if err == nil {
		t.Fatal("expected an error in strict mode when input exceeds max_banks")
	}
}

func TestPack_MultipleBanksExactFit(t *testing.T) {
	stream := make([]byte, BankSize*2)
	res, err := Pack(stream, RawCodec{}, 4, false)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if len(res.Banks) != 2 {
		t.Fatalf("got %d banks, want 2", len(res.Banks))
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

// shrinkingCodec simulates a content-dependent codec (like DeltaLZ) whose
// encoded size only fits below a fixed sample threshold, forcing Pack to
// shrink its candidate window.
type shrinkingCodec struct {
	maxFit int
}

func (c shrinkingCodec) MaxSamples(bankIndex int) int { return BankSize }

func (c shrinkingCodec) EncodeBank(samples []byte, bankIndex int) (Encoded, error) {
	if len(samples) > c.maxFit {
		return Encoded{}, ErrOverflow
	}
	return Encoded{Bytes: PadTo(samples, 0)}, nil
}

func TestPack_ShrinksOnOverflow(t *testing.T) {
	stream := make([]byte, 100)
	res, err := Pack(stream, shrinkingCodec{maxFit: 37}, 10, false)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	for i, b := range res.Banks {
		count := 0
		for _, v := range b.Bytes {
			_ = v
			count++
		}
		_ = i
		_ = count
	}
	if res.SamplesUsed != 100 {
		t.Fatalf("SamplesUsed = %d, want 100", res.SamplesUsed)
	}
}

func TestPack_UnencodableMinimumReportsOverflow(t *testing.T) {
	stream := []byte{1}
	impossible := shrinkingCodec{maxFit: 0}
	_, err := Pack(stream, impossible, 10, false)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestPadTo_PanicsWhenTooLong(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected PadTo to panic on oversize input")
		}
	}()
	PadTo(make([]byte, BankSize+1), 0)
}
