package vqcodec

import (
	"bytes"
	"testing"
)

func TestEncodeBank_Deterministic(t *testing.T) {
	samples := make([]byte, 2048)
	for i := range samples {
		samples[i] = byte((i * 7) % 46)
	}
	c1 := &Codec{VecSize: 4, Levels: 46, Gate: 5}
	c2 := &Codec{VecSize: 4, Levels: 46, Gate: 5}

	enc1, err := c1.EncodeBank(samples, 3)
	if err != nil {
		t.Fatalf("encode 1: %v", err)
	}
	enc2, err := c2.EncodeBank(samples, 3)
	if err != nil {
		t.Fatalf("encode 2: %v", err)
	}
	if !bytes.Equal(enc1.Bytes, enc2.Bytes) {
		t.Fatal("P6 violated: identical input produced different bank bytes")
	}
}

func TestEncodeBank_SilenceGate(t *testing.T) {
	// 8192 zero samples, vec_size=4, gate=5 (spec.md §8 scenario 2).
	samples := make([]byte, 8192)
	c := &Codec{VecSize: 4, Levels: 46, Gate: 5}
	enc, err := c.EncodeBank(samples, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	codebookBytes := 256 * 4
	codebook0 := enc.Bytes[0:4]
	for _, b := range codebook0 {
		if b != 0 {
			t.Fatalf("codebook entry 0 = %v, want all-zero", codebook0)
		}
	}
	indices := enc.Bytes[codebookBytes : codebookBytes+2048]
	for i, idx := range indices {
		if idx != 0 {
			t.Fatalf("index %d = %d, want 0 for all-silence input", i, idx)
		}
	}
}

func TestEncodeBank_OverflowWhenTooManySamples(t *testing.T) {
	c := &Codec{VecSize: 16, Levels: 46, Gate: 0}
	samples := make([]byte, c.MaxSamples(0)+16)
	_, err := c.EncodeBank(samples, 0)
	if err == nil {
		t.Fatal("expected overflow error for oversized sample batch")
	}
}

func TestReconstruct_MatchesEncodedIndices(t *testing.T) {
	codebook := make([]byte, 256*4)
	codebook[4] = 10 // code 1 = [10,0,0,0]
	indices := []byte{0, 1, 0}
	out := Reconstruct(codebook, indices, 4)
	want := []byte{0, 0, 0, 0, 10, 0, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(out, want) {
		t.Fatalf("Reconstruct = %v, want %v", out, want)
	}
}

func TestMaxSamples_RespectsCapacity(t *testing.T) {
	c := &Codec{VecSize: 4, Levels: 46}
	n := c.MaxSamples(0)
	totalBytes := 256*4 + (n+3)/4
	if totalBytes > 16384 {
		t.Fatalf("MaxSamples=%d implies %d bytes, exceeds bank capacity", n, totalBytes)
	}
}
