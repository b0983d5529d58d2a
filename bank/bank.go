// Package bank implements spec.md §4.E: slicing a quantized level-index
// stream into fixed 16 KB bank-sized payloads, independent of which codec
// (VQ, DeltaLZ, or raw) produces each payload's bytes.
//
// Grounded on sap_parser.go's parseBlocks loop, which walks a byte stream
// slicing it into independently-sized chunks terminated by a marker — the
// same "walk forward, cut a chunk, advance" shape this packer generalizes
// to codec-driven, content-dependent chunk sizes. Per-bank parallel
// encoding uses golang.org/x/sync/errgroup, the concurrency primitive
// promoted for this purpose in DESIGN.md (spec.md §5: bank encodings are
// independent once boundaries are chosen).
package bank

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BankSize is the fixed Atari extended-memory bank size, bytes (spec.md §3).
const BankSize = 0x4000

// ErrOverflow is returned by a Codec's EncodeBank when the given sample
// count cannot be encoded within BankSize bytes. The packer reacts by
// shrinking the candidate window and retrying (spec.md §4.G "Failure").
var ErrOverflow = errors.New("bank: payload exceeds capacity")

// Encoded is one bank's final on-target payload: always exactly BankSize
// bytes (codec-specific padding fills any unused tail, spec.md §4.E).
type Encoded struct {
	Bytes []byte
}

// Codec is the shared interface for the three interchangeable per-bank
// encoders (VQ, DeltaLZ, raw) — spec.md §9 "Polymorphism over codecs":
// "three codecs share a common interface... avoid virtual dispatch in hot
// inner loops by separating the per-sample inner loop from the per-bank
// outer loop." The packer only ever calls this interface; each codec's
// inner sample loop lives entirely inside its own package.
type Codec interface {
	// MaxSamples returns an upper bound on how many input samples bank
	// bankIndex can hold, used to size the initial candidate window before
	// any trial encoding. Codecs with fixed per-bank overhead (VQ, raw)
	// return an exact figure; content-dependent codecs (LZ) return a
	// generous estimate and rely on EncodeBank/ErrOverflow to shrink it.
	MaxSamples(bankIndex int) int

	// EncodeBank encodes exactly len(samples) samples for bank bankIndex,
	// returning a BankSize payload padded with codec-specific filler, or an
	// error wrapping
	// ErrOverflow if samples don't fit.
	EncodeBank(samples []byte, bankIndex int) (Encoded, error)
}

// Result is the outcome of packing a stream into banks.
type Result struct {
	Banks       []Encoded
	Warnings    []string
	SamplesUsed int // total input samples actually packed
}

// Pack slices stream into at most maxBanks banks using codec, terminating
// on stream exhaustion or at maxBanks (spec.md §4.E). If input remains
// after maxBanks banks are filled, it is discarded with a warning, unless
// strict is set, in which case it is a hard error (spec.md §7
// MaxBanksExceeded).
func Pack(stream []byte, codec Codec, maxBanks int, strict bool) (*Result, error) {
	if maxBanks < 1 {
		return nil, fmt.Errorf("bank: max_banks must be >= 1, got %d", maxBanks)
	}

	var offsets, lengths []int
	offset := 0
	for len(offsets) < maxBanks && offset < len(stream) {
		bankIdx := len(offsets)
		n := codec.MaxSamples(bankIdx)
		if n > len(stream)-offset {
			n = len(stream) - offset
		}
		for n > 0 {
			if _, err := codec.EncodeBank(stream[offset:offset+n], bankIdx); err == nil {
				break
			} else if errors.Is(err, ErrOverflow) {
				n--
				continue
			} else {
				return nil, err
			}
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: bank %d cannot hold even its minimum encodable unit", ErrOverflow, bankIdx)
		}
		offsets = append(offsets, offset)
		lengths = append(lengths, n)
		offset += n
	}

	var warnings []string
	if offset < len(stream) {
		msg := fmt.Sprintf("input truncated at max_banks=%d: %d samples discarded", maxBanks, len(stream)-offset)
		if strict {
			return nil, fmt.Errorf("bank: %s (strict mode)", msg)
		}
		warnings = append(warnings, msg)
	}

	banks := make([]Encoded, len(offsets))
	g, _ := errgroup.WithContext(context.Background())
	for i := range offsets {
		i := i
		g.Go(func() error {
			enc, err := codec.EncodeBank(stream[offsets[i]:offsets[i]+lengths[i]], i)
			if err != nil {
				return err
			}
			banks[i] = enc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{Banks: banks, Warnings: warnings, SamplesUsed: offset}, nil
}

// PadTo returns b extended to exactly BankSize bytes, filling the tail with
// filler (spec.md §4.E: "arbitrary filler for RAW"). Panics if b is already
// longer than BankSize, which indicates a codec bug upstream.
func PadTo(b []byte, filler byte) []byte {
	if len(b) > BankSize {
		panic(fmt.Sprintf("bank: payload of %d bytes exceeds BankSize %d", len(b), BankSize))
	}
	if len(b) == BankSize {
		return b
	}
	out := make([]byte, BankSize)
	copy(out, b)
	for i := len(b); i < BankSize; i++ {
		out[i] = filler
	}
	return out
}

// RawCodec implements Codec with no compression: each input byte is one
// output byte, tail-padded with filler (spec.md §4.E/§4.H COMPRESS_MODE=0).
type RawCodec struct {
	Filler byte
}

func (c RawCodec) MaxSamples(bankIndex int) int { return BankSize }

func (c RawCodec) EncodeBank(samples []byte, bankIndex int) (Encoded, error) {
	if len(samples) > BankSize {
		return Encoded{}, fmt.Errorf("%w: %d samples requested, capacity %d", ErrOverflow, len(samples), BankSize)
	}
	return Encoded{Bytes: PadTo(samples, c.Filler)}, nil
}
