// Package deltalz implements spec.md §4.G: a delta transform followed by a
// custom LZ77 variant whose encoder upholds the circular decode-buffer
// safety invariants required by an in-IRQ 6502 decoder.
//
// Grounded on kelindar-ultima-sdk/internal/anim/frame.go's run-length
// pixel decoder (a small forward-only byte-stream format with literal and
// run tokens decoded into a fixed-size target buffer) for the token
// layout and decode-loop shape, and on sap_parser.go's block-scanning loop
// (walk a byte stream, interpret a small header, stop at a sentinel) for
// the overall Decode/Simulate structure.
//
// Unlike vqcodec and bank.RawCodec, this package does not implement
// bank.Codec: spec.md §4.G invariant 5 requires the circular decode
// buffer's write pointer to carry state across bank boundaries, which is
// a genuine sequential dependency the generic, independently-parallelizable
// bank.Codec/bank.Pack abstraction does not model. Encode
// instead owns bank-boundary discovery itself, threading the buffer state
// through in order.
package deltalz

import (
	"fmt"

	"github.com/intuitionamiga/pokeyxex/bank"
)

// BufSize is the target's circular decode buffer size, 0x8000..0xBFFF
// (spec.md §3/§6).
const BufSize = bank.BankSize

// Mode selects the bank-time feasibility budget (spec.md §4.G "Modes").
type Mode int

const (
	ModeScalar Mode = iota
	Mode1CPS
)

func (m Mode) String() string {
	if m == Mode1CPS {
		return "1cps"
	}
	return "scalar"
}

// Approximate 6502 cycles spent decoding one output byte under each mode,
// used only for the feasibility pre-check (spec.md §4.G: "the encoder only
// differs in how it pre-checks feasibility").
const (
	CyclesPerByteScalar = 18.0
	CyclesPerByte1CPS   = 24.0
)

// cpuClock is the POKEY/6502 shared PAL clock (spec.md §4.D/§6).
const cpuClock = 1_773_447.0

// CheckFeasibility reports whether decoding at sample rate fs leaves enough
// 6502 cycles per sample for the chosen mode's estimated per-byte decode
// cost. A false result is a warning-level condition (spec.md §7), never a
// hard error.
func CheckFeasibility(mode Mode, fs float64) (cyclesAvailable, cyclesNeeded float64, ok bool) {
	cyclesAvailable = cpuClock / fs
	cyclesNeeded = CyclesPerByteScalar
	if mode == Mode1CPS {
		cyclesNeeded = CyclesPerByte1CPS
	}
	return cyclesAvailable, cyclesNeeded, cyclesAvailable >= cyclesNeeded
}

const (
	minMatch     = 3
	maxMatchLen  = 0x3F + 3 // 66
	maxLiteral   = 0x7F     // 1..127 per token
	chainDepth   = 64
	maxOff2Byte  = 16383
)

// deltaTransform computes d[i] = (s[i]-s[i-1]) mod 256 with s[-1] = accum
// (spec.md §4.G). Byte subtraction wraps mod 256 automatically in Go.
func deltaTransform(samples []byte, accum byte) []byte {
	out := make([]byte, len(samples))
	prev := accum
	for i, s := range samples {
		out[i] = s - prev
		prev = s
	}
	return out
}

// inverseDelta reconstructs samples from a delta stream and initial accum.
func inverseDelta(delta []byte, accum byte) []byte {
	out := make([]byte, len(delta))
	prev := accum
	for i, d := range delta {
		s := prev + d
		out[i] = s
		prev = s
	}
	return out
}

// encodeDeltaLZ compresses delta into the token format of spec.md §4.G,
// given the circular buffer's write pointer startDst (0..BufSize-1) at the
// start of this bank. Matches and literal runs are split at every absolute
// multiple of BufSize (invariants 1/2), and match offsets never reference
// bytes written before the current lap (invariant 3).
func encodeDeltaLZ(delta []byte, startDst int) []byte {
	n := len(delta)
	out := make([]byte, 0, n/2+4)

	type chainKey [3]byte
	chains := map[chainKey][]int{}

	lapStart := 0
	nextWrap := BufSize - startDst%BufSize
	if nextWrap == 0 {
		nextWrap = BufSize
	}

	resetLap := func(pos int) {
		lapStart = pos
		chains = map[chainKey][]int{}
		nextWrap = pos + BufSize
	}

	i := 0
	for i < n {
		if i >= nextWrap {
			resetLap(i)
		}
		remainToWrap := nextWrap - i

		bestLen, bestOff := 0, 0
		if i+minMatch <= n {
			key := chainKey{delta[i], delta[i+1], delta[i+2]}
			chain := chains[key]
			tries := 0
			maxLen := maxMatchLen
			if n-i < maxLen {
				maxLen = n - i
			}
			if remainToWrap < maxLen {
				maxLen = remainToWrap
			}
			for j := len(chain) - 1; j >= 0 && tries < chainDepth; j-- {
				tries++
				cand := chain[j]
				if cand < lapStart {
					continue
				}
				off := i - cand
				if off < 1 || off > maxOff2Byte {
					continue
				}
				l := 0
				for l < maxLen && delta[cand+l] == delta[i+l] {
					l++
				}
				if l >= minMatch && l > bestLen {
					bestLen = l
					bestOff = off
				}
			}
		}

		if bestLen >= minMatch {
			out = appendMatchToken(out, bestLen, bestOff)
			end := i + bestLen
			for k := i; k < end && k+minMatch <= n; k++ {
				key := chainKey{delta[k], delta[k+1], delta[k+2]}
				chains[key] = append(chains[key], k)
			}
			i = end
			continue
		}

		// Literal run: coalesce bytes until a candidate match position
		// appears, the wrap boundary arrives, or the run hits maxLiteral.
		start := i
		for i < n && i-start < maxLiteral {
			if i >= nextWrap {
				break
			}
			if i+minMatch <= n {
				key := chainKey{delta[i], delta[i+1], delta[i+2]}
				chains[key] = append(chains[key], i)
				if i > start && len(chains[key]) > 1 {
					i++
					break
				}
			}
			i++
		}
		out = appendLiteralToken(out, delta[start:i])
	}

	out = append(out, 0x00)
	return out
}

func appendMatchToken(out []byte, length, offset int) []byte {
	l := byte(length-3) & 0x3F
	if offset <= 255 {
		return append(out, 0x80|l, byte(offset))
	}
	return append(out, 0xC0|l, byte(offset&0xFF), byte((offset>>8)&0xFF))
}

func appendLiteralToken(out []byte, lit []byte) []byte {
	if len(lit) == 0 {
		return out
	}
	out = append(out, byte(len(lit)))
	return append(out, lit...)
}

// Encode slices levelStream into DeltaLZ-compressed banks, preserving
// circular-buffer continuity across bank boundaries (spec.md §4.G
// invariant 5). It terminates at stream exhaustion or maxBanks, following
// the same truncation policy as bank.Pack (spec.md §7 MaxBanksExceeded).
func Encode(levelStream []byte, maxBanks int, strict bool) (*bank.Result, error) {
	if len(levelStream) == 0 {
		return &bank.Result{}, nil
	}

	var banks []bank.Encoded
	var warnings []string

	globalDst := 0
	// Seeded from the first sample, not zero: the header is "the byte the
	// delta stream is relative to", and spec.md §8 scenario 3 requires a
	// constant stream to produce an all-zero delta body starting from
	// sample 0 of the first bank. Later banks seed from the true previous
	// sample, preserving cross-bank continuity (spec.md §4.G invariant 5).
	prevLevel := levelStream[0]
	offset := 0

	for len(banks) < maxBanks && offset < len(levelStream) {
		remaining := len(levelStream) - offset
		n := remaining

		var payload []byte
		for {
			chunk := levelStream[offset : offset+n]
			header := prevLevel
			delta := deltaTransform(chunk, header)
			tokens := encodeDeltaLZ(delta, globalDst)
			if 1+len(tokens) <= bank.BankSize {
				payload = make([]byte, 0, 1+len(tokens))
				payload = append(payload, header)
				payload = append(payload, tokens...)
				break
			}
			if n <= 1 {
				return nil, fmt.Errorf("%w: deltalz bank %d cannot fit even one sample", bank.ErrOverflow, len(banks))
			}
			shrink := n/8 + 1
			n -= shrink
			if n < 1 {
				n = 1
			}
		}

		banks = append(banks, bank.Encoded{Bytes: bank.PadTo(payload, 0x00)})
		globalDst = (globalDst + n) % BufSize
		prevLevel = levelStream[offset+n-1]
		offset += n
	}

	if offset < len(levelStream) {
		msg := fmt.Sprintf("input truncated at max_banks=%d: %d samples discarded", maxBanks, len(levelStream)-offset)
		if strict {
			return nil, fmt.Errorf("deltalz: %s (strict mode)", msg)
		}
		warnings = append(warnings, msg)
	}

	return &bank.Result{Banks: banks, Warnings: warnings, SamplesUsed: offset}, nil
}

// Decode reverses one bank's token stream and delta transform, returning
// the original level-index bytes (spec.md §8 P4 "LZ round-trip").
func Decode(bankBytes []byte) ([]byte, error) {
	if len(bankBytes) < 1 {
		return nil, fmt.Errorf("deltalz: bank payload empty")
	}
	header := bankBytes[0]
	delta, err := decodeTokens(bankBytes[1:])
	if err != nil {
		return nil, err
	}
	return inverseDelta(delta, header), nil
}

func decodeTokens(toks []byte) ([]byte, error) {
	var out []byte
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t == 0x00 {
			break
		}
		switch {
		case t <= 0x7F:
			n := int(t)
			if i+1+n > len(toks) {
				return nil, fmt.Errorf("deltalz: literal run at byte %d overruns token stream", i)
			}
			out = append(out, toks[i+1:i+1+n]...)
			i += 1 + n
		case t <= 0xBF:
			length := int(t&0x3F) + 3
			if i+1 >= len(toks) {
				return nil, fmt.Errorf("deltalz: truncated 1-byte match token at byte %d", i)
			}
			off := int(toks[i+1])
			if err := copyMatch(&out, off, length); err != nil {
				return nil, err
			}
			i += 2
		default:
			length := int(t&0x3F) + 3
			if i+2 >= len(toks) {
				return nil, fmt.Errorf("deltalz: truncated 2-byte match token at byte %d", i)
			}
			off := int(toks[i+1]) | int(toks[i+2])<<8
			if err := copyMatch(&out, off, length); err != nil {
				return nil, err
			}
			i += 3
		}
	}
	return out, nil
}

func copyMatch(out *[]byte, off, length int) error {
	if off < 1 {
		return fmt.Errorf("deltalz: match offset must be >= 1, got %d", off)
	}
	if off > len(*out) {
		return fmt.Errorf("deltalz: match offset %d exceeds decoded length %d", off, len(*out))
	}
	for k := 0; k < length; k++ {
		*out = append(*out, (*out)[len(*out)-off])
	}
	return nil
}

// Simulate replays one bank's tokens against the circular buffer's write
// pointer starting at startDst, reporting endDst or an error if any
// invariant 1-3 violation is detected (spec.md §8 P5 "LZ buffer safety").
func Simulate(bankBytes []byte, startDst int) (endDst int, err error) {
	if len(bankBytes) < 1 {
		return 0, fmt.Errorf("deltalz: bank payload empty")
	}
	toks := bankBytes[1:]
	dst := startDst % BufSize
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t == 0x00 {
			break
		}
		var outLen, consumed, off int
		switch {
		case t <= 0x7F:
			outLen = int(t)
			consumed = 1 + outLen
		case t <= 0xBF:
			outLen = int(t&0x3F) + 3
			if i+1 >= len(toks) {
				return 0, fmt.Errorf("deltalz: truncated token at byte %d", i)
			}
			off = int(toks[i+1])
			consumed = 2
		default:
			outLen = int(t&0x3F) + 3
			if i+2 >= len(toks) {
				return 0, fmt.Errorf("deltalz: truncated token at byte %d", i)
			}
			off = int(toks[i+1]) | int(toks[i+2])<<8
			consumed = 3
		}
		if dst+outLen > BufSize {
			return 0, fmt.Errorf("deltalz: token at byte %d straddles circular-buffer wrap (dst=%d len=%d)", i, dst, outLen)
		}
		if off > 0 && off > dst {
			return 0, fmt.Errorf("deltalz: token at byte %d references offset %d beyond bytes written since last wrap (%d)", i, off, dst)
		}
		dst += outLen
		if dst == BufSize {
			dst = 0
		}
		i += consumed
	}
	return dst, nil
}
