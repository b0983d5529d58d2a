// Package xex implements spec.md §4.J: packing assembled segments into the
// little-endian Atari DOS executable (XEX) file format.
//
// Grounded on sap_parser.go's parseBlocks, which reads the mirror-image
// format (little-endian start/end address pairs followed by a data block,
// repeated until a terminator) — this package is its write-side
// counterpart, using the same address-pair framing.
package xex

import "fmt"

// Segment is one contiguous, independently-addressed chunk of the output
// file (spec.md §3 "XEX segment").
type Segment struct {
	Start int
	Bytes []byte
}

// Writer accumulates segments in emission order and serializes them to the
// XEX byte format (spec.md §4.J). The zero value is ready to use.
type Writer struct {
	segments []Segment
	runAddr  *int
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// AddSegment appends a data segment at the given start address. Segments
// are emitted in the order added; the same address may appear in multiple
// segments, with later ones overwriting earlier ones on load (spec.md
// §4.J invariants).
func (w *Writer) AddSegment(start int, bytes []byte) {
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	w.segments = append(w.segments, Segment{Start: start, Bytes: cp})
}

// SetRun materializes the RUN vector as a 2-byte little-endian write at
// 0x02E0/0x02E1, in emission order (spec.md §4.J, §6: "the RUN vector
// produced by the linker must point [to `start`]").
func (w *Writer) SetRun(addr int) {
	a := addr
	w.runAddr = &a
	w.AddSegment(0x02E0, []byte{byte(addr & 0xFF), byte((addr >> 8) & 0xFF)})
}

// SetInit materializes an INIT vector write at 0x02E2/0x02E3, in emission
// order (spec.md §4.J: "INIT segments keep their `ini <addr>` directive
// materialized as a 0x02E2/0x02E3 write at the end of that segment").
func (w *Writer) SetInit(addr int) {
	w.AddSegment(0x02E2, []byte{byte(addr & 0xFF), byte((addr >> 8) & 0xFF)})
}

// HasRun reports whether SetRun has been called.
func (w *Writer) HasRun() bool { return w.runAddr != nil }

// RunAddr returns the RUN address set via SetRun, or 0 if none was set.
func (w *Writer) RunAddr() int {
	if w.runAddr == nil {
		return 0
	}
	return *w.runAddr
}

// Bytes serializes all segments into the final XEX byte stream: a single
// leading $FF $FF magic, followed by each segment as
// start_lo,start_hi,end_lo,end_hi,bytes... (spec.md §4.J).
func (w *Writer) Bytes() []byte {
	out := make([]byte, 0, 2+len(w.segments)*6)
	out = append(out, 0xFF, 0xFF)
	for _, seg := range w.segments {
		end := seg.Start + len(seg.Bytes) - 1
		out = append(out,
			byte(seg.Start&0xFF), byte((seg.Start>>8)&0xFF),
			byte(end&0xFF), byte((end>>8)&0xFF),
		)
		out = append(out, seg.Bytes...)
	}
	return out
}

// Verify checks spec.md §8 P8 ("XEX well-formed") against a serialized
// file: the magic is present, every segment header's length matches its
// payload, and the RUN pair exists and points within an emitted segment.
func Verify(xexBytes []byte) error {
	if len(xexBytes) < 2 || xexBytes[0] != 0xFF || xexBytes[1] != 0xFF {
		return fmt.Errorf("xex: missing FF FF file magic")
	}

	type span struct{ start, end int }
	var spans []span
	var runAddr *int

	i := 2
	for i < len(xexBytes) {
		if i+4 > len(xexBytes) {
			return fmt.Errorf("xex: truncated segment header at byte %d", i)
		}
		start := int(xexBytes[i]) | int(xexBytes[i+1])<<8
		end := int(xexBytes[i+2]) | int(xexBytes[i+3])<<8
		i += 4
		length := end - start + 1
		if length < 0 || i+length > len(xexBytes) {
			return fmt.Errorf("xex: segment [0x%04X,0x%04X] has invalid length or overruns file", start, end)
		}
		if start == 0x02E0 {
			if length != 2 {
				return fmt.Errorf("xex: RUN vector segment must be exactly 2 bytes, got %d", length)
			}
			a := int(xexBytes[i]) | int(xexBytes[i+1])<<8
			runAddr = &a
		}
		spans = append(spans, span{start, end})
		i += length
	}

	if runAddr == nil {
		return fmt.Errorf("xex: no RUN vector segment present")
	}
	for _, s := range spans {
		if *runAddr >= s.start && *runAddr <= s.end {
			return nil
		}
	}
	return fmt.Errorf("xex: RUN address 0x%04X is not within any emitted segment", *runAddr)
}
