// Command pokeyxex is a thin CLI wrapper around the pokeyxex encoding
// pipeline (spec.md §1: "command-line parsing... delegated", so this stays
// a minimal flag-parsing shim, not a feature surface of its own).
//
// Grounded on the teacher's cmd/ie32to64/main.go: stdlib flag, a single
// positional input argument, a custom Usage printer, -o for output path.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/intuitionamiga/pokeyxex"
)

func main() {
	outFile := flag.String("o", "", "Output XEX path (default: input with .xex extension)")
	compression := flag.String("compression", "vq", "Compression mode: off, lz, vq")
	vecSize := flag.Int("vec-size", 4, "VQ vector size: 2, 4, 8, or 16 (vq only)")
	channels := flag.Int("channels", 1, "POKEY channel count, 1..4")
	rate := flag.Int("rate", 15700, "Target sample rate, Hz")
	maxBanks := flag.Int("max-banks", pokeyxex.MaxBanksHW, "Maximum extended-memory banks, 1..64")
	enhance := flag.Bool("enhance", false, "Apply ZOH-compensation pre-emphasis")
	noiseShaping := flag.Bool("noise-shaping", false, "Use noise-shaped quantization (off/lz only)")
	noiseGate := flag.Int("noise-gate", 0, "VQ noise gate threshold, 0..100")
	mode := flag.String("mode", "scalar", "LZ bank-budget mode: scalar or 1cps")
	strict := flag.Bool("strict", false, "Fail instead of truncating when input exceeds max-banks")
	verbose := flag.Bool("verbose", false, "Report quantization/VQ/feasibility statistics")
	srcRate := flag.Int("src-rate", 0, "Source PCM sample rate, Hz (default: -rate)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pokeyxex [options] input.pcm\n\n")
		fmt.Fprintf(os.Stderr, "Converts raw mono 16-bit signed PCM (already decoded by an external\n")
		fmt.Fprintf(os.Stderr, "tool) into a self-booting Atari XEX executable.\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	inputPath := flag.Arg(0)

	pcm, err := readPCM16(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := pokeyxex.DefaultConfig()
	cfg.Compression = pokeyxex.Compression(*compression)
	cfg.VecSize = *vecSize
	cfg.Channels = *channels
	cfg.Rate = *rate
	cfg.Enhance = *enhance
	cfg.MaxBanks = *maxBanks
	cfg.NoiseShaping = *noiseShaping
	cfg.NoiseGate = *noiseGate
	cfg.Mode = pokeyxex.LZMode(*mode)
	cfg.Strict = *strict
	cfg.Verbose = *verbose
	if cfg.Compression != pokeyxex.CompressionVQ {
		// VecSize is only meaningful for compression=vq; DefaultConfig's 4
		// would otherwise trip Config.Validate's mutual-exclusion check.
		cfg.VecSize = 0
	}

	pipeline, err := pokeyxex.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	inRate := *srcRate
	if inRate == 0 {
		inRate = *rate
	}
	result, err := pipeline.Encode(pcm, inRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if *verbose {
		fmt.Printf("quantized %d samples, mean abs error %.4f\n", result.QuantStats.Samples, result.QuantStats.MeanAbsError())
	}

	outputPath := *outFile
	if outputPath == "" {
		outputPath = trimExt(inputPath) + ".xex"
	}
	if err := os.WriteFile(outputPath, result.XEX, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outputPath, err)
		os.Exit(1)
	}
	banks := 0
	for name := range result.Fragments {
		if strings.HasPrefix(name, "bank_") {
			banks++
		}
	}
	fmt.Printf("wrote %s (%d bytes, %d banks)\n", outputPath, len(result.XEX), banks)
}

// readPCM16 decodes a headerless stream of little-endian int16 mono
// samples into float32 in [-1, 1]. Real audio-file decoding (WAV, FLAC,
// tracker formats, ...) is an external collaborator per spec.md §1; this
// is the minimal already-decoded format this CLI accepts directly.
func readPCM16(path string) ([]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}
	out := make([]float32, len(raw)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		out[i] = float32(v) / 32768.0
	}
	return out, nil
}

func trimExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}
