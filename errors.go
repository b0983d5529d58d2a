// errors.go - Error kinds for the POKEY-XEX encoding pipeline
//
// Grounded on assembler/ie64asm.go's addError/addWarning accumulation split
// (see _examples/IntuitionAmiga-IntuitionEngine/assembler/ie64asm.go) and
// sap_parser.go's plain errors.New/fmt.Errorf style: no custom error
// framework, just a small sentinel-kind wrapper that supports errors.Is.

package pokeyxex

import (
	"errors"
	"fmt"
)

// Kind classifies a PipelineError per spec.md §7.
type Kind int

const (
	// InvalidConfig: option out of range or mutually exclusive.
	InvalidConfig Kind = iota
	// AudioTooShort: decoded PCM shorter than one sample per bank.
	AudioTooShort
	// BankOverflow: a single compressed unit cannot fit in one bank.
	BankOverflow
	// MaxBanksExceeded: input exceeds capacity (warning unless strict).
	MaxBanksExceeded
	// AssemblerError: failure inside the 6502 assembler (see assembler.ErrorKind).
	AssemblerError
	// XEXTooLarge: final XEX exceeds a configured ceiling.
	XEXTooLarge
)

func (k Kind) String() string {
	switch k {
	case InvalidConfig:
		return "InvalidConfig"
	case AudioTooShort:
		return "AudioTooShort"
	case BankOverflow:
		return "BankOverflow"
	case MaxBanksExceeded:
		return "MaxBanksExceeded"
	case AssemblerError:
		return "AssemblerError"
	case XEXTooLarge:
		return "XEXTooLarge"
	default:
		return "Unknown"
	}
}

// PipelineError is the single error type returned by every stage of the
// pipeline. File/Line are only populated for AssemblerError.
type PipelineError struct {
	Kind    Kind
	Message string
	File    string
	Line    int
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s:%d: %s", e.Kind, e.File, e.Line, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, pokeyxex.ErrInvalidConfig) via a Kind sentinel
// wrapper - callers compare against the exported Err* sentinel values below.
func (e *PipelineError) Is(target error) bool {
	var ke *kindSentinel
	if errors.As(target, &ke) {
		return e.Kind == ke.kind
	}
	return false
}

type kindSentinel struct{ kind Kind }

func (s *kindSentinel) Error() string { return s.kind.String() }

// Sentinels usable with errors.Is(err, pokeyxex.ErrInvalidConfig).
var (
	ErrInvalidConfig    error = &kindSentinel{InvalidConfig}
	ErrAudioTooShort    error = &kindSentinel{AudioTooShort}
	ErrBankOverflow     error = &kindSentinel{BankOverflow}
	ErrMaxBanksExceeded error = &kindSentinel{MaxBanksExceeded}
	ErrAssembler        error = &kindSentinel{AssemblerError}
	ErrXEXTooLarge      error = &kindSentinel{XEXTooLarge}
)

func newErr(kind Kind, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, cause error, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}
