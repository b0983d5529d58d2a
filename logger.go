// logger.go - minimal logging seam for the pipeline
//
// Grounded on the teacher's own idiom: IntuitionEngine never pulls in a
// structured logging library (see main.go, sap_parser.go); diagnostics are
// fmt-formatted and written to stderr. This module follows suit with a
// one-method interface so callers can redirect or silence it without the
// pipeline depending on any particular logging package.

package pokeyxex

import (
	"log"
	"os"
)

// Logger is satisfied by *log.Logger; callers may substitute any sink.
type Logger interface {
	Printf(format string, args ...any)
}

// nopLogger discards everything; used when Config.Verbose is false.
type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// defaultLogger mirrors the teacher's plain stderr reporting.
func defaultLogger() Logger {
	return log.New(os.Stderr, "pokeyxex: ", 0)
}
