package flattext

import (
	"errors"
	"fmt"
)

// ErrSkipUnsupported is returned by ProcessRow when the caller's
// execution context disabled skip support but the configuration expects
// a header row or leading skip rows. It signals a caller/configuration
// mismatch, not a per-row data error; the stream itself is unaffected.
var ErrSkipUnsupported = errors.New(
	"header row and skip-row options are not supported in this execution context")

// ParseError reports a line that could not be tokenized or mapped to a
// record. It carries the offending raw line so callers can log it or
// collect it for review, and wraps the underlying cause.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse row [%s]: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
