package tripload

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	result, err := service.Ingest(ctx, config)
//	if errors.Is(err, tripload.ErrDataFormat) {
//	    // The source file is malformed; earlier chunks are already loaded.
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid:
	// unknown variant, non-positive chunk size, missing table name.
	// Always raised before any write reaches the destination.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDataFormat indicates a source value could not be interpreted,
	// typically an unparseable timestamp.
	ErrDataFormat = errors.New("data format error")

	// ErrSink indicates the destination rejected a write.
	ErrSink = errors.New("sink error")

	// ErrApprovalDenied indicates the user denied replacing an existing table.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrFetchFailed indicates the source resource could not be retrieved.
	ErrFetchFailed = errors.New("fetch failed")
)

// DataFormatError identifies the offending value of a malformed source.
// Row is the zero-based data row (header excluded), or -1 when the problem
// concerns the batch layout rather than a single row. Sources and the loader
// count rows across the whole source; Normalize on its own counts within the
// batch it was given.
type DataFormatError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *DataFormatError) Error() string {
	var b strings.Builder
	b.WriteString("data format error")
	if e.Row >= 0 {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " in column %q", e.Column)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " (value %q)", e.Value)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DataFormatError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDataFormat.
func (e *DataFormatError) Is(target error) bool { return target == ErrDataFormat }

// SinkError describes a write the destination rejected.
type SinkError struct {
	Op    string // "replace" or "append"
	Table string
	Chunk int // sequence index of the batch, -1 for priming
	Err   error
}

func (e *SinkError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("sink %s of chunk %d into %q failed: %v", e.Op, e.Chunk, e.Table, e.Err)
	}
	return fmt.Sprintf("sink %s of %q failed: %v", e.Op, e.Table, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSink.
func (e *SinkError) Is(target error) bool { return target == ErrSink }

// usageErrorPatterns are the message prefixes cobra uses for command-line misuse.
var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"requires at least",
	"required flag",
	"invalid argument",
	"flag needs an argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrDataFormat):
		return ExitDataFormatError
	case errors.Is(err, ErrSink):
		return ExitSinkError
	case errors.Is(err, ErrFetchFailed):
		return ExitFetchError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	}

	errStr := err.Error()
	for _, p := range usageErrorPatterns {
		if strings.HasPrefix(errStr, p) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
