// Package logging provides concrete implementations of the tripload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: writes formatted lines to stderr (or any io.Writer)
//   - NullLogger: discards all messages (useful for testing)
//
// ConsoleLogger.WithRun returns a child logger that tags every line with a
// short run ID, so interleaved output of a long load stays attributable.
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
