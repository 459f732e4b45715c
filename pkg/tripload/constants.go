package tripload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Load completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to database
	ExitApprovalDenied  = 12 // User denied table replacement
	ExitSinkError       = 13 // Destination rejected a write
	ExitDataFormatError = 14 // Source data could not be parsed
	ExitFetchError      = 15 // Source could not be downloaded or opened
)

const (
	// DefaultChunkSize is the number of rows written per append.
	DefaultChunkSize = 100_000

	// DefaultPrimingRows is the number of leading rows read to infer the
	// destination schema. Independent of the chunk size.
	DefaultPrimingRows = 100

	// DefaultLoadTimeout bounds a whole run. Large monthly files take
	// minutes; this only protects against hung connections.
	DefaultLoadTimeout = 2 * time.Hour

	// DefaultForceApprovalCountdown is how long --force waits before
	// replacing a table that holds data, leaving time for Ctrl+C.
	DefaultForceApprovalCountdown = 5 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts.
	DefaultRetryMaxAttempts = 3

	// DefaultPickupColumn and DefaultDropoffColumn are the canonical
	// timestamp column names every variant maps onto.
	DefaultPickupColumn  = "pickup_datetime"
	DefaultDropoffColumn = "dropoff_datetime"

	// ApplicationName is reported to PostgreSQL as application_name.
	ApplicationName = "tripload"
)
