package ilsetl

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess          = 0  // Command completed successfully
	ExitGeneralError     = 1  // Unknown or unclassified error
	ExitUsageError       = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic            = 3  // Internal panic (unexpected crash)
	ExitConfigError      = 10 // Invalid configuration or parameters
	ExitConnectionError  = 11 // Failed to connect to database
	ExitExecutionFailed  = 13 // SQL execution failed
	ExitAPIRequestFailed = 15 // Sales API request failed
)

const (
	// DefaultDomain is the Socrata host serving the Iowa open data portal.
	DefaultDomain = "data.iowa.gov"

	// DefaultDataset is the Iowa Liquor Sales dataset identifier.
	DefaultDataset = "m3tr-qhgy"

	// DefaultPageSize mirrors the Socrata default $limit.
	DefaultPageSize = 1000

	// DefaultAPITimeout bounds a single API round trip.
	DefaultAPITimeout = 60 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of database connection retries.
	DefaultRetryMaxAttempts = 3

	// DefaultDatabase is the database used when none is configured.
	DefaultDatabase = "postgres"

	// RawQueryKey is the filter key whose value replaces the generated where-clause.
	RawQueryKey = "query"
)
