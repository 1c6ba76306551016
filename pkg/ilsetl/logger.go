package ilsetl

// Logger receives printf-style progress messages from the query client, the
// staging loader and the CLI. Implementations must be safe for concurrent use.
//
// Verbose carries diagnostics such as generated where-clauses and result
// sizes. Info carries notices a user expects to see, like
// "Data loaded into table staging_sales".
type Logger interface {
	Verbose(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}
