// Package logging implements ilsetl.Logger.
//
// ConsoleLogger is what the CLI uses: plain lines on stderr with [VERBOSE] and
// [ERROR] prefixes. NullLogger is the default for library types constructed
// without a logger, and MemoryLogger records messages for tests.
package logging
