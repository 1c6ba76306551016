// Package services orchestrates a staging run: fetch records, stage them in a
// temporary table, run follow-up SQL in the same session, then commit.
package services
