// Package checksum fingerprints result sets and SQL scripts.
//
// Records hashes the ordered JSON encoding of a result set, so two fetches
// with identical content share a checksum. SQL hashes a script after
// normalization:
//  1. Remove comments (-- and nested /* */), keeping quoted literals intact
//  2. Lowercase everything outside literals
//  3. Collapse whitespace runs to one space and trim
//
// Reformatting a post-load script therefore keeps its checksum.
package checksum
