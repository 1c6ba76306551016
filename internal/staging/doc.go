// Package staging lands heterogeneous records in session-scoped temporary tables.
//
// A Loader owns a single PostgreSQL connection. Temporary tables live only as
// long as that connection's session, so every statement of a load, and any
// SQL that promotes staged rows into permanent tables, must go through the
// same Loader.
//
// Transactions follow the usual DB-API model: with autocommit off (the
// default) the first statement opens a transaction that stays open until
// Commit or Rollback. With autocommit on each statement commits by itself
// unless Begin was called.
package staging
