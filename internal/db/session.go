package db

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// Session pins one pooled connection for its whole lifetime.
// Temporary tables are scoped to a PostgreSQL session, so everything a
// loader stages must go through the same connection.
type Session struct {
	pool   *pgxpool.Pool
	conn   *pgxpool.Conn
	closer io.Closer
}

// OpenSession connects with connector and acquires the session's connection.
// Connectors that hold extra resources (io.Closer) are closed with the session.
func OpenSession(ctx context.Context, connector ilsetl.Connector) (*Session, error) {
	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w: %w", ilsetl.ErrConnectionFailed, err)
	}

	s := &Session{pool: pool, conn: conn}
	if closer, ok := connector.(io.Closer); ok {
		s.closer = closer
	}
	return s, nil
}

// Conn returns the session's dedicated connection.
func (s *Session) Conn() *pgxpool.Conn {
	return s.conn
}

// Close releases the connection and shuts down the pool. Safe to call twice.
func (s *Session) Close() {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	if s.closer != nil {
		_ = s.closer.Close()
		s.closer = nil
	}
}
