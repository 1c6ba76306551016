package staging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeConn records every call as a line in log. Statements that reach it
// while a transaction is open are a bug in the Loader.
type fakeConn struct {
	log     []string
	copied  [][]any
	rows    [][]any
	columns []string
	execErr error
	copyErr error
}

func (c *fakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.log = append(c.log, "conn: "+sql)
	return pgconn.NewCommandTag("OK"), c.execErr
}

func (c *fakeConn) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	c.log = append(c.log, "conn: "+sql)
	return &fakeRows{rows: c.rows, columns: c.columns}, c.execErr
}

func (c *fakeConn) Begin(context.Context) (pgx.Tx, error) {
	c.log = append(c.log, "BEGIN")
	return &fakeTx{conn: c}, nil
}

func (c *fakeConn) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	return c.copy("conn", table, columns, src)
}

func (c *fakeConn) copy(via string, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	c.log = append(c.log, fmt.Sprintf("%s: COPY %s (%s)", via, table.Sanitize(), strings.Join(columns, ",")))
	if c.copyErr != nil {
		return 0, c.copyErr
	}
	var n int64
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return n, err
		}
		c.copied = append(c.copied, values)
		n++
	}
	return n, src.Err()
}

// fakeTx embeds pgx.Tx so only the methods the Loader uses need bodies.
type fakeTx struct {
	pgx.Tx
	conn   *fakeConn
	closed bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.conn.log = append(t.conn.log, "tx: "+sql)
	return pgconn.NewCommandTag("OK"), t.conn.execErr
}

func (t *fakeTx) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	t.conn.log = append(t.conn.log, "tx: "+sql)
	return &fakeRows{rows: t.conn.rows, columns: t.conn.columns}, t.conn.execErr
}

func (t *fakeTx) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	return t.conn.copy("tx", table, columns, src)
}

func (t *fakeTx) Commit(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.conn.log = append(t.conn.log, "COMMIT")
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.conn.log = append(t.conn.log, "ROLLBACK")
	return nil
}

// fakeRows embeds pgx.Rows for the same reason as fakeTx.
type fakeRows struct {
	pgx.Rows
	rows    [][]any
	columns []string
	pos     int
}

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.columns))
	for i, name := range r.columns {
		fds[i] = pgconn.FieldDescription{Name: name}
	}
	return fds
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	if r.pos == 0 {
		return nil, errors.New("Values called before Next")
	}
	return r.rows[r.pos-1], nil
}

func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     {}
