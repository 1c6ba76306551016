package staging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ilsetl/ilsetl/internal/db"
	"github.com/ilsetl/ilsetl/internal/logging"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// ErrTransactionInProgress is returned when autocommit is switched while a transaction is open.
var ErrTransactionInProgress = errors.New("transaction in progress")

// Conn is the connection a Loader drives. *pgxpool.Conn and *pgx.Conn implement it.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// querier is what both Conn and pgx.Tx offer for running statements.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Status reports the transaction state of a Loader.
type Status int

const (
	StatusReady Status = iota
	StatusInTransaction
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusInTransaction:
		return "in transaction"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Loader stages records into temporary tables over one connection.
// Methods are serialized; a Loader may be shared but statements never interleave.
type Loader struct {
	mu         sync.Mutex
	conn       Conn
	tx         pgx.Tx
	autocommit bool
	logger     ilsetl.Logger
	release    func()
}

// Option configures a Loader.
type Option func(*Loader)

// WithAutocommit sets the initial autocommit mode. The default is off.
func WithAutocommit(on bool) Option {
	return func(l *Loader) { l.autocommit = on }
}

// WithLogger sets the logger for load notices.
func WithLogger(logger ilsetl.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a Loader on conn. The caller keeps ownership of conn.
// Panics if conn is nil.
func New(conn Conn, opts ...Option) *Loader {
	if conn == nil {
		panic("conn cannot be nil")
	}
	l := &Loader{conn: conn, logger: logging.NewNullLogger()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open connects with connector and returns a Loader that owns the session.
// Close releases it.
func Open(ctx context.Context, connector ilsetl.Connector, opts ...Option) (*Loader, error) {
	session, err := db.OpenSession(ctx, connector)
	if err != nil {
		return nil, err
	}
	l := New(session.Conn(), opts...)
	l.release = session.Close
	return l, nil
}

// target returns where the next statement runs, opening the implicit
// transaction when autocommit is off.
func (l *Loader) target(ctx context.Context) (querier, error) {
	if l.tx != nil {
		return l.tx, nil
	}
	if l.autocommit {
		return l.conn, nil
	}
	if err := l.begin(ctx); err != nil {
		return nil, err
	}
	return l.tx, nil
}

func (l *Loader) begin(ctx context.Context) error {
	tx, err := l.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w: %w", ilsetl.ErrExecutionFailed, err)
	}
	l.tx = tx
	return nil
}

// Execute runs a statement without fetching results.
func (l *Loader) Execute(ctx context.Context, sql string, args ...any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, err := l.target(ctx)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return executionError(sql, err)
	}
	return nil
}

// Run executes a statement and returns all result rows.
func (l *Loader) Run(ctx context.Context, sql string, args ...any) ([]ilsetl.Row, error) {
	_, rows, err := l.Query(ctx, sql, args...)
	return rows, err
}

// Query is Run that also returns the result's column names, read from the
// row description the server sent.
func (l *Loader) Query(ctx context.Context, sql string, args ...any) ([]string, []ilsetl.Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, err := l.target(ctx)
	if err != nil {
		return nil, nil, err
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, nil, executionError(sql, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	result := []ilsetl.Row{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, executionError(sql, err)
		}
		result = append(result, ilsetl.Row(values))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, executionError(sql, err)
	}
	return columns, result, nil
}

// TableName folds ASCII letters in name to lower case, the way PostgreSQL
// treats an unquoted identifier. The staging table is created under the
// folded name so post-load SQL can refer to it without quotes.
func TableName(name string) string {
	b := []byte(name)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Load creates the temporary table and copies every record into it.
// The table name is folded with TableName.
//
// Columns are the union of all record keys in first-seen order, all TEXT.
// Records lacking a column get "" in it. Returns the number of rows copied.
func (l *Loader) Load(ctx context.Context, records []ilsetl.Record, table string) (int64, error) {
	if table == "" {
		return 0, fmt.Errorf("staging table name is required: %w", ilsetl.ErrInvalidConfig)
	}
	if len(records) == 0 {
		return 0, ilsetl.ErrNoRecords
	}

	table = TableName(table)
	columns := Columns(records)
	if len(columns) == 0 {
		return 0, fmt.Errorf("records have no fields: %w", ilsetl.ErrNoRecords)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	q, err := l.target(ctx)
	if err != nil {
		return 0, err
	}

	create := createTableSQL(table, columns)
	if _, err := q.Exec(ctx, create); err != nil {
		return 0, executionError(create, err)
	}

	src := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		return rowValues(records[i], columns)
	})
	n, err := q.CopyFrom(ctx, pgx.Identifier{table}, columns, src)
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w: %w", table, ilsetl.ErrExecutionFailed, err)
	}

	l.logger.Info("Data loaded into table %s", table)
	l.logger.Verbose("Copied %d rows, %d columns", n, len(columns))
	return n, nil
}

func createTableSQL(table string, columns []string) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = pgx.Identifier{col}.Sanitize() + " TEXT"
	}
	return "CREATE TEMP TABLE " + pgx.Identifier{table}.Sanitize() + " (" + strings.Join(defs, ", ") + ")"
}

// Begin opens a transaction. It is a no-op when one is already open.
func (l *Loader) Begin(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tx != nil {
		return nil
	}
	return l.begin(ctx)
}

// Commit commits the open transaction. It is a no-op when none is open.
func (l *Loader) Commit(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tx == nil {
		return nil
	}
	tx := l.tx
	l.tx = nil
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w: %w", ilsetl.ErrExecutionFailed, err)
	}
	return nil
}

// Rollback aborts the open transaction. It is a no-op when none is open.
func (l *Loader) Rollback(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.rollback(ctx)
}

func (l *Loader) rollback(ctx context.Context) error {
	if l.tx == nil {
		return nil
	}
	tx := l.tx
	l.tx = nil
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback: %w: %w", ilsetl.ErrExecutionFailed, err)
	}
	return nil
}

// SetAutocommit switches transaction behavior. Setting the current value is a no-op.
// Switching while a transaction is open returns ErrTransactionInProgress.
func (l *Loader) SetAutocommit(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.autocommit == on {
		return nil
	}
	if l.tx != nil {
		return fmt.Errorf("cannot change autocommit: %w", ErrTransactionInProgress)
	}
	l.autocommit = on
	return nil
}

// Autocommit reports the current autocommit mode.
func (l *Loader) Autocommit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.autocommit
}

// Status reports whether a transaction is open.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tx != nil {
		return StatusInTransaction
	}
	return StatusReady
}

// Close rolls back any open transaction and releases an owned session.
// Temporary tables are dropped by the server when the session ends.
func (l *Loader) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.rollback(ctx)
	if l.release != nil {
		l.release()
		l.release = nil
	}
	return err
}

func executionError(sql string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (SQLSTATE %s) in %q: %w: %w", pgErr.Message, pgErr.Code, abbreviate(sql), ilsetl.ErrExecutionFailed, err)
	}
	return fmt.Errorf("execute %q: %w: %w", abbreviate(sql), ilsetl.ErrExecutionFailed, err)
}

// abbreviate shortens SQL for error messages.
func abbreviate(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	const maxLen = 80
	if len(sql) > maxLen {
		return sql[:maxLen-3] + "..."
	}
	return sql
}
