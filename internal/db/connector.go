package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ilsetl/ilsetl/internal/logging"
	"github.com/ilsetl/ilsetl/internal/retry"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// Pool configuration. A loader owns exactly one session, and temporary
// tables live on that session, so the pool never needs a second connection.
const (
	DefaultMaxConns        = 1
	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger ilsetl.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Info("%s: %s", notice.Severity, notice.Message)
	}
}

func newConnectExecutor(logger ilsetl.Logger) *retry.Executor {
	strategy := retry.NewExponentialBackoff(ilsetl.DefaultRetryMaxAttempts,
		retry.WithInitialDelay(ilsetl.DefaultRetryInitialDelay),
		retry.WithMaxDelay(ilsetl.DefaultRetryMaxDelay),
	)
	return retry.NewExecutor(retry.NewPostgreSQLErrorClassifier(), strategy).
		WithLogger(logger, "connect")
}

// openPool parses connStr, opens a pool and pings it.
func openPool(ctx context.Context, cfg *ilsetl.ConnectionConfig, connStr string, logger ilsetl.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", ilsetl.ErrInvalidConfig)
	}

	configurePool(poolConfig, logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}

	return pool, nil
}

// StandardConnector implements the Connector interface for standard
// username/password authentication with automatic retry on transient failures.
type StandardConnector struct {
	config        *ilsetl.ConnectionConfig
	logger        ilsetl.Logger
	retryExecutor *retry.Executor
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
// A nil logger discards retry and notice output.
func NewStandardConnector(config *ilsetl.ConnectionConfig, logger ilsetl.Logger) *StandardConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &StandardConnector{
		config:        config,
		logger:        logger,
		retryExecutor: newConnectExecutor(logger),
	}
}

// Connect establishes a connection pool using standard authentication with automatic retry.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	connStr := BuildConnectionString(c.config)
	c.logger.Verbose("Connecting to %s", Redact(c.config))

	return retry.Do(ctx, c.retryExecutor, func(ctx context.Context) (*pgxpool.Pool, error) {
		return openPool(ctx, c.config, connStr, c.logger)
	})
}

// NewConnector creates the Connector matching config.AuthMethod.
func NewConnector(config *ilsetl.ConnectionConfig, logger ilsetl.Logger) (ilsetl.Connector, error) {
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	switch config.AuthMethod {
	case ilsetl.AuthMethodStandard:
		return NewStandardConnector(config, logger), nil
	case ilsetl.AuthMethodAWSIAM:
		return newAWSConnector(config, logger)
	case ilsetl.AuthMethodGoogleIAM:
		return newGoogleConnector(config, logger)
	case ilsetl.AuthMethodAzureEntraID:
		return newAzureConnector(config, logger)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, ilsetl.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError adds actionable guidance to raw pgx connection errors.
// The result always matches ilsetl.ErrConnectionFailed.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	var hint string
	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		hint = fmt.Sprintf("connection refused to %s (is PostgreSQL running? try: pg_isready -h %s -p %d)", addr, host, port)
	case strings.Contains(errStr, "no such host"):
		hint = fmt.Sprintf("cannot resolve host %q", host)
	case strings.Contains(errStr, "password authentication failed"):
		hint = fmt.Sprintf("password authentication failed for database %q (check $PGPASSWORD, $DB_PW or ~/.pgpass)", database)
	case strings.Contains(errStr, "does not exist"):
		hint = fmt.Sprintf("database %q does not exist (create it with: createdb %s)", database, database)
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		hint = fmt.Sprintf("connection timed out to %s", addr)
	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		hint = "SSL/TLS negotiation failed (check --sslmode)"
	case strings.Contains(errStr, "too many connections"):
		hint = fmt.Sprintf("too many connections to database %q", database)
	default:
		hint = "failed to connect to database"
	}

	return fmt.Errorf("%s: %w: %w", hint, ilsetl.ErrConnectionFailed, err)
}

func newAWSConnector(config *ilsetl.ConnectionConfig, logger ilsetl.Logger) (ilsetl.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS IAM token provider: %w", err)
	}

	return NewTokenBasedConnector(config, tokenProvider, "AWS IAM", logger), nil
}

func newGoogleConnector(config *ilsetl.ConnectionConfig, logger ilsetl.Logger) (ilsetl.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", ilsetl.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires username (-U): %w", ilsetl.ErrInvalidConfig)
	}

	return NewGoogleCloudSQLConnector(config, config.GoogleInstance, logger), nil
}

// newAzureConnector uses Service Principal auth when tenant, client and secret
// are all set, and the DefaultAzureCredential chain otherwise.
func newAzureConnector(config *ilsetl.ConnectionConfig, logger ilsetl.Logger) (ilsetl.Connector, error) {
	var tokenProvider TokenProvider
	var err error

	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		tokenProvider, err = NewAzureServicePrincipalProvider(config.AzureTenantID, config.AzureClientID, config.AzureClientSecret)
	} else {
		tokenProvider, err = NewAzureDefaultCredentialProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure token provider: %w", err)
	}

	return NewTokenBasedConnector(config, tokenProvider, "Azure", logger), nil
}
