package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ilsetl/ilsetl/internal/logging"
	"github.com/ilsetl/ilsetl/internal/retry"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// TokenProvider hands out short-lived passwords from a cloud identity service.
// String describes the provider for logs and must not reveal the token.
type TokenProvider interface {
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)
	String() string
}

// AzurePostgreSQLScope is the Entra ID scope for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"

// tokenExpiryWarning is how close to expiry a fresh token may be before a warning is logged.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector implements the Connector interface for cloud providers
// that authenticate via short-lived tokens (AWS IAM, Azure Entra ID).
// The token is used as the PostgreSQL password.
type TokenBasedConnector struct {
	config        *ilsetl.ConnectionConfig
	tokenProvider TokenProvider
	providerName  string
	logger        ilsetl.Logger
	retryExecutor *retry.Executor
}

// NewTokenBasedConnector creates a connector that authenticates with tokens from tokenProvider.
// providerName appears in log and error messages.
func NewTokenBasedConnector(config *ilsetl.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger ilsetl.Logger) *TokenBasedConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		providerName:  providerName,
		logger:        logger,
		retryExecutor: newConnectExecutor(logger),
	}
}

// Connect acquires a fresh token on every attempt and opens the pool with it.
func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	c.logger.Verbose("Connecting with %s", c.tokenProvider)

	return retry.Do(ctx, c.retryExecutor, func(ctx context.Context) (*pgxpool.Pool, error) {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire %s token: %w: %w", c.providerName, ilsetl.ErrConnectionFailed, err)
		}

		if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
			c.logger.Info("Warning: %s token expires in %v", c.providerName, remaining.Round(time.Second))
		}

		withToken := *c.config
		withToken.Password = token

		return openPool(ctx, c.config, BuildConnectionString(&withToken), c.logger)
	})
}
