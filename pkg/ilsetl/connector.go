package ilsetl

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connector opens the pool a staging session draws its single connection
// from. Implementations differ in how they authenticate: a password, a cloud
// IAM token, or the Cloud SQL dialer. The caller closes the pool.
type Connector interface {
	Connect(ctx context.Context) (*pgxpool.Pool, error)
}
