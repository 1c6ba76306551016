// Package testinfra starts throwaway PostgreSQL servers for integration tests.
package testinfra

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ImageEnv overrides the PostgreSQL image, e.g. postgres:13 to match a
// production warehouse.
const ImageEnv = "ILSETL_TEST_PG_IMAGE"

const (
	defaultImage = "postgres:17-alpine"
	dbUser       = "ilsetl"
	dbPassword   = "ilsetl"
	dbName       = "ilsetl_test"
	startTimeout = 60 * time.Second
)

// Postgres is a running container and the URI to reach it.
type Postgres struct {
	container  *postgres.PostgresContainer
	ConnString string
	Image      string
}

// Image returns the image StartPostgres will run.
func Image() string {
	if img := os.Getenv(ImageEnv); img != "" {
		return img
	}
	return defaultImage
}

// StartPostgres runs a PostgreSQL container and waits for it to accept
// connections. The ready line appears twice: once for the init run and once
// for the real start.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	image := Image()
	ctr, err := postgres.Run(ctx, image,
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		postgres.WithDatabase(dbName),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", image, err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable", "application_name=ilsetl-test")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("connection string for %s: %w", image, err)
	}
	return &Postgres{container: ctr, ConnString: connStr, Image: image}, nil
}

// Stop removes the container.
func (p *Postgres) Stop(ctx context.Context) error {
	return p.container.Terminate(ctx)
}
