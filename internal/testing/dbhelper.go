// Package testing holds helpers shared by integration tests that need a real PostgreSQL.
package testing

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/ilsetl/ilsetl/internal/db"
	"github.com/ilsetl/ilsetl/internal/logging"
	"github.com/ilsetl/ilsetl/internal/testinfra"
)

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error

	dotenvOnce sync.Once
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		container, err := testinfra.StartPostgres(context.Background())
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// loadDotEnv reads the nearest .env walking up from the working directory.
// Existing environment variables are never overridden.
func loadDotEnv() {
	dotenvOnce.Do(func() {
		dir, err := os.Getwd()
		if err != nil {
			return
		}
		for {
			path := filepath.Join(dir, ".env")
			if _, err := os.Stat(path); err == nil {
				_ = godotenv.Load(path)
				return
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				return
			}
			dir = parent
		}
	})
}

// legacyConnString builds a connection string from DB_HOST, DB_NAME, DB_USER and DB_PW.
func legacyConnString() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgresql",
		Host:     host,
		Path:     "/" + os.Getenv("DB_NAME"),
		RawQuery: "sslmode=disable",
	}
	if user := os.Getenv("DB_USER"); user != "" {
		u.User = url.UserPassword(user, os.Getenv("DB_PW"))
	}
	return u.String()
}

// GetTestConnectionString returns the test database connection string.
// Priority: ILSETL_TEST_CONN > DB_* variables (also from .env) > testcontainer > skip.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv("ILSETL_TEST_CONN"); connString != "" {
		return connString
	}

	loadDotEnv()
	if connString := legacyConnString(); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("ILSETL_TEST_CONN not set and Docker unavailable: %v", err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// OpenTestSession opens a single-connection session on the test database.
// The session is closed when the test completes.
func OpenTestSession(t *testing.T) *db.Session {
	t.Helper()

	connString := RequireDatabase(t)
	cfg, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("Failed to parse test connection string: %v", err)
	}

	session, err := db.OpenSession(context.Background(), db.NewStandardConnector(cfg, logging.NewNullLogger()))
	if err != nil {
		t.Fatalf("Failed to open test session: %v", err)
	}
	t.Cleanup(session.Close)
	return session
}

// UniqueTableName returns a table name that will not collide across parallel tests.
func UniqueTableName(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
