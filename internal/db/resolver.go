package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ilsetl/ilsetl/internal/config"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Password is not a flag. Use $PGPASSWORD, ~/.pgpass or a connection string.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty reports whether no granular flag was given.
func (g *GranularConnFlags) IsEmpty() bool {
	return g == nil || (g.Host == "" && g.Port == 0 && g.Username == "" && g.Database == "" && g.SSLMode == "")
}

// AuthFlags selects a cloud authentication method from the CLI.
// The Azure client secret is only read from $AZURE_CLIENT_SECRET.
type AuthFlags struct {
	Method         string // standard, aws, google, azure
	AWSRegion      string
	GoogleInstance string
	AzureTenantID  string
	AzureClientID  string
}

// EnvVars represents the environment variables that influence connection resolution.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	DATABASE_URL string

	ILSETL_CONNECTION_STRING string

	// Variables used by older .env files of this tool.
	DB_HOST string
	DB_NAME string
	DB_USER string
	DB_PW   string

	AWS_REGION          string
	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment reads EnvVars from the process environment.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:                   os.Getenv("PGHOST"),
		PGPORT:                   os.Getenv("PGPORT"),
		PGUSER:                   os.Getenv("PGUSER"),
		PGPASSWORD:               os.Getenv("PGPASSWORD"),
		PGDATABASE:               os.Getenv("PGDATABASE"),
		PGSSLMODE:                os.Getenv("PGSSLMODE"),
		DATABASE_URL:             os.Getenv("DATABASE_URL"),
		ILSETL_CONNECTION_STRING: os.Getenv("ILSETL_CONNECTION_STRING"),
		DB_HOST:                  os.Getenv("DB_HOST"),
		DB_NAME:                  os.Getenv("DB_NAME"),
		DB_USER:                  os.Getenv("DB_USER"),
		DB_PW:                    os.Getenv("DB_PW"),
		AWS_REGION:               os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:          os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:          os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET:      os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// connectionString returns the first environment connection string that is set.
func (e *EnvVars) connectionString() string {
	if e.ILSETL_CONNECTION_STRING != "" {
		return e.ILSETL_CONNECTION_STRING
	}
	return e.DATABASE_URL
}

// ParseAuthMethod maps a flag or config value onto an AuthMethod.
func ParseAuthMethod(s string) (ilsetl.AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return ilsetl.AuthMethodStandard, nil
	case "aws", "aws-iam":
		return ilsetl.AuthMethodAWSIAM, nil
	case "google", "google-iam", "gcp":
		return ilsetl.AuthMethodGoogleIAM, nil
	case "azure", "entra", "azure-entra-id":
		return ilsetl.AuthMethodAzureEntraID, nil
	default:
		return ilsetl.AuthMethodStandard, fmt.Errorf("%q: %w", s, ilsetl.ErrUnsupportedAuthMethod)
	}
}

// ResolveConnectionParams resolves connection parameters with this precedence:
//
//  1. Connection string flag (--connection)
//  2. $ILSETL_CONNECTION_STRING, then $DATABASE_URL, when no granular flag is set
//  3. Per field: granular flag > PG* variable > DB_* variable > ilsetl.yaml > default
//
// Giving both --connection and granular flags is an error.
//
// Cloud authentication is chosen by the auth flags or the auth_method config
// key. Azure credentials in the environment switch to Azure Entra ID on
// their own, matching the Azure SDK's conventions.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	authFlags *AuthFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*ilsetl.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if authFlags == nil {
		authFlags = &AuthFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U, -d)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://user@localhost:5432/postgres\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U myuser -d mydb\n"+
				"  3. Environment variables: export PGHOST=localhost PGPORT=5432 PGUSER=myuser: %w",
			ilsetl.ErrInvalidConfig,
		)
	}

	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	var cfg *ilsetl.ConnectionConfig
	var err error
	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, envVars)
	case granularFlags.IsEmpty() && envVars.connectionString() != "":
		cfg, err = resolveFromConnectionString(envVars.connectionString(), envVars)
	default:
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	}
	if err != nil {
		return nil, err
	}

	if err := applyAuth(cfg, authFlags, envVars, pc); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyAuth sets the authentication method and its cloud parameters.
func applyAuth(cfg *ilsetl.ConnectionConfig, flags *AuthFlags, env *EnvVars, pc config.ConnectionConfig) error {
	methodName := firstNonEmpty(flags.Method, pc.AuthMethod)
	method, err := ParseAuthMethod(methodName)
	if err != nil {
		return err
	}

	cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	cfg.AzureTenantID = firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
	cfg.AzureClientID = firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
	cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET

	if methodName == "" && (cfg.AzureTenantID != "" || cfg.AzureClientID != "") {
		method = ilsetl.AuthMethodAzureEntraID
	}
	cfg.AuthMethod = method
	return nil
}

// resolveFromConnectionString parses connStr and applies $PGSSLMODE as a fallback.
func resolveFromConnectionString(connStr string, envVars *EnvVars) (*ilsetl.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	cfg.SSLMode = firstNonEmpty(cfg.SSLMode, envVars.PGSSLMODE, "prefer")
	return cfg, nil
}

// resolveFromGranularParams builds a ConnectionConfig field by field.
func resolveFromGranularParams(
	flags *GranularConnFlags,
	envVars *EnvVars,
	pc config.ConnectionConfig,
) (*ilsetl.ConnectionConfig, error) {
	cfg := &ilsetl.ConnectionConfig{
		AuthMethod:       ilsetl.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = firstNonEmpty(flags.Host, envVars.PGHOST, envVars.DB_HOST, pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case envVars.PGPORT != "":
		port, err := strconv.Atoi(envVars.PGPORT)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be a port number: %w", envVars.PGPORT, ilsetl.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = 5432
	}

	cfg.Username = firstNonEmpty(flags.Username, envVars.PGUSER, envVars.DB_USER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = firstNonEmpty(envVars.PGPASSWORD, envVars.DB_PW)
	cfg.Database = firstNonEmpty(flags.Database, envVars.PGDATABASE, envVars.DB_NAME, pc.Database, ilsetl.DefaultDatabase)
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, "prefer")

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
