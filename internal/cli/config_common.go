package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ilsetl/ilsetl/internal/config"
	"github.com/ilsetl/ilsetl/internal/db"
	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// appTokenEnv holds the sales API application token.
const appTokenEnv = "SODA_APP_TOKEN"

// connectionFlags holds the common connection-related flag values.
type connectionFlags struct {
	connection     string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	auth           string
	awsRegion      string
	googleInstance string
	azureTenantID  string
	azureClientID  string
}

func addConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.connection, "connection", "", "PostgreSQL connection string (URI or ADO.NET)")
	flags.StringVarP(&f.host, "host", "h", "", "Database host")
	flags.IntVarP(&f.port, "port", "p", 0, "Database port")
	flags.StringVarP(&f.username, "username", "U", "", "Database user")
	flags.StringVarP(&f.database, "database", "d", "", "Database name")
	flags.StringVar(&f.sslMode, "sslmode", "", "SSL mode (disable, allow, prefer, require, verify-ca, verify-full)")
	flags.StringVar(&f.auth, "auth", "", "Authentication method (standard, aws, google, azure)")
	flags.StringVar(&f.awsRegion, "aws-region", "", "AWS region for RDS IAM authentication")
	flags.StringVar(&f.googleInstance, "google-instance", "", "Cloud SQL instance (project:region:instance)")
	flags.StringVar(&f.azureTenantID, "azure-tenant-id", "", "Azure tenant ID for Entra ID authentication")
	flags.StringVar(&f.azureClientID, "azure-client-id", "", "Azure client ID for Entra ID authentication")

	_ = cmd.RegisterFlagCompletionFunc("sslmode", completeSSLModes)
	_ = cmd.RegisterFlagCompletionFunc("auth", completeAuthMethods)
}

// apiFlags holds the sales API flag values.
type apiFlags struct {
	domain     string
	dataset    string
	appToken   string
	timeout    time.Duration
	maxRetries int
}

func addAPIFlags(cmd *cobra.Command, f *apiFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.domain, "domain", "", "Open data portal host (default "+ilsetl.DefaultDomain+")")
	flags.StringVar(&f.dataset, "dataset", "", "Dataset identifier (default "+ilsetl.DefaultDataset+")")
	flags.StringVar(&f.appToken, "app-token", "", "Application token (or $"+appTokenEnv+")")
	flags.DurationVar(&f.timeout, "api-timeout", 0, "Timeout for one API request (default 1m)")
	flags.IntVar(&f.maxRetries, "max-retries", 0, "Retries for throttled or failed API requests")
}

// queryFlags holds the record selection flag values.
type queryFlags struct {
	filters []string
	where   string
	limit   int
	all     bool
}

func addQueryFlags(cmd *cobra.Command, f *queryFlags) {
	flags := cmd.Flags()
	flags.StringArrayVar(&f.filters, "filter", nil, "Field filter field=v1,v2 (repeatable; \\, for a literal comma; query=<clause> is kept verbatim)")
	flags.StringVar(&f.where, "where", "", "Raw where-clause, replaces every --filter")
	flags.IntVar(&f.limit, "limit", 0, fmt.Sprintf("Records per request (default %d)", ilsetl.DefaultPageSize))
	flags.BoolVar(&f.all, "all", false, "Page through every matching record")
}

// resolveConnectionFromFlags resolves connection configuration from flags and project config.
func resolveConnectionFromFlags(flags connectionFlags, projectCfg *config.ProjectConfig) (*ilsetl.ConnectionConfig, error) {
	granularFlags := &db.GranularConnFlags{
		Host:     flags.host,
		Port:     flags.port,
		Username: flags.username,
		Database: flags.database,
		SSLMode:  flags.sslMode,
	}

	authFlags := &db.AuthFlags{
		Method:         flags.auth,
		AWSRegion:      flags.awsRegion,
		GoogleInstance: flags.googleInstance,
		AzureTenantID:  flags.azureTenantID,
		AzureClientID:  flags.azureClientID,
	}

	connConfig, err := db.ResolveConnectionParams(flags.connection, granularFlags, authFlags, db.LoadFromEnvironment(), projectCfg)
	if err != nil {
		return nil, err
	}
	if connConfig.AppName == "" {
		connConfig.AppName = "ilsetl"
	}
	return connConfig, nil
}

// resolveAPIConfig merges API settings.
// Priority (highest to lowest): flags > $SODA_APP_TOKEN > ilsetl.yaml > defaults
func resolveAPIConfig(flags apiFlags, projectCfg *config.ProjectConfig) (ilsetl.APIConfig, error) {
	cfg := ilsetl.APIConfig{
		Domain:     flags.domain,
		Dataset:    flags.dataset,
		AppToken:   flags.appToken,
		Timeout:    flags.timeout,
		MaxRetries: flags.maxRetries,
	}
	if cfg.AppToken == "" {
		cfg.AppToken = os.Getenv(appTokenEnv)
	}
	if err := projectCfg.ApplyAPI(&cfg); err != nil {
		return cfg, err
	}

	if cfg.Domain == "" {
		cfg.Domain = ilsetl.DefaultDomain
	}
	if cfg.Dataset == "" {
		cfg.Dataset = ilsetl.DefaultDataset
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = ilsetl.DefaultAPITimeout
	}
	return cfg, cfg.Validate()
}

// buildFilters turns --filter and --where into Filters. Without either,
// the staging.filters mapping of ilsetl.yaml applies.
func buildFilters(flags queryFlags, projectCfg *config.ProjectConfig) (ilsetl.Filters, error) {
	if len(flags.filters) == 0 && flags.where == "" {
		return projectCfg.StagingFilters(), nil
	}

	filters := make(ilsetl.Filters, 0, len(flags.filters)+1)
	for _, raw := range flags.filters {
		f, err := ilsetl.ParseFilter(raw)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if flags.where != "" {
		filters = filters.With(ilsetl.RawQueryKey, flags.where)
	}
	return filters, nil
}

// resolveEffectiveTimeout returns the effective timeout, preferring ilsetl.yaml if flag wasn't set.
func resolveEffectiveTimeout(cmd *cobra.Command, projectCfg *config.ProjectConfig, flagTimeout time.Duration) (time.Duration, error) {
	if projectCfg != nil && projectCfg.Timeout != "" && !cmd.Flags().Changed("timeout") {
		return projectCfg.ParseTimeout()
	}
	return flagTimeout, nil
}

// commandContext returns a context canceled on SIGINT/SIGTERM and, when
// timeout is positive, after timeout.
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// loadProjectConfig loads godotenv and project configuration.
// Returns nil config if ilsetl.yaml does not exist (not an error).
func loadProjectConfig(dir string) (*config.ProjectConfig, error) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	projectCfg, err := config.Load(dir)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return projectCfg, nil
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(logger ilsetl.Logger, connConfig *ilsetl.ConnectionConfig) {
	logger.Verbose("Connection resolved: %s", db.Redact(connConfig))
	logger.Verbose("  Auth Method: %s", connConfig.AuthMethod)
}

// authMethodToString maps an AuthMethod onto its ilsetl.yaml spelling.
func authMethodToString(m ilsetl.AuthMethod) string {
	switch m {
	case ilsetl.AuthMethodAWSIAM:
		return "aws"
	case ilsetl.AuthMethodGoogleIAM:
		return "google"
	case ilsetl.AuthMethodAzureEntraID:
		return "azure"
	default:
		return ""
	}
}

// saveProjectConfig writes connection and API settings to ilsetl.yaml in
// dir, keeping the staging section and timeout of an existing file.
func saveProjectConfig(dir string, connConfig *ilsetl.ConnectionConfig, apiCfg ilsetl.APIConfig) (string, error) {
	configPath := filepath.Join(dir, config.ConfigFileName)

	cfg, err := config.Load(dir)
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			return "", err
		}
		cfg = &config.ProjectConfig{}
	}

	cfg.Connection = config.ConnectionConfig{
		Host:           connConfig.Host,
		Port:           connConfig.Port,
		Username:       connConfig.Username,
		Database:       connConfig.Database,
		SSLMode:        connConfig.SSLMode,
		AuthMethod:     authMethodToString(connConfig.AuthMethod),
		AzureTenantID:  connConfig.AzureTenantID,
		AzureClientID:  connConfig.AzureClientID,
		AWSRegion:      connConfig.AWSRegion,
		GoogleInstance: connConfig.GoogleInstance,
	}
	cfg.API = config.APIConfig{
		Domain:     apiCfg.Domain,
		Dataset:    apiCfg.Dataset,
		MaxRetries: apiCfg.MaxRetries,
	}
	if apiCfg.Timeout > 0 {
		cfg.API.Timeout = apiCfg.Timeout.String()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return configPath, os.WriteFile(configPath, data, 0644)
}
