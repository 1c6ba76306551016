package ilsetl

import (
	"errors"
	"fmt"
	"time"
)

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is required for AuthMethodAWSIAM.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance).
	GoogleInstance string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// APIConfig describes how to reach the sales API.
type APIConfig struct {
	Domain     string
	Dataset    string
	AppToken   string
	Timeout    time.Duration
	MaxRetries int
}

// Validate checks the API settings.
func (c *APIConfig) Validate() error {
	var errs []error

	if c.Domain == "" {
		errs = append(errs, fmt.Errorf("api domain is required: %w", ErrInvalidConfig))
	}
	if c.Dataset == "" {
		errs = append(errs, fmt.Errorf("api dataset is required: %w", ErrInvalidConfig))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api timeout cannot be negative: %w", ErrInvalidConfig))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("api max retries cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// LoadConfig contains all parameters needed for a staging load.
type LoadConfig struct {
	// Table is the temporary staging table to create
	Table string

	// Filters select the records to fetch
	Filters Filters

	// Limit caps a single page; AllPages keeps paging until the dataset is exhausted
	Limit    int
	AllPages bool

	// PostSQL runs in the same session after staging, before commit
	PostSQL string

	// Autocommit switches the loader to per-statement commits
	Autocommit bool

	// DryRun stages and runs PostSQL, then rolls back
	DryRun bool

	// Preview is the number of staged rows to read back before the transaction ends
	Preview int

	// Timeout is the global timeout for the whole run
	Timeout time.Duration
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if c.Table == "" {
		errs = append(errs, fmt.Errorf("staging table name is required: %w", ErrInvalidConfig))
	}
	if c.Limit < 0 {
		errs = append(errs, fmt.Errorf("limit cannot be negative: %w", ErrInvalidConfig))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}
	if c.Preview < 0 {
		errs = append(errs, fmt.Errorf("preview cannot be negative: %w", ErrInvalidConfig))
	}
	if c.DryRun && c.Autocommit {
		errs = append(errs, fmt.Errorf("dry run cannot be combined with autocommit: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}
