package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type ConnectionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

type APIConfig struct {
	Domain     string `yaml:"domain"`
	Dataset    string `yaml:"dataset"`
	AppToken   string `yaml:"app_token,omitempty"`
	Timeout    string `yaml:"timeout,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

type StagingConfig struct {
	Table   string              `yaml:"table"`
	PostSQL string              `yaml:"post_sql,omitempty"`
	Filters map[string][]string `yaml:"filters,omitempty"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	API        APIConfig        `yaml:"api"`
	Staging    StagingConfig    `yaml:"staging"`
	Timeout    string           `yaml:"timeout"`
}

const ConfigFileName = "ilsetl.yaml"

// Load reads ilsetl.yaml from dir.
func Load(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", ConfigFileName, ilsetl.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// ApplyAPI fills the unset fields of dst from the api section.
func (c *ProjectConfig) ApplyAPI(dst *ilsetl.APIConfig) error {
	if c == nil {
		return nil
	}
	if dst.Domain == "" {
		dst.Domain = c.API.Domain
	}
	if dst.Dataset == "" {
		dst.Dataset = c.API.Dataset
	}
	if dst.AppToken == "" {
		dst.AppToken = c.API.AppToken
	}
	if dst.MaxRetries == 0 {
		dst.MaxRetries = c.API.MaxRetries
	}
	if dst.Timeout == 0 && c.API.Timeout != "" {
		d, err := time.ParseDuration(c.API.Timeout)
		if err != nil {
			return fmt.Errorf("invalid api.timeout %q: %w", c.API.Timeout, ilsetl.ErrInvalidConfig)
		}
		dst.Timeout = d
	}
	return nil
}

// StagingFilters returns the staging.filters mapping ordered by field name.
func (c *ProjectConfig) StagingFilters() ilsetl.Filters {
	if c == nil {
		return nil
	}
	return ilsetl.FiltersFromMap(c.Staging.Filters)
}

// ParseTimeout returns the top-level timeout, or zero when unset.
func (c *ProjectConfig) ParseTimeout() (time.Duration, error) {
	if c == nil || c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, ilsetl.ErrInvalidConfig)
	}
	return d, nil
}
