package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

func TestWrapConnectionError(t *testing.T) {
	tests := []struct {
		name         string
		errMsg       string
		wantContains string
	}{
		{"connection refused", "dial tcp 127.0.0.1:5432: connection refused", "connection refused to db.local:5432"},
		{"actively refused", "No connection could be made because the target machine actively refused it", "connection refused to db.local:5432"},
		{"no such host", "dial tcp: lookup db.local: no such host", `cannot resolve host "db.local"`},
		{"password", `password authentication failed for user "loader"`, `password authentication failed for database "sales"`},
		{"missing database", `database "sales" does not exist`, "createdb sales"},
		{"timeout", "dial tcp: i/o timeout", "connection timed out to db.local:5432"},
		{"tls", "tls: failed to verify certificate", "SSL/TLS"},
		{"too many", "sorry, too many connections already", `too many connections to database "sales"`},
		{"case insensitive", "CONNECTION REFUSED", "connection refused to db.local:5432"},
		{"fallback", "something unexpected", "failed to connect to database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := errors.New(tt.errMsg)
			wrapped := wrapConnectionError(original, "db.local", 5432, "sales")

			assert.Contains(t, wrapped.Error(), tt.wantContains)
			assert.ErrorIs(t, wrapped, original)
			assert.ErrorIs(t, wrapped, ilsetl.ErrConnectionFailed)
		})
	}
}

func TestNewConnector(t *testing.T) {
	t.Run("standard", func(t *testing.T) {
		c, err := NewConnector(&ilsetl.ConnectionConfig{AuthMethod: ilsetl.AuthMethodStandard}, nil)
		assert.NoError(t, err)
		assert.IsType(t, &StandardConnector{}, c)
	})

	t.Run("aws requires region", func(t *testing.T) {
		_, err := NewConnector(&ilsetl.ConnectionConfig{
			AuthMethod: ilsetl.AuthMethodAWSIAM, Host: "rds", Port: 5432, Username: "u",
		}, nil)
		assert.ErrorIs(t, err, ilsetl.ErrInvalidConfig)
	})

	t.Run("aws", func(t *testing.T) {
		c, err := NewConnector(&ilsetl.ConnectionConfig{
			AuthMethod: ilsetl.AuthMethodAWSIAM, Host: "rds", Port: 5432, Username: "u", AWSRegion: "us-east-2",
		}, nil)
		assert.NoError(t, err)
		assert.IsType(t, &TokenBasedConnector{}, c)
	})

	t.Run("google requires instance", func(t *testing.T) {
		_, err := NewConnector(&ilsetl.ConnectionConfig{AuthMethod: ilsetl.AuthMethodGoogleIAM, Username: "u"}, nil)
		assert.ErrorIs(t, err, ilsetl.ErrInvalidConfig)
	})

	t.Run("google", func(t *testing.T) {
		c, err := NewConnector(&ilsetl.ConnectionConfig{
			AuthMethod: ilsetl.AuthMethodGoogleIAM, Username: "u", GoogleInstance: "proj:us-central1:sales",
		}, nil)
		assert.NoError(t, err)
		assert.IsType(t, &GoogleCloudSQLConnector{}, c)
	})

	t.Run("azure service principal", func(t *testing.T) {
		c, err := NewConnector(&ilsetl.ConnectionConfig{
			AuthMethod:    ilsetl.AuthMethodAzureEntraID,
			AzureTenantID: "00000000-0000-0000-0000-000000000001",
			AzureClientID: "00000000-0000-0000-0000-000000000002", AzureClientSecret: "s",
		}, nil)
		assert.NoError(t, err)
		assert.IsType(t, &TokenBasedConnector{}, c)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewConnector(&ilsetl.ConnectionConfig{AuthMethod: ilsetl.AuthMethod(42)}, nil)
		assert.ErrorIs(t, err, ilsetl.ErrUnsupportedAuthMethod)
	})
}

func TestNewAzureServicePrincipalProvider_RequiresAllParams(t *testing.T) {
	_, err := NewAzureServicePrincipalProvider("tenant", "", "secret")
	assert.ErrorIs(t, err, ilsetl.ErrInvalidConfig)
}

func TestAWSIAMTokenProvider_String(t *testing.T) {
	p, err := NewAWSIAMTokenProvider("rds:5432", "us-east-2", "loader")
	assert.NoError(t, err)
	assert.Equal(t, "AWSIAMTokenProvider(endpoint=rds:5432, region=us-east-2, user=loader)", p.String())
}
