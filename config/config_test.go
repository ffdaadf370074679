package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGO_ADMIN", "root")
	t.Setenv("MONGO_ADMIN_PASSWORD", "example")
}

func TestGetConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := GetConfig()

	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.MongoAddress)
	assert.Equal(t, 27017, cfg.MongoPort)
	assert.Empty(t, cfg.MongoReplicaSet)
	assert.Equal(t, "primary", cfg.MongoReadPreference)
	assert.Equal(t, 10*time.Second, cfg.MongoTimeout)
	assert.Equal(t, 3, cfg.DatabaseLimit)
	assert.Equal(t, ":8080", cfg.BindAddress())
	assert.Equal(t, ":9090", cfg.MetricsAddress)
	assert.Equal(t, 30*time.Second, cfg.HealthCheckPeriod)
	assert.Equal(t, 30*time.Second, cfg.TenantListCacheTTL)
	assert.False(t, cfg.EnableHTTPS)
}

func TestGetConfigSuccess(t *testing.T) {
	setRequired(t)
	t.Setenv("MONGO_DB_ADDRESS", "mongo-0.mongo")
	t.Setenv("MONGO_DB_PORT", "27018")
	t.Setenv("MONGO_DB_REPLICA_SET", "rs0")
	t.Setenv("MONGO_READ_PREFERENCE", "secondaryPreferred")
	t.Setenv("MONGO_OPERATION_TIMEOUT", "3s")
	t.Setenv("DATABASE_NUMBER_LIMIT", "1")
	t.Setenv("MONGO_API_SERVER_PORT", "3000")
	t.Setenv("ENABLE_HTTPS", "true")
	t.Setenv("HTTPS_CERT_FILE", "/some/tls.crt")
	t.Setenv("HTTPS_KEY_FILE", "/some/tls.key")
	t.Setenv("METRICS_ADDRESS", ":9999")

	cfg, err := GetConfig()

	require.NoError(t, err)
	assert.Equal(t, "mongo-0.mongo", cfg.MongoAddress)
	assert.Equal(t, 27018, cfg.MongoPort)
	assert.Equal(t, "rs0", cfg.MongoReplicaSet)
	assert.Equal(t, 3*time.Second, cfg.MongoTimeout)
	assert.Equal(t, 1, cfg.DatabaseLimit)
	assert.Equal(t, ":3000", cfg.BindAddress())
	assert.True(t, cfg.EnableHTTPS)
	assert.Equal(t, ":9999", cfg.MetricsAddress)

	conn, err := cfg.Connection()
	require.NoError(t, err)
	assert.Equal(t, "mongo-0.mongo:27018", conn.Address())
}

func TestServerAddressOverridesPort(t *testing.T) {
	setRequired(t)
	t.Setenv("MONGO_API_SERVER_PORT", "3000")
	t.Setenv("SERVER_ADDRESS", "127.0.0.1:8888")

	cfg, err := GetConfig()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8888", cfg.BindAddress())
}

func TestGetConfigFailures(t *testing.T) {
	tests := map[string]map[string]string{
		"missing admin":             {"MONGO_ADMIN": ""},
		"missing admin password":    {"MONGO_ADMIN_PASSWORD": ""},
		"negative limit":            {"DATABASE_NUMBER_LIMIT": "-1"},
		"invalid read preference":   {"MONGO_READ_PREFERENCE": "fastest"},
		"invalid mongo port":        {"MONGO_DB_PORT": "70000"},
		"invalid api port":          {"MONGO_API_SERVER_PORT": "0"},
		"unparsable limit":          {"DATABASE_NUMBER_LIMIT": "three"},
		"https without certificate": {"ENABLE_HTTPS": "true", "HTTPS_KEY_FILE": "/some/tls.key"},
		"https without key":         {"ENABLE_HTTPS": "true", "HTTPS_CERT_FILE": "/some/tls.crt"},
	}

	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range vars {
				t.Setenv(k, v)
			}

			cfg, err := GetConfig()

			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestGetConfigReportsAllErrors(t *testing.T) {
	t.Setenv("MONGO_ADMIN", "")
	t.Setenv("MONGO_ADMIN_PASSWORD", "")

	_, err := GetConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_ADMIN environment variable is not set")
	assert.Contains(t, err.Error(), "MONGO_ADMIN_PASSWORD environment variable is not set")
}
