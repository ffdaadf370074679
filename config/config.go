// Package config for the tenant manager service
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/stackrox/mongo-tenant-manager/pkg/directory"
)

// Config contains this application's runtime configuration.
type Config struct {
	MongoAdmin          string        `env:"MONGO_ADMIN"`
	MongoAdminPassword  string        `env:"MONGO_ADMIN_PASSWORD"`
	MongoAddress        string        `env:"MONGO_DB_ADDRESS" envDefault:"localhost"`
	MongoPort           int           `env:"MONGO_DB_PORT" envDefault:"27017"`
	MongoReplicaSet     string        `env:"MONGO_DB_REPLICA_SET"`
	MongoReadPreference string        `env:"MONGO_READ_PREFERENCE" envDefault:"primary"`
	MongoTimeout        time.Duration `env:"MONGO_OPERATION_TIMEOUT" envDefault:"10s"`
	DatabaseLimit       int           `env:"DATABASE_NUMBER_LIMIT" envDefault:"3"`
	APIServerPort       int           `env:"MONGO_API_SERVER_PORT" envDefault:"8080"`
	ServerAddress       string        `env:"SERVER_ADDRESS"`
	EnableHTTPS         bool          `env:"ENABLE_HTTPS" envDefault:"false"`
	HTTPSCertFile       string        `env:"HTTPS_CERT_FILE" envDefault:""`
	HTTPSKeyFile        string        `env:"HTTPS_KEY_FILE" envDefault:""`
	MetricsAddress      string        `env:"METRICS_ADDRESS" envDefault:":9090"`
	HealthCheckPeriod   time.Duration `env:"HEALTH_CHECK_PERIOD" envDefault:"30s"`
	TenantListCacheTTL  time.Duration `env:"TENANT_LIST_CACHE_TTL" envDefault:"30s"`
	StartupTimeout      time.Duration `env:"STARTUP_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// GetConfig retrieves the current runtime configuration from the environment and returns it.
func GetConfig() (*Config, error) {
	c := Config{}
	var configErrors *multierror.Error

	if err := env.Parse(&c); err != nil {
		return nil, errors.Wrap(err, "unable to parse runtime configuration from environment")
	}

	if c.MongoAdmin == "" {
		configErrors = multierror.Append(configErrors, errors.New("MONGO_ADMIN environment variable is not set"))
	}
	if c.MongoAdminPassword == "" {
		configErrors = multierror.Append(configErrors, errors.New("MONGO_ADMIN_PASSWORD environment variable is not set"))
	}
	if _, err := c.Connection(); err != nil {
		configErrors = multierror.Append(configErrors, err)
	}
	if c.DatabaseLimit < 0 {
		configErrors = multierror.Append(configErrors, errors.Errorf("DATABASE_NUMBER_LIMIT must not be negative, got %d", c.DatabaseLimit))
	}
	if c.ServerAddress == "" && (c.APIServerPort < 1 || c.APIServerPort > 65535) {
		configErrors = multierror.Append(configErrors, errors.Errorf("MONGO_API_SERVER_PORT %d is out of range", c.APIServerPort))
	}
	if c.HealthCheckPeriod <= 0 {
		configErrors = multierror.Append(configErrors, errors.New("HEALTH_CHECK_PERIOD must be positive"))
	}

	if c.EnableHTTPS {
		if c.HTTPSCertFile == "" || c.HTTPSKeyFile == "" {
			configErrors = multierror.Append(configErrors, errors.New("ENABLE_HTTPS is true but required variables HTTPS_CERT_FILE or HTTPS_KEY_FILE are empty"))
		}
	}

	if cfgErr := configErrors.ErrorOrNil(); cfgErr != nil {
		return nil, errors.Wrap(cfgErr, "invalid configuration settings")
	}
	return &c, nil
}

// BindAddress returns the address the API server listens on. SERVER_ADDRESS takes precedence over
// MONGO_API_SERVER_PORT.
func (c *Config) BindAddress() string {
	if c.ServerAddress != "" {
		return c.ServerAddress
	}
	return net.JoinHostPort("", strconv.Itoa(c.APIServerPort))
}

// Connection returns the administrative MongoDB connection described by the configuration.
func (c *Config) Connection() (directory.Connection, error) {
	conn, err := directory.NewConnection(c.MongoAddress, c.MongoPort, c.MongoReplicaSet)
	if err != nil {
		return directory.Connection{}, fmt.Errorf("invalid MongoDB address: %w", err)
	}
	conn, err = conn.WithReadPreference(c.MongoReadPreference)
	if err != nil {
		return directory.Connection{}, fmt.Errorf("invalid MONGO_READ_PREFERENCE: %w", err)
	}
	return conn.
		WithCredential(c.MongoAdmin, c.MongoAdminPassword, "admin").
		WithTimeout(c.MongoTimeout), nil
}
