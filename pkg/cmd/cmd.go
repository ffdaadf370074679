// Package cmd implements the tenantmanager command line.
package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stackrox/mongo-tenant-manager/config"
	"github.com/stackrox/mongo-tenant-manager/pkg/directory"
	"github.com/stackrox/mongo-tenant-manager/pkg/metrics"
	"github.com/stackrox/mongo-tenant-manager/pkg/provisioning"
)

// newDialer builds the store dialer from the configuration. Tests replace it.
var newDialer = func(cfg *config.Config) (directory.Dialer, error) {
	conn, err := cfg.Connection()
	if err != nil {
		return nil, err
	}
	return directory.NewMongoDialer(conn), nil
}

// Command builds the root CLI command.
func Command() *cobra.Command {
	c := &cobra.Command{
		SilenceUsage: true,
		Use:          os.Args[0],
		Long:         "tenantmanager provisions and tears down tenant databases on a MongoDB replica set.",
	}
	c.AddCommand(
		serveCommand(),
		createCommand(),
		deleteCommand(),
		listCommand(),
	)
	return c
}

// environment holds the collaborators shared by every command.
type environment struct {
	config        *config.Config
	metrics       *metrics.Metrics
	provisioner   *provisioning.Provisioner
	deprovisioner *provisioning.Deprovisioner
	lister        *provisioning.Lister
}

func loadEnvironment() (*environment, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create MongoDB dialer")
	}

	m := metrics.DefaultInstance()
	opts := []provisioning.Option{
		provisioning.WithDatabaseLimit(cfg.DatabaseLimit),
		provisioning.WithLocker(provisioning.NewLocker()),
		provisioning.WithRecorder(m),
	}
	return &environment{
		config:        cfg,
		metrics:       m,
		provisioner:   provisioning.NewProvisioner(dialer, opts...),
		deprovisioner: provisioning.NewDeprovisioner(dialer, opts...),
		lister:        provisioning.NewLister(dialer, opts...),
	}, nil
}
