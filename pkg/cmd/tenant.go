package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stackrox/mongo-tenant-manager/pkg/logger"
	"github.com/stackrox/mongo-tenant-manager/pkg/provisioning"
)

type workflowFunc func(env *environment) func(context.Context, provisioning.Request) (*provisioning.Result, error)

func createCommand() *cobra.Command {
	return tenantCommand("create", "Create a tenant database owned by a new user.",
		func(env *environment) func(context.Context, provisioning.Request) (*provisioning.Result, error) {
			return env.provisioner.Provision
		})
}

func deleteCommand() *cobra.Command {
	return tenantCommand("delete", "Drop a tenant database and remove its owner.",
		func(env *environment) func(context.Context, provisioning.Request) (*provisioning.Result, error) {
			return env.deprovisioner.Deprovision
		})
}

func tenantCommand(use, short string, workflow workflowFunc) *cobra.Command {
	var req provisioning.Request
	c := &cobra.Command{
		SilenceUsage: true,
		Use:          use,
		Short:        short,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), env.config.MongoTimeout)
			defer cancel()
			ctx = logger.WithOperationID(ctx, logger.NewOperationID())

			result, err := workflow(env)(ctx, req)
			return printOutcome(cmd.OutOrStdout(), result, err)
		},
	}
	c.Flags().StringVar(&req.Database, "db", "", "tenant database name")
	c.Flags().StringVar(&req.User, "user", "", "owner of the tenant database")
	c.Flags().StringVar(&req.Password, "password", "", "password of the owner")
	return c
}

// printOutcome prints the workflow's message. Rejections and failures are returned as errors so that
// the process exits non-zero.
func printOutcome(out io.Writer, result *provisioning.Result, err error) error {
	if err != nil {
		var wfErr *provisioning.Error
		if errors.As(err, &wfErr) {
			fmt.Fprintln(out, wfErr.Message)
		}
		return errors.Wrapf(err, "%s", provisioning.ReasonOf(err))
	}
	fmt.Fprint(out, result.Message())
	if result.Rejected() {
		return errors.Errorf("request rejected: %s", result.Reason)
	}
	return nil
}

func listCommand() *cobra.Command {
	var owner string
	c := &cobra.Command{
		SilenceUsage: true,
		Use:          "list",
		Short:        "List tenant databases and their owners.",
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), env.config.MongoTimeout)
			defer cancel()

			tenants, err := env.lister.ListTenants(ctx, owner)
			if err != nil {
				return errors.Wrap(err, "listing tenants")
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Database", "User")
			for _, tenant := range tenants {
				if err := table.Append([]string{tenant.Database, tenant.Owner}); err != nil {
					return errors.Wrap(err, "rendering tenant list")
				}
			}
			return errors.Wrap(table.Render(), "rendering tenant list")
		},
	}
	c.Flags().StringVar(&owner, "user", "", "only list databases owned by this user")
	return c
}
