package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/stackrox/mongo-tenant-manager/pkg/api"
	"github.com/stackrox/mongo-tenant-manager/pkg/metrics"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		SilenceUsage: true,
		Use:          "serve",
		Short:        "Serve the tenant API until interrupted.",
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			return serve(env)
		},
	}
}

func serve(env *environment) error {
	cfg := env.config

	startupCtx, cancel := context.WithTimeout(context.Background(), cfg.StartupTimeout)
	defer cancel()
	if err := env.lister.Ping(startupCtx); err != nil {
		// The health endpoint reports the store as down until it answers.
		glog.Warningf("MongoDB at %s:%d is not reachable yet: %v", cfg.MongoAddress, cfg.MongoPort, err)
	}

	healthRegistry := api.NewHealthRegistry(env.lister, cfg.HealthCheckPeriod, cfg.MongoTimeout, env.metrics)
	tenantHandler := api.NewTenantHandler(env.provisioner, env.deprovisioner, env.lister, cfg.TenantListCacheTTL, env.metrics)
	server := &http.Server{Addr: cfg.BindAddress(), Handler: api.SetupRoutes(tenantHandler, healthRegistry)}
	metricsServer := metrics.NewMetricsServer(cfg.MetricsAddress, env.metrics)

	go func() {
		glog.Infof("Creating api server on %s...", server.Addr)
		if cfg.EnableHTTPS {
			if err := server.ListenAndServeTLS(cfg.HTTPSCertFile, cfg.HTTPSKeyFile); err != http.ErrServerClosed {
				glog.Fatalf("HTTPS API ListenAndServe error: %v", err)
			}
		} else {
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				glog.Fatalf("HTTP API ListenAndServe error: %v", err)
			}
		}
	}()

	go func() {
		glog.Infof("Creating metrics server on %s...", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			glog.Errorf("expose metrics server error: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	notifySignals := []os.Signal{os.Interrupt, unix.SIGTERM}
	signal.Notify(sigs, notifySignals...)
	defer signal.Stop(sigs)

	glog.Infof("Application started. Will shut down gracefully on %s.", notifySignals)
	sig := <-sigs
	glog.Infof("Caught %s signal", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	var shutdownErr error
	if err := server.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("API Shutdown error: %v", err)
		shutdownErr = errors.Wrap(err, "shutting down api server")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("Metrics server shutdown error: %v", err)
	}

	glog.Info("Tenant manager has been stopped")
	return shutdownErr
}
