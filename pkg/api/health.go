package api

import (
	"context"
	"net/http"
	"time"

	health "github.com/docker/go-healthcheck"
	"github.com/golang/glog"
)

const storeCheckName = "mongodb"

// Pinger checks that the store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreGauge records the outcome of store health checks.
type StoreGauge interface {
	SetStoreUp(up bool)
}

// NewHealthRegistry creates a registry checking the store every period. The first check runs before
// the registry is returned. A non-positive period checks the store on every health request instead.
func NewHealthRegistry(pinger Pinger, period, timeout time.Duration, gauge StoreGauge) *health.Registry {
	registry := health.NewRegistry()
	check := health.CheckFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := pinger.Ping(ctx)
		if err != nil {
			glog.Warningf("MongoDB health check failed: %v", err)
		}
		if gauge != nil {
			gauge.SetStoreUp(err == nil)
		}
		return err
	})
	if period > 0 {
		registry.Register(storeCheckName, seededPeriodicChecker(check, period))
	} else {
		registry.Register(storeCheckName, check)
	}
	return registry
}

// seededPeriodicChecker runs check once before returning, then every period. A bare periodic checker
// reports healthy until its first tick.
func seededPeriodicChecker(check health.Checker, period time.Duration) health.Checker {
	updater := health.NewStatusUpdater()
	updater.Update(check.Check())
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for range t.C {
			updater.Update(check.Check())
		}
	}()
	return updater
}

// healthHandler responds 200 with an empty object when every check passes, and 503 with the failing
// checks otherwise.
func healthHandler(registry *health.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := registry.CheckStatus()
		status := http.StatusOK
		if len(checks) != 0 {
			status = http.StatusServiceUnavailable
		}
		if err := jsonResponse(w, checks, status); err != nil {
			glog.Errorf("Failed creating health response: %v", err)
		}
	}
}
