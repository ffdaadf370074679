package provisioning

import (
	"context"

	"github.com/golang/glog"
	"github.com/stackrox/mongo-tenant-manager/pkg/logger"
)

// Failure describes a workflow that failed after it may have mutated the store.
type Failure struct {
	Workflow string
	// Stage is the last stage completed before the failing call.
	Stage    Stage
	Database string
	User     string
	Err      error
}

// Reconciler receives failures that may have left a tenant partially applied.
type Reconciler interface {
	Reconcile(ctx context.Context, failure Failure)
}

// LogReconciler reports failures for manual reconciliation. It does not change the store.
type LogReconciler struct {
	recorder Recorder
}

var _ Reconciler = &LogReconciler{}

// NewLogReconciler creates a LogReconciler counting failures with the given recorder.
func NewLogReconciler(recorder Recorder) *LogReconciler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &LogReconciler{recorder: recorder}
}

// Reconcile logs the failure and counts it.
func (r *LogReconciler) Reconcile(ctx context.Context, failure Failure) {
	glog.Errorf("%sManual reconciliation required: %s of database %q for user %q failed after stage %s: %v",
		logger.Prefix(ctx), failure.Workflow, failure.Database, failure.User, failure.Stage, failure.Err)
	r.recorder.IncReconciliationRequired(failure.Workflow, failure.Stage.String())
}
