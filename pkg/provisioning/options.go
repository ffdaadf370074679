package provisioning

import (
	"context"
	"time"
)

// DefaultDatabaseLimit is the number of tenant databases a single user may own.
const DefaultDatabaseLimit = 3

// Recorder receives measurements from the workflows.
type Recorder interface {
	ObserveStoreCall(operation string, duration time.Duration, err error)
	IncWorkflowResult(workflow, result string)
	IncReconciliationRequired(workflow, stage string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStoreCall(string, time.Duration, error) {}

func (nopRecorder) IncWorkflowResult(string, string) {}

func (nopRecorder) IncReconciliationRequired(string, string) {}

type options struct {
	limit      int
	locker     *Locker
	recorder   Recorder
	reconciler Reconciler
}

// Option configures a workflow.
type Option func(*options)

// WithDatabaseLimit sets the maximum number of databases one user may own. Negative values are treated as zero.
func WithDatabaseLimit(limit int) Option {
	return func(o *options) {
		if limit < 0 {
			limit = 0
		}
		o.limit = limit
	}
}

// WithLocker shares a Locker between workflows so that they serialize on the same keys.
func WithLocker(locker *Locker) Option {
	return func(o *options) {
		o.locker = locker
	}
}

// WithRecorder sets the receiver of workflow measurements.
func WithRecorder(recorder Recorder) Option {
	return func(o *options) {
		o.recorder = recorder
	}
}

// WithReconciler sets the receiver of failures that may have left a partial mutation behind.
func WithReconciler(reconciler Reconciler) Option {
	return func(o *options) {
		o.reconciler = reconciler
	}
}

func newOptions(opts []Option) options {
	o := options{limit: DefaultDatabaseLimit}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locker == nil {
		o.locker = NewLocker()
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	if o.reconciler == nil {
		o.reconciler = NewLogReconciler(o.recorder)
	}
	return o
}

// call runs one store operation unless ctx is already done, and reports its duration.
func call(ctx context.Context, recorder Recorder, operation string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	recorder.ObserveStoreCall(operation, time.Since(start), err)
	return err
}

func resultLabel(result *Result, err error) string {
	if err != nil {
		if reason := ReasonOf(err); reason != "" {
			return string(reason)
		}
		return "error"
	}
	if result.Rejected() {
		return string(result.Reason)
	}
	return string(result.Outcome)
}
