package provisioning

import (
	"context"
	"errors"

	"github.com/golang/glog"
	"github.com/stackrox/mongo-tenant-manager/pkg/directory"
	"github.com/stackrox/mongo-tenant-manager/pkg/logger"
)

// Deprovisioner tears down tenant databases. It authenticates with the tenant's own credential, so only
// the holder of that credential can remove the tenant.
type Deprovisioner struct {
	dialer directory.Dialer
	options
}

// NewDeprovisioner creates a Deprovisioner connecting through dialer.
func NewDeprovisioner(dialer directory.Dialer, opts ...Option) *Deprovisioner {
	return &Deprovisioner{
		dialer:  dialer,
		options: newOptions(opts),
	}
}

// Deprovision drops req.Database and then removes req.User from it. There is no existence check:
// dropping a missing database is a no-op in the store.
func (d *Deprovisioner) Deprovision(ctx context.Context, req Request) (*Result, error) {
	result, err := d.deprovision(ctx, req)
	d.recorder.IncWorkflowResult(workflowDeprovision, resultLabel(result, err))
	return result, err
}

func (d *Deprovisioner) deprovision(ctx context.Context, req Request) (*Result, error) {
	r := newRun(workflowDeprovision, req)
	if err := validateRequest(req); err != nil {
		return nil, r.fail(InvalidRequest, ReasonInvalidRequest, err)
	}

	unlock := d.locker.lock(req.Database, "")
	defer unlock()

	var session directory.Session
	err := call(ctx, d.recorder, "dial_tenant", func() (err error) {
		session, err = d.dialer.DialTenant(ctx, req.Database, req.User, req.Password)
		return err
	})
	if err != nil {
		reason := ReasonConnectionError
		if errors.Is(err, directory.ErrAuthentication) {
			reason = ReasonAuthenticationFailed
		}
		return nil, r.fail(ConnectionError, reason, err)
	}
	defer session.Close()
	r.advance(StageConnected)
	r.say("Connected successfully to MongoDB %s.\n", req.Database)

	err = call(ctx, d.recorder, "drop_database", func() error {
		return session.DropDatabase(req.Database)
	})
	if err != nil {
		d.reconcile(ctx, r, err)
		return nil, r.fail(MutationError, ReasonMutationError, err)
	}
	r.advance(StageMutated)

	err = call(ctx, d.recorder, "remove_owner", func() error {
		return session.RemoveOwner(req.Database, req.User)
	})
	if err != nil {
		// The data is gone but the credential is still there.
		d.reconcile(ctx, r, err)
		return nil, r.fail(MutationError, ReasonMutationError, err)
	}
	r.say("Successfully deleted database %s.", req.Database)

	glog.Infof("%sDeleted database %q owned by %q", logger.Prefix(ctx), req.Database, req.User)
	return r.confirm(OutcomeDeleted), nil
}

func (d *Deprovisioner) reconcile(ctx context.Context, r *run, err error) {
	d.reconciler.Reconcile(ctx, Failure{
		Workflow: workflowDeprovision,
		Stage:    r.stage,
		Database: r.request.Database,
		User:     r.request.User,
		Err:      err,
	})
}
