package provisioning

import (
	"context"
	"errors"

	"github.com/golang/glog"
	"github.com/stackrox/mongo-tenant-manager/pkg/directory"
	"github.com/stackrox/mongo-tenant-manager/pkg/logger"
)

// Provisioner creates tenant databases together with their owning user.
type Provisioner struct {
	dialer directory.Dialer
	options
}

// NewProvisioner creates a Provisioner connecting through dialer.
func NewProvisioner(dialer directory.Dialer, opts ...Option) *Provisioner {
	return &Provisioner{
		dialer:  dialer,
		options: newOptions(opts),
	}
}

// Limit returns the number of databases a single user may own.
func (p *Provisioner) Limit() int {
	return p.limit
}

// Provision creates req.Database owned by req.User unless a tenant record for the database already exists
// or the user already owns the maximum number of databases. Both checks run before any mutation.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*Result, error) {
	result, err := p.provision(ctx, req)
	p.recorder.IncWorkflowResult(workflowProvision, resultLabel(result, err))
	return result, err
}

func (p *Provisioner) provision(ctx context.Context, req Request) (*Result, error) {
	r := newRun(workflowProvision, req)
	if err := validateRequest(req); err != nil {
		return nil, r.fail(InvalidRequest, ReasonInvalidRequest, err)
	}

	unlock := p.locker.lock(req.Database, req.User)
	defer unlock()

	var session directory.Session
	err := call(ctx, p.recorder, "dial_admin", func() (err error) {
		session, err = p.dialer.DialAdmin(ctx)
		return err
	})
	if err != nil {
		return nil, r.fail(ConnectionError, ReasonConnectionError, err)
	}
	defer session.Close()
	r.advance(StageConnected)
	r.say("Connected successfully to MongoDB.\n")

	var existing int
	err = call(ctx, p.recorder, "count_by_database", func() (err error) {
		existing, err = session.CountByDatabase(req.Database)
		return err
	})
	if err != nil {
		return nil, r.fail(DirectoryQueryError, ReasonDirectoryQueryError, err)
	}
	if existing > 0 {
		return p.rejectExisting(ctx, r), nil
	}

	var owned int
	err = call(ctx, p.recorder, "count_by_owner", func() (err error) {
		owned, err = session.CountByOwner(req.User)
		return err
	})
	if err != nil {
		return nil, r.fail(DirectoryQueryError, ReasonDirectoryQueryError, err)
	}
	if owned >= p.limit {
		glog.Infof("%sUser %q owns %d databases, refusing to create %q", logger.Prefix(ctx), req.User, owned, req.Database)
		r.say("Sorry, you have already had at least %d databases. Can not create new database.\n", p.limit)
		return r.reject(ReasonQuotaExceeded), nil
	}
	r.advance(StageChecked)

	err = call(ctx, p.recorder, "create_owner", func() error {
		return session.CreateOwner(req.Database, req.User, req.Password)
	})
	if err != nil {
		// Another writer created the user between the checks and this call.
		if errors.Is(err, directory.ErrUserExists) {
			return p.rejectExisting(ctx, r), nil
		}
		r.say("Error: could not add new user.")
		p.reconciler.Reconcile(ctx, Failure{
			Workflow: workflowProvision,
			Stage:    r.stage,
			Database: req.Database,
			User:     req.User,
			Err:      err,
		})
		return nil, r.fail(MutationError, ReasonMutationError, err)
	}
	r.advance(StageMutated)
	r.say("Successfully created User %s in Database %s.\n", req.User, req.Database)

	glog.Infof("%sCreated database %q owned by %q", logger.Prefix(ctx), req.Database, req.User)
	return r.confirm(OutcomeCreated), nil
}

func (p *Provisioner) rejectExisting(ctx context.Context, r *run) *Result {
	glog.Infof("%sDatabase %q already exists, nothing to create", logger.Prefix(ctx), r.request.Database)
	r.say("Database %s is already existed.\n", r.request.Database)
	return r.reject(ReasonDatabaseExists)
}
