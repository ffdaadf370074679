package provisioning

import (
	"context"

	"github.com/stackrox/mongo-tenant-manager/pkg/directory"
)

// Lister reads the tenant directory.
type Lister struct {
	dialer directory.Dialer
	options
}

// NewLister creates a Lister connecting through dialer.
func NewLister(dialer directory.Dialer, opts ...Option) *Lister {
	return &Lister{
		dialer:  dialer,
		options: newOptions(opts),
	}
}

// ListTenants returns the tenants owned by owner, or every tenant if owner is empty.
func (l *Lister) ListTenants(ctx context.Context, owner string) ([]directory.Tenant, error) {
	r := newRun(workflowList, Request{User: owner})

	var session directory.Session
	err := call(ctx, l.recorder, "dial_admin", func() (err error) {
		session, err = l.dialer.DialAdmin(ctx)
		return err
	})
	if err != nil {
		return nil, r.fail(ConnectionError, ReasonConnectionError, err)
	}
	defer session.Close()
	r.advance(StageConnected)

	var tenants []directory.Tenant
	err = call(ctx, l.recorder, "list_by_owner", func() (err error) {
		tenants, err = session.ListByOwner(owner)
		return err
	})
	if err != nil {
		return nil, r.fail(DirectoryQueryError, ReasonDirectoryQueryError, err)
	}
	return tenants, nil
}

// Ping opens an administrative session and checks that the store answers.
func (l *Lister) Ping(ctx context.Context) error {
	session, err := l.dialer.DialAdmin(ctx)
	if err != nil {
		return err
	}
	defer session.Close()
	return session.Ping()
}
