package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/stackrox/mongo-tenant-manager/pkg/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTenants(t *testing.T) {
	store := directory.NewMemoryStore()
	store.AddTenant("shop", "alice", "pw")
	store.AddTenant("blog", "alice", "pw")
	store.AddTenant("wiki", "bob", "pw")
	l := NewLister(store)

	tenants, err := l.ListTenants(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []directory.Tenant{
		{Database: "blog", Owner: "alice"},
		{Database: "shop", Owner: "alice"},
	}, tenants)

	tenants, err = l.ListTenants(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, tenants, 3)
	assert.Zero(t, store.OpenSessions())
}

func TestListTenantsErrors(t *testing.T) {
	store := directory.NewMemoryStore()
	store.ListByOwnerErr = errors.New("query failed")
	l := NewLister(store)

	_, err := l.ListTenants(context.Background(), "alice")
	assert.Equal(t, DirectoryQueryError, KindOf(err))

	store.DialAdminErr = errors.New("no reachable servers")
	_, err = l.ListTenants(context.Background(), "alice")
	assert.Equal(t, ConnectionError, KindOf(err))
}

func TestPing(t *testing.T) {
	store := directory.NewMemoryStore()
	l := NewLister(store)
	require.NoError(t, l.Ping(context.Background()))

	store.PingErr = errors.New("server selection timeout")
	assert.Error(t, l.Ping(context.Background()))
	assert.Zero(t, store.OpenSessions())
}

func TestRunAdvanceOnlyMovesForward(t *testing.T) {
	r := newRun(workflowProvision, Request{})
	r.advance(StageConnected)
	assert.Panics(t, func() { r.advance(StageConnected) })
	assert.Panics(t, func() { r.advance(StageRequested) })
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "checked", StageChecked.String())
	assert.Equal(t, "stage(42)", Stage(42).String())
}
