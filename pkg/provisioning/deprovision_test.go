package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/stackrox/mongo-tenant-manager/pkg/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeprovisionDeletesTenant(t *testing.T) {
	store := directory.NewMemoryStore()
	store.AddTenant("shop", "alice", "pw")
	recorder := newFakeRecorder()
	d := NewDeprovisioner(store, WithRecorder(recorder))

	result, err := d.Deprovision(context.Background(), Request{Database: "shop", User: "alice", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeDeleted, result.Outcome)
	assert.Equal(t, StageConfirmed, result.Stage)
	assert.Equal(t, "Connected successfully to MongoDB shop.\nSuccessfully deleted database shop.", result.Message())
	assert.False(t, store.DatabaseExists("shop"))
	assert.Empty(t, store.Tenants())
	assert.Zero(t, store.OpenSessions())
	assert.Equal(t, 1, recorder.results["deprovision/deleted"])
}

func TestDeprovisionThenProvisionAgain(t *testing.T) {
	store := directory.NewMemoryStore()
	locker := NewLocker()
	p := NewProvisioner(store, WithLocker(locker))
	d := NewDeprovisioner(store, WithLocker(locker))
	req := Request{Database: "shop", User: "alice", Password: "pw"}

	_, err := p.Provision(context.Background(), req)
	require.NoError(t, err)
	_, err = d.Deprovision(context.Background(), req)
	require.NoError(t, err)

	result, err := p.Provision(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
}

func TestDeprovisionWrongCredential(t *testing.T) {
	store := directory.NewMemoryStore()
	store.AddTenant("shop", "alice", "pw")
	d := NewDeprovisioner(store)

	_, err := d.Deprovision(context.Background(), Request{Database: "shop", User: "alice", Password: "wrong"})
	require.Error(t, err)

	assert.Equal(t, ConnectionError, KindOf(err))
	assert.Equal(t, ReasonAuthenticationFailed, ReasonOf(err))
	assert.ErrorIs(t, err, directory.ErrAuthentication)
	assert.True(t, store.DatabaseExists("shop"))
	assert.Zero(t, store.Mutations())
}

func TestDeprovisionConnectionError(t *testing.T) {
	store := directory.NewMemoryStore()
	store.DialTenantErr = errors.New("no reachable servers")
	d := NewDeprovisioner(store)

	_, err := d.Deprovision(context.Background(), Request{Database: "shop", User: "alice", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, ReasonConnectionError, ReasonOf(err))
}

func TestDeprovisionInvalidRequest(t *testing.T) {
	d := NewDeprovisioner(directory.NewMemoryStore())

	_, err := d.Deprovision(context.Background(), Request{Database: "local", User: "alice"})
	require.Error(t, err)
	assert.Equal(t, InvalidRequest, KindOf(err))
}

func TestDeprovisionDropFailure(t *testing.T) {
	store := directory.NewMemoryStore()
	store.AddTenant("shop", "alice", "pw")
	store.DropDatabaseErr = errors.New("not authorized")
	reconciler := &fakeReconciler{}
	d := NewDeprovisioner(store, WithReconciler(reconciler))

	_, err := d.Deprovision(context.Background(), Request{Database: "shop", User: "alice", Password: "pw"})
	require.Error(t, err)

	var wfErr *Error
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, MutationError, wfErr.Kind)
	assert.Equal(t, StageConnected, wfErr.Stage)
	assert.Equal(t, "Connected successfully to MongoDB shop.\nnot authorized", wfErr.Message)
	require.Len(t, reconciler.failures, 1)
	assert.Equal(t, StageConnected, reconciler.failures[0].Stage)
	assert.Zero(t, store.OpenSessions())
}

func TestDeprovisionRemoveOwnerFailure(t *testing.T) {
	store := directory.NewMemoryStore()
	store.AddTenant("shop", "alice", "pw")
	store.RemoveOwnerErr = errors.New("user not found")
	reconciler := &fakeReconciler{}
	d := NewDeprovisioner(store, WithReconciler(reconciler))

	_, err := d.Deprovision(context.Background(), Request{Database: "shop", User: "alice", Password: "pw"})
	require.Error(t, err)

	assert.Equal(t, MutationError, KindOf(err))
	assert.False(t, store.DatabaseExists("shop"))
	assert.True(t, store.Authenticates("shop", "alice", "pw"))
	require.Len(t, reconciler.failures, 1)
	assert.Equal(t, "deprovision", reconciler.failures[0].Workflow)
	assert.Equal(t, StageMutated, reconciler.failures[0].Stage)
}
