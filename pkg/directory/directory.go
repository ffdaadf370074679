// Package directory provides access to the tenant directory kept by MongoDB's user subsystem
package directory

import (
	"context"
	"errors"
)

var (
	// ErrUserExists is returned by CreateOwner when the user is already defined on the database.
	ErrUserExists = errors.New("user already exists")
	// ErrAuthentication is returned by a Dialer when the store rejects the supplied credential.
	ErrAuthentication = errors.New("authentication failed")
)

// reservedDatabases are managed by MongoDB itself and are never tenant databases.
var reservedDatabases = map[string]struct{}{
	"admin":  {},
	"local":  {},
	"config": {},
}

// IsReservedDatabase reports whether name is one of MongoDB's internal databases.
func IsReservedDatabase(name string) bool {
	_, ok := reservedDatabases[name]
	return ok
}

// Tenant is a database together with the user that owns it.
type Tenant struct {
	Database string `bson:"db"`
	Owner    string `bson:"user"`
}

// Session is a single connection to the tenant directory store. A Session is used by exactly one request
// and must be closed by it.
type Session interface {
	// CountByDatabase returns the number of directory records scoped to the given database.
	CountByDatabase(database string) (int, error)
	// CountByOwner returns the number of directory records held by the given user.
	CountByOwner(owner string) (int, error)
	// ListByOwner returns the tenants owned by the given user, or all tenants if owner is empty.
	ListByOwner(owner string) ([]Tenant, error)
	// CreateOwner creates user on database with the owning role. The database is created lazily by the store.
	CreateOwner(database, user, password string) error
	// DropDatabase deletes all data and metadata of database.
	DropDatabase(database string) error
	// RemoveOwner removes user from database.
	RemoveOwner(database, user string) error
	// Ping checks that the store is reachable.
	Ping() error
	// Close releases the session.
	Close()
}

// Dialer opens sessions against the tenant directory store.
type Dialer interface {
	// DialAdmin opens a session authenticated with the administrative credential.
	DialAdmin(ctx context.Context) (Session, error)
	// DialTenant opens a session authenticated as user against database.
	DialTenant(ctx context.Context, database, user, password string) (Session, error)
}
