package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

var _ Dialer = &MemoryStore{}

type userKey struct {
	database string
	user     string
}

// MemoryStore is an in-memory tenant directory. It mimics the parts of MongoDB's user management that
// the workflows rely on and lets tests inject failures per call.
type MemoryStore struct {
	DialAdminErr       error
	DialTenantErr      error
	CountByDatabaseErr error
	CountByOwnerErr    error
	ListByOwnerErr     error
	CreateOwnerErr     error
	DropDatabaseErr    error
	RemoveOwnerErr     error
	PingErr            error

	// BeforeCreateOwner is called without the store lock held, right before a user is created.
	BeforeCreateOwner func(database, user string)

	mu        sync.Mutex
	users     map[userKey]string
	databases map[string]struct{}
	opened    int
	closed    int
	mutations int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     map[userKey]string{},
		databases: map[string]struct{}{},
	}
}

// AddTenant seeds the store with a tenant record
func (m *MemoryStore) AddTenant(database, user, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userKey{database: database, user: user}] = password
	m.databases[database] = struct{}{}
}

// Tenants returns all tenant records sorted by database and owner
func (m *MemoryStore) Tenants() []Tenant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked("")
}

// DatabaseExists reports whether the database holds data
func (m *MemoryStore) DatabaseExists(database string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.databases[database]
	return ok
}

// Authenticates reports whether user can log in to database with password
func (m *MemoryStore) Authenticates(database, user, password string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[userKey{database: database, user: user}]
	return ok && stored == password
}

// OpenSessions returns the number of sessions that were opened and not closed yet
func (m *MemoryStore) OpenSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened - m.closed
}

// Mutations returns the number of successful mutating calls
func (m *MemoryStore) Mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

// DialAdmin implements Dialer
func (m *MemoryStore) DialAdmin(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("connecting to memory store: %w", err)
	}
	if m.DialAdminErr != nil {
		return nil, m.DialAdminErr
	}
	return m.open(), nil
}

// DialTenant implements Dialer
func (m *MemoryStore) DialTenant(ctx context.Context, database, user, password string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("connecting to memory store: %w", err)
	}
	if m.DialTenantErr != nil {
		return nil, m.DialTenantErr
	}
	if !m.Authenticates(database, user, password) {
		return nil, fmt.Errorf("authenticating %s against database %s: %w", user, database, ErrAuthentication)
	}
	return m.open(), nil
}

func (m *MemoryStore) open() *memorySession {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened++
	return &memorySession{store: m}
}

func (m *MemoryStore) listLocked(owner string) []Tenant {
	tenants := []Tenant{}
	for key := range m.users {
		if IsReservedDatabase(key.database) {
			continue
		}
		if owner != "" && key.user != owner {
			continue
		}
		tenants = append(tenants, Tenant{Database: key.database, Owner: key.user})
	}
	sort.Slice(tenants, func(i, j int) bool {
		if tenants[i].Database != tenants[j].Database {
			return tenants[i].Database < tenants[j].Database
		}
		return tenants[i].Owner < tenants[j].Owner
	})
	return tenants
}

type memorySession struct {
	store  *MemoryStore
	closed bool
}

func (s *memorySession) CountByDatabase(database string) (int, error) {
	if s.store.CountByDatabaseErr != nil {
		return 0, s.store.CountByDatabaseErr
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	n := 0
	for key := range s.store.users {
		if key.database == database {
			n++
		}
	}
	return n, nil
}

func (s *memorySession) CountByOwner(owner string) (int, error) {
	if s.store.CountByOwnerErr != nil {
		return 0, s.store.CountByOwnerErr
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	n := 0
	for key := range s.store.users {
		if key.user == owner {
			n++
		}
	}
	return n, nil
}

func (s *memorySession) ListByOwner(owner string) ([]Tenant, error) {
	if s.store.ListByOwnerErr != nil {
		return nil, s.store.ListByOwnerErr
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return s.store.listLocked(owner), nil
}

func (s *memorySession) CreateOwner(database, user, password string) error {
	if s.store.BeforeCreateOwner != nil {
		s.store.BeforeCreateOwner(database, user)
	}
	if s.store.CreateOwnerErr != nil {
		return s.store.CreateOwnerErr
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	key := userKey{database: database, user: user}
	if _, ok := s.store.users[key]; ok {
		return fmt.Errorf("creating user %s on database %s: %w", user, database, ErrUserExists)
	}
	s.store.users[key] = password
	s.store.databases[database] = struct{}{}
	s.store.mutations++
	return nil
}

func (s *memorySession) DropDatabase(database string) error {
	if s.store.DropDatabaseErr != nil {
		return s.store.DropDatabaseErr
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	// Like MongoDB, dropping a database leaves the users defined on it in place.
	delete(s.store.databases, database)
	s.store.mutations++
	return nil
}

func (s *memorySession) RemoveOwner(database, user string) error {
	if s.store.RemoveOwnerErr != nil {
		return s.store.RemoveOwnerErr
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	key := userKey{database: database, user: user}
	if _, ok := s.store.users[key]; !ok {
		return fmt.Errorf("removing user %s from database %s: not found", user, database)
	}
	delete(s.store.users, key)
	s.store.mutations++
	return nil
}

func (s *memorySession) Ping() error {
	return s.store.PingErr
}

func (s *memorySession) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.closed++
}
