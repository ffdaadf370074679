package directory

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/juju/mgo/v3"
	"github.com/juju/mgo/v3/bson"
)

const (
	adminDatabase   = "admin"
	usersCollection = "system.users"
	roleDBOwner     = "dbOwner"

	defaultTimeout = 10 * time.Second
)

var readPreferences = map[string]mgo.Mode{
	"primary":            mgo.Primary,
	"primaryPreferred":   mgo.PrimaryPreferred,
	"secondary":          mgo.Secondary,
	"secondaryPreferred": mgo.SecondaryPreferred,
	"nearest":            mgo.Nearest,
}

// dialWithInfo is swapped in tests that must not reach a real server.
var dialWithInfo = mgo.DialWithInfo

// Connection stores the data necessary to connect to a MongoDB replica set
type Connection struct {
	host       string
	port       int
	replicaSet string
	user       string
	password   string
	source     string
	mode       mgo.Mode
	timeout    time.Duration
}

// NewConnection constructs a new Connection struct
func NewConnection(host string, port int, replicaSet string) (Connection, error) {
	if host == "" {
		return Connection{}, fmt.Errorf("host parameter cannot be empty")
	}
	if port <= 0 || port > 65535 {
		return Connection{}, fmt.Errorf("port parameter must be between 1 and 65535, got %d", port)
	}

	return Connection{
		host:       host,
		port:       port,
		replicaSet: replicaSet,
		source:     adminDatabase,
		mode:       mgo.Primary,
		timeout:    defaultTimeout,
	}, nil
}

// WithCredential returns a copy of the connection that authenticates as user against the source database
func (c Connection) WithCredential(user, password, source string) Connection {
	c.user = user
	c.password = password // pragma: allowlist secret
	c.source = source
	return c
}

// WithReadPreference returns a copy of the connection using the named read preference
func (c Connection) WithReadPreference(preference string) (Connection, error) {
	mode, ok := readPreferences[preference]
	if !ok {
		return c, fmt.Errorf("unknown read preference %q", preference)
	}
	c.mode = mode
	return c, nil
}

// WithTimeout returns a copy of the connection with the given dial and socket timeout
func (c Connection) WithTimeout(timeout time.Duration) Connection {
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// Address returns the host:port pair of the store
func (c Connection) Address() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// dialInfo builds the mgo dial information. It carries the password in plain-text, so it must not be logged.
func (c Connection) dialInfo() *mgo.DialInfo {
	return &mgo.DialInfo{
		Addrs:          []string{c.Address()},
		ReplicaSetName: c.replicaSet,
		Source:         c.source,
		Username:       c.user,
		Password:       c.password, // pragma: allowlist secret
		Timeout:        c.timeout,
	}
}

func (c Connection) dial(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.Address(), err)
	}

	info := c.dialInfo()
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("connecting to %s: %w", c.Address(), context.DeadlineExceeded)
		}
		if remaining < info.Timeout {
			info.Timeout = remaining
		}
	}

	session, err := dialWithInfo(info)
	if err != nil {
		if isAuthFailure(err) {
			return nil, fmt.Errorf("authenticating %s against database %s: %w: %v", c.user, c.source, ErrAuthentication, err)
		}
		return nil, fmt.Errorf("connecting to %s: %w", c.Address(), err)
	}
	session.SetMode(c.mode, true)
	session.SetSocketTimeout(c.timeout)

	glog.V(5).Infof("Opened session to %s as %s (auth database %s)", c.Address(), c.user, c.source)
	return &mongoSession{session: session}, nil
}

// MongoDialer opens sessions against a MongoDB replica set
type MongoDialer struct {
	admin Connection
}

var _ Dialer = &MongoDialer{}

// NewMongoDialer creates a dialer. The given connection must carry the administrative credential.
func NewMongoDialer(admin Connection) *MongoDialer {
	return &MongoDialer{admin: admin}
}

// DialAdmin opens a session authenticated with the administrative credential
func (d *MongoDialer) DialAdmin(ctx context.Context) (Session, error) {
	return d.admin.dial(ctx)
}

// DialTenant opens a session authenticated as user against database, using the admin connection's
// address, replica set, read preference and timeout
func (d *MongoDialer) DialTenant(ctx context.Context, database, user, password string) (Session, error) {
	return d.admin.WithCredential(user, password, database).dial(ctx)
}

type mongoSession struct {
	session *mgo.Session
}

func (s *mongoSession) users() *mgo.Collection {
	return s.session.DB(adminDatabase).C(usersCollection)
}

func (s *mongoSession) CountByDatabase(database string) (int, error) {
	n, err := s.users().Find(bson.M{"db": database}).Count()
	if err != nil {
		return 0, fmt.Errorf("counting users of database %s: %w", database, err)
	}
	return n, nil
}

func (s *mongoSession) CountByOwner(owner string) (int, error) {
	n, err := s.users().Find(bson.M{"user": owner}).Count()
	if err != nil {
		return 0, fmt.Errorf("counting databases of user %s: %w", owner, err)
	}
	return n, nil
}

func (s *mongoSession) ListByOwner(owner string) ([]Tenant, error) {
	reserved := make([]string, 0, len(reservedDatabases))
	for name := range reservedDatabases {
		reserved = append(reserved, name)
	}
	query := bson.M{"db": bson.M{"$nin": reserved}}
	if owner != "" {
		query["user"] = owner
	}

	var tenants []Tenant
	err := s.users().Find(query).Select(bson.M{"_id": 0, "user": 1, "db": 1}).Sort("db", "user").All(&tenants)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	return tenants, nil
}

func (s *mongoSession) CreateOwner(database, user, password string) error {
	cmd := bson.D{
		{Name: "createUser", Value: user},
		{Name: "pwd", Value: password},
		{Name: "roles", Value: []bson.M{{"role": roleDBOwner, "db": database}}},
	}
	if err := s.session.DB(database).Run(cmd, nil); err != nil {
		if isDuplicateUser(err) {
			return fmt.Errorf("creating user %s on database %s: %w: %v", user, database, ErrUserExists, err)
		}
		return fmt.Errorf("creating user %s on database %s: %w", user, database, err)
	}
	return nil
}

func (s *mongoSession) DropDatabase(database string) error {
	if err := s.session.DB(database).DropDatabase(); err != nil {
		return fmt.Errorf("dropping database %s: %w", database, err)
	}
	return nil
}

func (s *mongoSession) RemoveOwner(database, user string) error {
	if err := s.session.DB(database).RemoveUser(user); err != nil {
		return fmt.Errorf("removing user %s from database %s: %w", user, database, err)
	}
	return nil
}

func (s *mongoSession) Ping() error {
	if err := s.session.Ping(); err != nil {
		return fmt.Errorf("pinging store: %w", err)
	}
	return nil
}

func (s *mongoSession) Close() {
	s.session.Close()
}
