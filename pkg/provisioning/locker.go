package provisioning

import (
	"github.com/im7mortal/kmutex"
)

// Locker serializes workflows touching the same database or the same owner within this process.
// It narrows the window between the directory checks and the mutation; it cannot coordinate
// several processes sharing one store.
type Locker struct {
	km *kmutex.Kmutex
}

// NewLocker creates a Locker with no keys held.
func NewLocker() *Locker {
	return &Locker{km: kmutex.New()}
}

// lock acquires the database key and then, if user is not empty, the owner key. Keys are always
// taken in that order so two workflows cannot wait on each other.
func (l *Locker) lock(database, user string) func() {
	databaseKey := "db:" + database
	l.km.Lock(databaseKey)
	if user == "" {
		return func() { l.km.Unlock(databaseKey) }
	}

	userKey := "user:" + user
	l.km.Lock(userKey)
	return func() {
		l.km.Unlock(userKey)
		l.km.Unlock(databaseKey)
	}
}
