package repository

import (
	"fmt"
	"sync"
	"time"
)

type (
	// AuthDB tracks live session ids so that logout can revoke a token that
	// is otherwise still valid.
	AuthDB interface {
		UploadUser(sessionID, subject string, expires time.Time) error
		VerifyUser(sessionID string) bool
		RevokeUser(sessionID string)
		Connect() bool
	}

	session struct {
		subject string
		expires time.Time
	}

	// InMemoryDB drops expired sessions on every write, so the table holds
	// at most the sessions still inside their lifetime.
	InMemoryDB struct {
		mu    sync.RWMutex
		table map[string]session
		now   func() time.Time
	}
)

func NewAuthDataBase() *InMemoryDB {
	return &InMemoryDB{now: time.Now}
}

func (i *InMemoryDB) Connect() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.table == nil {
		i.table = make(map[string]session)
	}
	return true
}

func (i *InMemoryDB) UploadUser(sessionID, subject string, expires time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.table == nil {
		return fmt.Errorf("can not upload session, connection is off")
	}
	i.pruneLocked()
	i.table[sessionID] = session{subject: subject, expires: expires}
	return nil
}

func (i *InMemoryDB) VerifyUser(sessionID string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	s, ok := i.table[sessionID]
	return ok && i.now().Before(s.expires)
}

func (i *InMemoryDB) RevokeUser(sessionID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.table, sessionID)
}

// Len reports how many sessions are stored, expired ones included.
func (i *InMemoryDB) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.table)
}

func (i *InMemoryDB) pruneLocked() {
	now := i.now()
	for id, s := range i.table {
		if !now.Before(s.expires) {
			delete(i.table, id)
		}
	}
}
