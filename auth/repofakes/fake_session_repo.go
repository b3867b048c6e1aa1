package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	"github.com/giftwish/giftwish/auth"
)

var _ auth.SessionRepo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]auth.Session
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]auth.Session),
	}
}

func (sr *FakeSessionRepo) Create(_ context.Context, session auth.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if _, ok := sr.sessions[session.ID]; ok {
		return auth.ErrSessionConflict
	}
	sr.sessions[session.ID] = session
	return nil
}

func (sr *FakeSessionRepo) Find(_ context.Context, id string) (auth.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.sessions[id]
	if !ok {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	return session, nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, id string) (bool, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if _, ok := sr.sessions[id]; !ok {
		return false, nil
	}
	delete(sr.sessions, id)
	return true, nil
}

func (sr *FakeSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	var removed int64
	for id, session := range sr.sessions {
		if now.After(session.ExpiresAt) {
			delete(sr.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored sessions, used by tests.
func (sr *FakeSessionRepo) Len() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}
