package memory

import (
	"fmt"
	"time"

	"ai-act-advisor-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps sessions in process memory. Sessions are lost on
// restart.
type SessionRepository struct {
	cache *cache.Cache
}

// NewSessionRepository creates the store. A ttl of zero keeps sessions until
// they are deleted explicitly; a positive ttl lets go-cache reap idle ones.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		return &SessionRepository{cache: cache.New(cache.NoExpiration, 0)}
	}
	return &SessionRepository{cache: cache.New(ttl, ttl/2)}
}

func (r *SessionRepository) Get(id string) (*store.Session, error) {
	if x, found := r.cache.Get(id); found {
		return x.(*store.Session).Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, id)
}

func (r *SessionRepository) Put(session *store.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session must have an id")
	}
	r.cache.Set(session.ID, session.Clone(), cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Delete(id string) error {
	if _, found := r.cache.Get(id); !found {
		return fmt.Errorf("%w: %s", store.ErrSessionNotFound, id)
	}
	r.cache.Delete(id)
	return nil
}

// Count returns the number of live sessions.
func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

var _ store.SessionStore = (*SessionRepository)(nil)
