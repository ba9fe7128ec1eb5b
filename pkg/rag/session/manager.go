package session

import (
	"ai-act-advisor-be/pkg/store"

	"github.com/google/uuid"
)

// Opener produces the initial state of a session for a given id.
type Opener interface {
	Fresh(id string) *store.Session
}

// Manager handles session lifecycle on top of a SessionStore
type Manager struct {
	store  store.SessionStore
	opener Opener
}

// NewManager creates a new session manager
func NewManager(s store.SessionStore, opener Opener) *Manager {
	return &Manager{store: s, opener: opener}
}

// Create stores a new session under a random id.
func (m *Manager) Create() (*store.Session, error) {
	s := m.opener.Fresh(uuid.NewString())
	if err := m.store.Put(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Load returns store.ErrSessionNotFound for unknown ids.
func (m *Manager) Load(id string) (*store.Session, error) {
	return m.store.Get(id)
}

// Save persists session state
func (m *Manager) Save(s *store.Session) error {
	return m.store.Put(s)
}

func (m *Manager) Delete(id string) error {
	return m.store.Delete(id)
}

// Reset replaces an existing session with a fresh one under the same id.
func (m *Manager) Reset(id string) (*store.Session, error) {
	if _, err := m.store.Get(id); err != nil {
		return nil, err
	}
	s := m.opener.Fresh(id)
	if err := m.store.Put(s); err != nil {
		return nil, err
	}
	return s, nil
}
