package session

import (
	"sync"

	"quartermaster/pkg/types"
)

// Manager fronts a Store with an in-memory cache so concurrent server
// handlers share session state without re-reading files.
type Manager struct {
	mu    sync.Mutex
	store *Store
	cache map[string]*Session
}

// NewManager creates a manager over a store.
func NewManager(store *Store) *Manager {
	return &Manager{store: store, cache: make(map[string]*Session)}
}

// Start creates and caches a new session.
func (m *Manager) Start(kind string, item types.Item, request types.Request) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.store.Create(kind, item, request)
	if err != nil {
		return nil, err
	}
	m.cache[session.ID] = session
	return session, nil
}

// Get returns a session from cache, falling back to the store.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.cache[sessionID]; ok {
		return session, nil
	}
	session, err := m.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	m.cache[sessionID] = session
	return session, nil
}

// Append adds messages to a session and persists it.
func (m *Manager) Append(sessionID string, messages ...types.ChatMessage) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.cache[sessionID]
	if !ok {
		var err error
		session, err = m.store.Get(sessionID)
		if err != nil {
			return nil, err
		}
		m.cache[sessionID] = session
	}
	for _, msg := range messages {
		session.Append(msg)
	}
	if err := m.store.Save(session); err != nil {
		return nil, err
	}
	return session, nil
}

// List returns all known session IDs from the store.
func (m *Manager) List() ([]string, error) {
	return m.store.List()
}

// Delete removes a session from cache and disk.
func (m *Manager) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cache, sessionID)
	return m.store.Delete(sessionID)
}
