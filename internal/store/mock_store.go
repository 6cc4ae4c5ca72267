// ABOUTME: Mock AccountStore implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sync"
	"time"
)

// MockStore is an in-memory AccountStore implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	users    map[string]*User    // keyed by user ID
	byEmail  map[string]string   // normalized email -> user ID
	sessions map[string]*Session // keyed by session ID

	// Err, when set, is returned by every method. Used to simulate backend failures.
	Err error
}

// Ensure MockStore implements AccountStore.
var _ AccountStore = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:    make(map[string]*User),
		byEmail:  make(map[string]string),
		sessions: make(map[string]*Session),
	}
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	email := NormalizeEmail(user.Email)
	if _, exists := m.byEmail[email]; exists {
		return ErrEmailExists
	}

	// Make a copy to avoid external modification
	u := *user
	u.Email = email
	m.users[u.ID] = &u
	m.byEmail[email] = u.ID
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	result := *u
	return &result, nil
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	id, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	result := *m.users[id]
	return &result, nil
}

// CountUsers returns the number of stored users.
func (m *MockStore) CountUsers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.users), nil
}

// CreateSession stores a new session.
func (m *MockStore) CreateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	s := *session
	m.sessions[s.ID] = &s
	return nil
}

// GetSession retrieves a non-expired session.
func (m *MockStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	s, ok := m.sessions[id]
	if !ok || !time.Now().Before(s.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	result := *s
	return &result, nil
}

// DeleteSession removes a session.
func (m *MockStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	delete(m.sessions, id)
	return nil
}

// DeleteExpiredSessions removes expired sessions.
func (m *MockStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}

	var n int64
	now := time.Now()
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// SessionCount returns the number of stored sessions, expired or not.
func (m *MockStore) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
