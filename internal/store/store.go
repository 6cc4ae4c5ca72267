// ABOUTME: Account and session types plus the AccountStore interface
// ABOUTME: Shared by the SQLite implementation and the in-memory mock

package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested entity doesn't exist.
var ErrNotFound = errors.New("not found")

// ErrUserNotFound is returned when a user account doesn't exist.
var ErrUserNotFound = errors.New("user not found")

// ErrSessionNotFound is returned when a session doesn't exist or is expired.
var ErrSessionNotFound = errors.New("session not found")

// ErrEmailExists is returned when trying to create a user with an existing email.
var ErrEmailExists = errors.New("email already registered")

// User is a dashboard account.
type User struct {
	ID           string
	Email        string // lower-cased, unique
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}

// Session is a server-side sign-in session.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AccountStore defines persistence for users and their sessions.
type AccountStore interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CountUsers(ctx context.Context) (int, error)

	// Sessions
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	Close() error
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
