// Package store provides persistent storage for dashboard accounts using SQLite.
//
// # Data Models
//
//   - User: an account identified by a lower-cased, unique email and a bcrypt hash
//   - Session: a server-side sign-in session with an absolute expiry
//
// # Drivers
//
// SQLiteStore works with either database/sql SQLite driver:
//
//   - "sqlite": modernc.org/sqlite, pure Go (default)
//   - "sqlite3": github.com/mattn/go-sqlite3, requires cgo
//
// The store enables WAL mode and foreign keys on open:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
//   - ErrUserNotFound: no account for the id or email
//   - ErrSessionNotFound: session missing or expired
//   - ErrEmailExists: sign-up with an email already registered
//
// Errors are wrapped; compare with errors.Is. All methods accept context.Context.
//
// # Testing
//
// Use NewMockStore() for unit tests and NewSQLiteStore(":memory:") or a file under
// t.TempDir() for integration tests with real SQLite.
package store
