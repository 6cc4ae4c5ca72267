// ABOUTME: Identity handle and AuthError returned by identity providers
// ABOUTME: The only error kind surfaced to the credential form

package identity

import (
	"errors"
	"time"
)

// Identity is an opaque handle for a signed-in user.
type Identity struct {
	UserID string
	Email  string

	// Token is the provider's session token. It is handed back to the
	// provider for sign-out and revalidation and never shown to the user.
	Token string

	// ExpiresAt is when the provider will consider the session expired.
	// Zero means no known expiry.
	ExpiresAt time.Time
}

// AuthError is a failed provider operation with a message fit for display.
type AuthError struct {
	Message string
	Err     error // underlying cause, for logs only
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates an AuthError with the given display message.
func NewAuthError(message string, cause error) *AuthError {
	return &AuthError{Message: message, Err: cause}
}

// Display messages shared by providers.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgEmailRegistered    = "User already registered"
	MsgInvalidEmail       = "Unable to validate email address: invalid format"
	MsgSignOutFailed      = "Unable to sign out"
)

// AsAuthError extracts an AuthError from err, if any.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
