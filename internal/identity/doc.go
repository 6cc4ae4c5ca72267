// Package identity is the identity provider boundary of the dashboard.
//
// The session layer treats the provider as an external collaborator that
// verifies credentials and persists sessions. LocalProvider is the bundled
// implementation:
//
//   - SignUp validates the email, enforces a minimum password length, stores a
//     bcrypt hash and opens a session
//   - SignIn compares the bcrypt hash (with a dummy comparison for unknown
//     emails so timing does not reveal which accounts exist)
//   - SignOut deletes the server-side session; unusable tokens count as
//     already signed out
//   - Resolve maps a session token back to an Identity, or nil when the
//     session is gone or expired
//
// # Tokens
//
// The token handed to the browser is an HS256 JWT whose subject is the
// server-side session ID. A tampered or expired token is rejected before the
// store is consulted.
//
// # Errors
//
// Failures the user should see are *AuthError values carrying a display
// message. Anything else is an infrastructure failure wrapped with
// fmt.Errorf and is not meant for display.
package identity
