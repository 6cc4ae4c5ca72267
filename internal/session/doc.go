// Package session holds the per-visitor session state and the Store that
// owns it.
//
// A session is one of three states: Loading (the provider has not answered
// yet), Unauthenticated, or Authenticated with an identity. State is a tagged
// value with unexported fields, so a pending session carrying an identity
// cannot be constructed.
//
// The Store is the single writer. It starts in Loading, leaves it exactly
// once through Resolve (or a sign-in that lands first) and never returns to
// it. Every successful write is delivered to subscribers synchronously and in
// write order before the mutating call returns.
package session
