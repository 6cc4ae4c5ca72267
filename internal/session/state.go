// ABOUTME: Tagged session state: Loading, Unauthenticated or Authenticated
// ABOUTME: Fields are unexported so a pending session can never carry an identity

package session

import "github.com/2389/creatordash/internal/identity"

// Status is the lifecycle position of a session.
type Status int

const (
	StatusLoading Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Phase reports whether the provider has answered yet.
type Phase int

const (
	PhasePending Phase = iota
	PhaseResolved
)

func (p Phase) String() string {
	if p == PhasePending {
		return "pending"
	}
	return "resolved"
}

// State is an immutable snapshot of a session. The zero value is Loading.
type State struct {
	status   Status
	identity identity.Identity
}

// Loading is the state before the provider has resolved the session.
func Loading() State {
	return State{status: StatusLoading}
}

// Unauthenticated is a resolved session with no identity.
func Unauthenticated() State {
	return State{status: StatusUnauthenticated}
}

// Authenticated is a resolved session carrying id.
func Authenticated(id identity.Identity) State {
	return State{status: StatusAuthenticated, identity: id}
}

func (s State) Status() Status { return s.status }

// Phase is pending only in the Loading state.
func (s State) Phase() Phase {
	if s.status == StatusLoading {
		return PhasePending
	}
	return PhaseResolved
}

// Identity returns the signed-in identity, if any.
func (s State) Identity() (identity.Identity, bool) {
	if s.status != StatusAuthenticated {
		return identity.Identity{}, false
	}
	return s.identity, true
}

func (s State) String() string {
	if s.status == StatusAuthenticated {
		return "authenticated(" + s.identity.Email + ")"
	}
	return s.status.String()
}

// sameSession reports whether s is authenticated with the given token.
func (s State) sameSession(token string) bool {
	return s.status == StatusAuthenticated && s.identity.Token == token
}
