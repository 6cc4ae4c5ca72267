// ABOUTME: Auth Gate selecting the loading view, credential form or shell
// ABOUTME: A pure function of session state plus a read-only subscription

package gate

import (
	"context"

	"github.com/2389/creatordash/internal/session"
)

// View is the one top-level view rendered for a session.
type View int

const (
	ViewLoading View = iota
	ViewCredentialForm
	ViewShell
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewCredentialForm:
		return "credential_form"
	case ViewShell:
		return "shell"
	default:
		return "unknown"
	}
}

// Select maps a session state to the view to render.
func Select(st session.State) View {
	switch st.Status() {
	case session.StatusAuthenticated:
		return ViewShell
	case session.StatusUnauthenticated:
		return ViewCredentialForm
	default:
		return ViewLoading
	}
}

// Gate follows a session store and reports the current view.
// It never writes to the store.
type Gate struct {
	store *session.Store
}

// New creates a gate reading from store.
func New(store *session.Store) *Gate {
	return &Gate{store: store}
}

// View returns the view for the store's current state.
func (g *Gate) View() View {
	return Select(g.store.State())
}

// State returns the session snapshot the gate is reading.
func (g *Gate) State() session.State {
	return g.store.State()
}

// Watch emits the current view and then every view change until ctx is done.
// Consecutive identical views are collapsed.
func (g *Gate) Watch(ctx context.Context) <-chan View {
	out := make(chan View, 1)
	states := g.store.Watch(ctx)

	go func() {
		defer close(out)
		last := View(-1)
		for st := range states {
			v := Select(st)
			if v == last {
				continue
			}
			last = v
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
