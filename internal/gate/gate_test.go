// ABOUTME: Tests for view selection and gate change streams
// ABOUTME: Checks mutual exclusivity and transitions through the session lifecycle

package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/creatordash/internal/identity"
	"github.com/2389/creatordash/internal/session"
)

type stubProvider struct {
	id *identity.Identity
}

func (p *stubProvider) SignIn(context.Context, string, string) (*identity.Identity, error) {
	if p.id == nil {
		return nil, identity.NewAuthError(identity.MsgInvalidCredentials, nil)
	}
	return p.id, nil
}

func (p *stubProvider) SignUp(ctx context.Context, email, password string) (*identity.Identity, error) {
	return p.SignIn(ctx, email, password)
}

func (p *stubProvider) SignOut(context.Context, string) error { return nil }

func (p *stubProvider) Resolve(context.Context, string) (*identity.Identity, error) {
	return nil, nil
}

func TestSelect(t *testing.T) {
	tests := []struct {
		state session.State
		want  View
	}{
		{session.Loading(), ViewLoading},
		{session.Unauthenticated(), ViewCredentialForm},
		{session.Authenticated(identity.Identity{Email: "a@example.com"}), ViewShell},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Select(tt.state))
		})
	}
}

func TestSelect_ExactlyOneView(t *testing.T) {
	seen := make(map[View]bool)
	for _, st := range []session.State{
		session.Loading(),
		session.Unauthenticated(),
		session.Authenticated(identity.Identity{}),
	} {
		v := Select(st)
		assert.False(t, seen[v], "view %s selected for two states", v)
		seen[v] = true
	}
	assert.Len(t, seen, 3)
}

func TestGate_FollowsStore(t *testing.T) {
	p := &stubProvider{id: &identity.Identity{UserID: "u1", Email: "me@example.com", Token: "t1"}}
	store := session.NewStore(p, nil)
	defer store.Close()

	g := New(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	views := g.Watch(ctx)

	next := func() View {
		select {
		case v := <-views:
			return v
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for view")
			return -1
		}
	}

	assert.Equal(t, ViewLoading, next())
	assert.Equal(t, ViewLoading, g.View())

	require.NoError(t, store.Resolve(ctx, ""))
	assert.Equal(t, ViewCredentialForm, next())

	require.NoError(t, store.SignIn(ctx, "me@example.com", "pw"))
	assert.Equal(t, ViewShell, next())
	assert.Equal(t, ViewShell, g.View())

	require.NoError(t, store.SignOut(ctx))
	assert.Equal(t, ViewCredentialForm, next())
}

func TestGate_FailedSignInStaysOnForm(t *testing.T) {
	store := session.NewStore(&stubProvider{}, nil)
	defer store.Close()
	require.NoError(t, store.Resolve(context.Background(), ""))

	g := New(store)
	err := store.SignIn(context.Background(), "me@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, ViewCredentialForm, g.View())
}
