// ABOUTME: Tests for the session Store lifecycle and notification ordering
// ABOUTME: Uses a scriptable fake provider instead of the SQLite-backed one

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/creatordash/internal/identity"
)

// fakeProvider answers from a fixed set of accounts and counts calls.
type fakeProvider struct {
	mu        sync.Mutex
	passwords map[string]string
	sessions  map[string]identity.Identity
	expiresAt time.Time

	signOutErr   error
	resolveErr   error
	signOutGate  chan struct{}
	signOutCalls atomic.Int32
	counter      int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		passwords: map[string]string{"me@example.com": "secret1"},
		sessions:  make(map[string]identity.Identity),
	}
}

func (f *fakeProvider) open(email string) *identity.Identity {
	f.counter++
	id := identity.Identity{
		UserID:    "user-" + email,
		Email:     email,
		Token:     "token-" + email + "-" + string(rune('a'+f.counter)),
		ExpiresAt: f.expiresAt,
	}
	f.sessions[id.Token] = id
	return &id
}

func (f *fakeProvider) SignIn(_ context.Context, email, password string) (*identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.passwords[email]; !ok || pw != password {
		return nil, identity.NewAuthError(identity.MsgInvalidCredentials, nil)
	}
	return f.open(email), nil
}

func (f *fakeProvider) SignUp(_ context.Context, email, password string) (*identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.passwords[email]; ok {
		return nil, identity.NewAuthError(identity.MsgEmailRegistered, nil)
	}
	f.passwords[email] = password
	return f.open(email), nil
}

func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	f.signOutCalls.Add(1)
	if f.signOutGate != nil {
		<-f.signOutGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signOutErr != nil {
		return f.signOutErr
	}
	delete(f.sessions, token)
	return nil
}

func (f *fakeProvider) Resolve(_ context.Context, token string) (*identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	id, ok := f.sessions[token]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func newResolvedStore(t *testing.T, p *fakeProvider) *Store {
	t.Helper()
	s := NewStore(p, nil)
	t.Cleanup(s.Close)
	require.NoError(t, s.Resolve(context.Background(), ""))
	return s
}

func TestStore_StartsLoading(t *testing.T) {
	s := NewStore(newFakeProvider(), nil)
	defer s.Close()

	st := s.State()
	assert.Equal(t, StatusLoading, st.Status())
	assert.Equal(t, PhasePending, st.Phase())
	_, ok := st.Identity()
	assert.False(t, ok)
}

func TestStore_ResolveWithoutToken(t *testing.T) {
	s := NewStore(newFakeProvider(), nil)
	defer s.Close()

	require.NoError(t, s.Resolve(context.Background(), ""))
	assert.Equal(t, StatusUnauthenticated, s.State().Status())
	assert.NoError(t, s.WaitResolved(context.Background()))
}

func TestStore_ResolveExistingSession(t *testing.T) {
	p := newFakeProvider()
	id, err := p.SignIn(context.Background(), "me@example.com", "secret1")
	require.NoError(t, err)

	s := NewStore(p, nil)
	defer s.Close()
	require.NoError(t, s.Resolve(context.Background(), id.Token))

	got, ok := s.State().Identity()
	require.True(t, ok)
	assert.Equal(t, "me@example.com", got.Email)
}

func TestStore_ResolveProviderFailure(t *testing.T) {
	p := newFakeProvider()
	p.resolveErr = errors.New("provider unreachable")

	s := NewStore(p, nil)
	defer s.Close()

	err := s.Resolve(context.Background(), "some-token")
	assert.Error(t, err)
	assert.Equal(t, StatusUnauthenticated, s.State().Status())
}

func TestStore_ResolveOnlyOnce(t *testing.T) {
	p := newFakeProvider()
	s := newResolvedStore(t, p)

	require.NoError(t, s.SignIn(context.Background(), "me@example.com", "secret1"))

	// A late resolution must not overwrite the signed-in session
	require.NoError(t, s.Resolve(context.Background(), ""))
	assert.Equal(t, StatusAuthenticated, s.State().Status())
}

func TestStore_WaitResolvedTimesOut(t *testing.T) {
	s := NewStore(newFakeProvider(), nil)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitResolved(ctx), context.DeadlineExceeded)
}

func TestStore_SignInNotifiesBeforeReturning(t *testing.T) {
	s := newResolvedStore(t, newFakeProvider())

	var seen []State
	unsubscribe := s.Subscribe(func(st State) { seen = append(seen, st) })
	defer unsubscribe()

	require.NoError(t, s.SignIn(context.Background(), "me@example.com", "secret1"))

	require.Len(t, seen, 1)
	assert.Equal(t, StatusAuthenticated, seen[0].Status())
}

func TestStore_SignInWrongPassword(t *testing.T) {
	s := newResolvedStore(t, newFakeProvider())

	err := s.SignIn(context.Background(), "me@example.com", "nope")
	ae, ok := identity.AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid credentials", ae.Message)
	assert.Equal(t, StatusUnauthenticated, s.State().Status())
}

func TestStore_SignUpThenSignOut(t *testing.T) {
	s := newResolvedStore(t, newFakeProvider())
	ctx := context.Background()

	var statuses []Status
	defer s.Subscribe(func(st State) { statuses = append(statuses, st.Status()) })()

	require.NoError(t, s.SignUp(ctx, "new@example.com", "hunter22"))
	require.NoError(t, s.SignOut(ctx))

	assert.Equal(t, []Status{StatusAuthenticated, StatusUnauthenticated}, statuses)
}

func TestStore_SignOutWhenUnauthenticated(t *testing.T) {
	p := newFakeProvider()
	s := newResolvedStore(t, p)

	assert.NoError(t, s.SignOut(context.Background()))
	assert.Equal(t, int32(0), p.signOutCalls.Load())
}

func TestStore_SignOutFailureKeepsSession(t *testing.T) {
	p := newFakeProvider()
	s := newResolvedStore(t, p)
	require.NoError(t, s.SignIn(context.Background(), "me@example.com", "secret1"))

	p.signOutErr = identity.NewAuthError(identity.MsgSignOutFailed, nil)
	err := s.SignOut(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StatusAuthenticated, s.State().Status())
}

func TestStore_ConcurrentSignOutCoalesces(t *testing.T) {
	p := newFakeProvider()
	s := newResolvedStore(t, p)
	require.NoError(t, s.SignIn(context.Background(), "me@example.com", "secret1"))

	p.signOutGate = make(chan struct{})

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.SignOut(context.Background())
		}()
	}

	// Let the callers pile up on the shared flight before releasing it
	require.Eventually(t, func() bool { return p.signOutCalls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(p.signOutGate)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, StatusUnauthenticated, s.State().Status())
	assert.Equal(t, int32(1), p.signOutCalls.Load())
}

func TestStore_RequestCancellationDoesNotAbortSignIn(t *testing.T) {
	s := newResolvedStore(t, newFakeProvider())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.SignIn(ctx, "me@example.com", "secret1"))
	assert.Equal(t, StatusAuthenticated, s.State().Status())
}

func TestStore_Revalidate(t *testing.T) {
	p := newFakeProvider()
	s := newResolvedStore(t, p)
	ctx := context.Background()
	require.NoError(t, s.SignIn(ctx, "me@example.com", "secret1"))

	// Still valid
	require.NoError(t, s.Revalidate(ctx))
	assert.Equal(t, StatusAuthenticated, s.State().Status())

	// Session revoked elsewhere
	id, _ := s.State().Identity()
	require.NoError(t, p.SignOut(ctx, id.Token))
	require.NoError(t, s.Revalidate(ctx))
	assert.Equal(t, StatusUnauthenticated, s.State().Status())
}

func TestStore_RevalidateProviderFailureKeepsSession(t *testing.T) {
	p := newFakeProvider()
	s := newResolvedStore(t, p)
	require.NoError(t, s.SignIn(context.Background(), "me@example.com", "secret1"))

	p.resolveErr = errors.New("timeout")
	assert.Error(t, s.Revalidate(context.Background()))
	assert.Equal(t, StatusAuthenticated, s.State().Status())
}

func TestStore_ExpiryClearsIdentity(t *testing.T) {
	p := newFakeProvider()
	p.expiresAt = time.Now().Add(200 * time.Millisecond)
	s := newResolvedStore(t, p)

	require.NoError(t, s.SignIn(context.Background(), "me@example.com", "secret1"))
	assert.Equal(t, StatusAuthenticated, s.State().Status())

	assert.Eventually(t, func() bool {
		return s.State().Status() == StatusUnauthenticated
	}, time.Second, 5*time.Millisecond)
}

func TestStore_Watch(t *testing.T) {
	s := NewStore(newFakeProvider(), nil)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Watch(ctx)

	first := <-ch
	assert.Equal(t, StatusLoading, first.Status())

	require.NoError(t, s.Resolve(context.Background(), ""))
	second := <-ch
	assert.Equal(t, StatusUnauthenticated, second.Status())

	cancel()
	_, open := <-ch
	for open {
		_, open = <-ch
	}
}

func TestStore_WatchEndsOnClose(t *testing.T) {
	s := NewStore(newFakeProvider(), nil)
	ch := s.Watch(context.Background())
	<-ch

	s.Close()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after Close")
	}
}

func TestStore_ClosedRejectsSignIn(t *testing.T) {
	s := newResolvedStore(t, newFakeProvider())
	s.Close()

	assert.ErrorIs(t, s.SignIn(context.Background(), "me@example.com", "secret1"), ErrClosed)
}

func TestStore_SignInRevokesReplacedSession(t *testing.T) {
	p := newFakeProvider()
	s := newResolvedStore(t, p)
	ctx := context.Background()

	require.NoError(t, s.SignIn(ctx, "me@example.com", "secret1"))
	first, _ := s.State().Identity()

	// A second sign-in lands while the first session is still current
	require.NoError(t, s.SignIn(ctx, "me@example.com", "secret1"))
	second, ok := s.State().Identity()
	require.True(t, ok)
	require.NotEqual(t, first.Token, second.Token)

	assert.Equal(t, int32(1), p.signOutCalls.Load())
	gone, err := p.Resolve(ctx, first.Token)
	require.NoError(t, err)
	assert.Nil(t, gone)
	live, err := p.Resolve(ctx, second.Token)
	require.NoError(t, err)
	assert.NotNil(t, live)
}

func TestStore_SignInAfterCloseRevokesNewSession(t *testing.T) {
	p := newFakeProvider()
	s := newResolvedStore(t, p)
	s.Close()

	require.ErrorIs(t, s.SignIn(context.Background(), "me@example.com", "secret1"), ErrClosed)
	assert.Equal(t, int32(1), p.signOutCalls.Load())
	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Empty(t, p.sessions)
}

func TestState_NeverPendingWithIdentity(t *testing.T) {
	states := []State{
		Loading(),
		Unauthenticated(),
		Authenticated(identity.Identity{Email: "a@b.c"}),
		{},
	}
	for _, st := range states {
		_, has := st.Identity()
		if st.Phase() == PhasePending {
			assert.False(t, has, "pending state %v carries an identity", st)
		}
	}
}
