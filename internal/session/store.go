// ABOUTME: Session Store owning one visitor's session state
// ABOUTME: Wraps the identity provider and notifies subscribers in write order

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/2389/creatordash/internal/identity"
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("session store closed")

// errNoIdentity is returned when a provider reports success without an identity.
var errNoIdentity = errors.New("provider returned no identity")

// watchBuffer holds only the latest state; slow watchers skip intermediate ones.
const watchBuffer = 1

// Provider is the identity provider the store delegates to.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*identity.Identity, error)
	SignUp(ctx context.Context, email, password string) (*identity.Identity, error)
	SignOut(ctx context.Context, token string) error

	// Resolve returns the identity behind token, or nil when the session
	// is gone. An error means the provider could not answer.
	Resolve(ctx context.Context, token string) (*identity.Identity, error)
}

// Store holds the session of a single visitor. It is the only writer of that
// session; readers call State, Subscribe or Watch.
//
// Subscribers are called synchronously, in write order, before the mutating
// call returns. A subscriber must not call SignIn, SignUp, SignOut, Resolve
// or Revalidate on the same store.
type Store struct {
	provider Provider
	logger   *slog.Logger

	// notifyMu serializes write+notify so subscribers see states in order.
	notifyMu sync.Mutex

	mu       sync.Mutex
	state    State
	subs     map[uint64]func(State)
	nextSub  uint64
	expiry   *time.Timer
	closed   bool
	resolved chan struct{}
	done     chan struct{}

	signOut singleflight.Group
	now     func() time.Time
}

// NewStore creates a store in the Loading state.
func NewStore(provider Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		provider: provider,
		logger:   logger.With("component", "session"),
		state:    Loading(),
		subs:     make(map[uint64]func(State)),
		resolved: make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every subsequent state change and returns a
// function that removes it. The unsubscribe function must not be called from
// inside a subscriber.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			// Wait out any in-flight notification so fn is never called
			// after unsubscribe returns.
			s.notifyMu.Lock()
			defer s.notifyMu.Unlock()
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Watch streams the current state followed by every change until ctx is
// cancelled or the store is closed. Only the latest undelivered state is
// kept for a slow reader.
func (s *Store) Watch(ctx context.Context) <-chan State {
	ch := make(chan State, watchBuffer)
	push := func(st State) {
		for {
			select {
			case ch <- st:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}

	s.notifyMu.Lock()
	push(s.State())
	unsubscribe := s.Subscribe(push)
	s.notifyMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		unsubscribe()
		close(ch)
	}()

	return ch
}

// WaitResolved blocks until the session has left Loading or ctx is done.
func (s *Store) WaitResolved(ctx context.Context) error {
	select {
	case <-s.resolved:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resolve asks the provider for the session behind token and leaves Loading.
// It is a no-op once the session is resolved. A provider failure resolves to
// Unauthenticated and is returned.
func (s *Store) Resolve(ctx context.Context, token string) error {
	if s.State().Status() != StatusLoading {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	next := Unauthenticated()
	var resolveErr error
	if token != "" {
		id, err := s.provider.Resolve(ctx, token)
		switch {
		case err != nil:
			s.logger.Warn("session resolution failed", "error", err)
			resolveErr = err
		case id != nil:
			next = Authenticated(*id)
		}
	}

	s.transition(func(cur State) (State, bool) {
		return next, cur.Status() == StatusLoading
	})
	return resolveErr
}

// Revalidate asks the provider whether the current session is still valid
// and signs the visitor out locally when it is not.
func (s *Store) Revalidate(ctx context.Context) error {
	cur, ok := s.State().Identity()
	if !ok {
		return nil
	}

	id, err := s.provider.Resolve(context.WithoutCancel(ctx), cur.Token)
	if err != nil {
		return err
	}
	if id != nil {
		return nil
	}

	s.logger.Info("session no longer valid", "user_id", cur.UserID)
	s.transition(func(st State) (State, bool) {
		return Unauthenticated(), st.sameSession(cur.Token)
	})
	return nil
}

// SignIn authenticates with the provider. On success the new state has been
// delivered to all subscribers before SignIn returns.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	ctx = context.WithoutCancel(ctx)
	id, err := s.provider.SignIn(ctx, email, password)
	return s.applyIdentity(ctx, id, err)
}

// SignUp registers with the provider and signs in as the new account.
func (s *Store) SignUp(ctx context.Context, email, password string) error {
	ctx = context.WithoutCancel(ctx)
	id, err := s.provider.SignUp(ctx, email, password)
	return s.applyIdentity(ctx, id, err)
}

// applyIdentity makes id current. Last write wins: a late sign-in still
// replaces whatever is current, and the replaced session is revoked.
func (s *Store) applyIdentity(ctx context.Context, id *identity.Identity, err error) error {
	if err != nil {
		return err
	}
	if id == nil {
		return errNoIdentity
	}

	var replaced State
	applied := s.transition(func(cur State) (State, bool) {
		replaced = cur
		return Authenticated(*id), true
	})
	if !applied {
		// Nobody will ever use the new session
		s.revoke(ctx, *id)
		return ErrClosed
	}
	if prev, ok := replaced.Identity(); ok && prev.Token != id.Token {
		s.revoke(ctx, prev)
	}
	return nil
}

// revoke ends a session that is no longer current. Failures are logged;
// the row still lapses at its expiry.
func (s *Store) revoke(ctx context.Context, id identity.Identity) {
	if err := s.provider.SignOut(ctx, id.Token); err != nil {
		s.logger.Warn("revoking replaced session", "user_id", id.UserID, "error", err)
	}
}

// SignOut ends the current session. Concurrent calls share one provider
// round trip and all settle on Unauthenticated. Signing out an
// unauthenticated session is a no-op. On failure the state is unchanged.
func (s *Store) SignOut(ctx context.Context) error {
	cur, ok := s.State().Identity()
	if !ok {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	_, err, _ := s.signOut.Do(cur.Token, func() (any, error) {
		if err := s.provider.SignOut(ctx, cur.Token); err != nil {
			return nil, err
		}
		s.transition(func(st State) (State, bool) {
			return Unauthenticated(), st.sameSession(cur.Token)
		})
		return nil, nil
	})
	if err != nil {
		s.logger.Warn("sign-out failed", "user_id", cur.UserID, "error", err)
	}
	return err
}

// Close stops the expiry timer, drops subscribers and ends all watchers.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.expiry != nil {
		s.expiry.Stop()
	}
	s.subs = make(map[uint64]func(State))
	close(s.done)
}

// transition applies fn to the current state and, when fn accepts, stores
// the result and notifies subscribers. Sessions never return to Loading.
func (s *Store) transition(fn func(cur State) (State, bool)) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	next, ok := fn(s.state)
	if !ok || next.Status() == StatusLoading {
		s.mu.Unlock()
		return false
	}
	prev := s.state
	s.state = next
	if prev.Status() == StatusLoading {
		close(s.resolved)
	}
	s.armExpiryLocked(next)

	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.logger.Debug("session state changed", "from", prev.Status(), "to", next.Status())
	for _, fn := range subs {
		fn(next)
	}
	return true
}

func (s *Store) armExpiryLocked(st State) {
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	id, ok := st.Identity()
	if !ok || id.ExpiresAt.IsZero() {
		return
	}

	token := id.Token
	s.expiry = time.AfterFunc(id.ExpiresAt.Sub(s.now()), func() {
		s.logger.Info("session expired", "user_id", id.UserID)
		s.transition(func(cur State) (State, bool) {
			return Unauthenticated(), cur.sameSession(token)
		})
	})
}
