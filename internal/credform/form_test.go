// ABOUTME: Tests for the credential form state machine
// ABOUTME: Covers mode toggling, re-entrancy, error display and panic release

package credform

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/creatordash/internal/identity"
)

// stubAuth records calls and returns or panics as configured.
type stubAuth struct {
	err     error
	panicV  any
	block   chan struct{}
	entered chan struct{}
	signIns atomic.Int32
	signUps atomic.Int32
}

func (a *stubAuth) do() error {
	if a.entered != nil {
		a.entered <- struct{}{}
	}
	if a.block != nil {
		<-a.block
	}
	if a.panicV != nil {
		panic(a.panicV)
	}
	return a.err
}

func (a *stubAuth) SignIn(context.Context, string, string) error {
	a.signIns.Add(1)
	return a.do()
}

func (a *stubAuth) SignUp(context.Context, string, string) error {
	a.signUps.Add(1)
	return a.do()
}

func filledForm() *Form {
	f := New(nil)
	f.SetEmail("me@example.com")
	f.SetPassword("secret1")
	return f
}

func TestToggleMode_TwiceRestoresModeAndKeepsFields(t *testing.T) {
	f := filledForm()
	before := f.Snapshot()

	f.ToggleMode()
	assert.Equal(t, ModeSignUp, f.Snapshot().Mode)
	f.ToggleMode()

	after := f.Snapshot()
	assert.Equal(t, before.Mode, after.Mode)
	assert.Equal(t, "me@example.com", after.Email)
	assert.Equal(t, "secret1", after.Password)
}

func TestToggleMode_ClearsLastError(t *testing.T) {
	f := filledForm()
	auth := &stubAuth{err: identity.NewAuthError("Invalid credentials", nil)}
	require.Error(t, f.Submit(context.Background(), auth))
	require.NotEmpty(t, f.Snapshot().LastError)

	f.ToggleMode()
	in := f.Snapshot()
	assert.Empty(t, in.LastError)
	assert.Equal(t, "me@example.com", in.Email)
}

func TestToggleReveal(t *testing.T) {
	f := filledForm()
	f.ToggleReveal()
	assert.True(t, f.Snapshot().RevealPassword)
	f.ToggleReveal()
	assert.False(t, f.Snapshot().RevealPassword)
}

func TestSubmit_FailedSignInShowsMessage(t *testing.T) {
	f := filledForm()
	auth := &stubAuth{err: identity.NewAuthError("Invalid credentials", nil)}

	err := f.Submit(context.Background(), auth)
	require.Error(t, err)

	in := f.Snapshot()
	assert.Equal(t, "Invalid credentials", in.LastError)
	assert.False(t, in.Submitting)
	assert.Equal(t, "me@example.com", in.Email)
	assert.Empty(t, in.Password)
	assert.Equal(t, int32(1), auth.signIns.Load())
}

func TestSubmit_ModeSelectsOperation(t *testing.T) {
	f := filledForm()
	f.ToggleMode()
	auth := &stubAuth{}

	require.NoError(t, f.Submit(context.Background(), auth))
	assert.Equal(t, int32(1), auth.signUps.Load())
	assert.Equal(t, int32(0), auth.signIns.Load())
}

func TestSubmit_SuccessDiscardsInput(t *testing.T) {
	f := filledForm()
	f.ToggleReveal()

	require.NoError(t, f.Submit(context.Background(), &stubAuth{}))
	assert.Equal(t, Input{}, f.Snapshot())
}

func TestSubmit_UnexpectedErrorIsGeneric(t *testing.T) {
	f := filledForm()
	err := f.Submit(context.Background(), &stubAuth{err: errors.New("dial tcp: connection refused")})
	require.Error(t, err)

	in := f.Snapshot()
	assert.Equal(t, MsgUnexpected, in.LastError)
	assert.False(t, in.Submitting)
}

func TestSubmit_PanicReleasesSubmitting(t *testing.T) {
	f := filledForm()
	err := f.Submit(context.Background(), &stubAuth{panicV: "boom"})
	assert.ErrorIs(t, err, ErrUnexpected)

	in := f.Snapshot()
	assert.False(t, in.Submitting)
	assert.Equal(t, MsgUnexpected, in.LastError)
	assert.Empty(t, in.Password)
}

func TestSubmit_RejectsReentry(t *testing.T) {
	f := filledForm()
	auth := &stubAuth{block: make(chan struct{}), entered: make(chan struct{}, 1)}

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background(), auth) }()

	select {
	case <-auth.entered:
	case <-time.After(time.Second):
		t.Fatal("first submit never reached the authenticator")
	}
	assert.True(t, f.Snapshot().Submitting)

	assert.ErrorIs(t, f.Submit(context.Background(), auth), ErrInFlight)

	close(auth.block)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), auth.signIns.Load())
}

func TestSubmit_Incomplete(t *testing.T) {
	f := New(nil)
	f.SetEmail("me@example.com")
	auth := &stubAuth{}

	assert.ErrorIs(t, f.Submit(context.Background(), auth), ErrIncomplete)
	assert.Equal(t, int32(0), auth.signIns.Load())

	in := f.Snapshot()
	assert.False(t, in.Submitting)
	assert.Equal(t, MsgIncomplete, in.LastError)
	assert.Equal(t, "me@example.com", in.Email)
}

func TestSubmit_IncompleteDropsPassword(t *testing.T) {
	f := New(nil)
	f.SetPassword("secret1")

	assert.ErrorIs(t, f.Submit(context.Background(), &stubAuth{}), ErrIncomplete)
	assert.Empty(t, f.Snapshot().Password)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeSignUp, ParseMode(ModeSignUp.String()))
	assert.Equal(t, ModeSignIn, ParseMode(ModeSignIn.String()))
	assert.Equal(t, ModeSignIn, ParseMode("bogus"))
}
