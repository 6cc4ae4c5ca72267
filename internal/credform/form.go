// ABOUTME: Credential form state machine for email/password sign-in and sign-up
// ABOUTME: Guards re-entrant submits and always releases the submitting flag

package credform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/creatordash/internal/identity"
)

const (
	// MsgUnexpected is shown for failures that carry no display message.
	MsgUnexpected = "An unexpected error occurred"

	// MsgIncomplete is shown when a submission is missing a field.
	MsgIncomplete = "Email and password are required"
)

var (
	// ErrInFlight is returned when a submission is already outstanding.
	ErrInFlight = errors.New("submission already in flight")

	// ErrIncomplete is returned when email or password is empty.
	ErrIncomplete = errors.New("email and password are required")

	// ErrUnexpected wraps a panic raised during submission.
	ErrUnexpected = errors.New("unexpected submission failure")
)

// Mode selects which provider operation a submit performs.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeSignUp
)

func (m Mode) String() string {
	if m == ModeSignUp {
		return "sign_up"
	}
	return "sign_in"
}

// ParseMode is the inverse of String. Unknown values are sign-in.
func ParseMode(s string) Mode {
	if s == "sign_up" {
		return ModeSignUp
	}
	return ModeSignIn
}

// Input is the transient state of the form.
type Input struct {
	Email          string
	Password       string
	RevealPassword bool
	Mode           Mode
	Submitting     bool
	LastError      string
}

// Authenticator performs the submission. *session.Store satisfies it.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string) error
}

// Form owns one visitor's Input. Safe for concurrent use.
type Form struct {
	mu     sync.Mutex
	in     Input
	logger *slog.Logger
}

// New creates an empty form in sign-in mode.
func New(logger *slog.Logger) *Form {
	if logger == nil {
		logger = slog.Default()
	}
	return &Form{logger: logger.With("component", "credform")}
}

// Snapshot returns a copy of the current input.
func (f *Form) Snapshot() Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.in
}

func (f *Form) SetEmail(email string) {
	f.mu.Lock()
	f.in.Email = email
	f.mu.Unlock()
}

func (f *Form) SetPassword(password string) {
	f.mu.Lock()
	f.in.Password = password
	f.mu.Unlock()
}

// ToggleMode switches between sign-in and sign-up. The last error is
// cleared; typed email and password are kept.
func (f *Form) ToggleMode() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.in.Mode == ModeSignIn {
		f.in.Mode = ModeSignUp
	} else {
		f.in.Mode = ModeSignIn
	}
	f.in.LastError = ""
}

func (f *Form) ToggleReveal() {
	f.mu.Lock()
	f.in.RevealPassword = !f.in.RevealPassword
	f.mu.Unlock()
}

// Submit sends the current credentials through auth according to the mode.
//
// A second Submit while one is outstanding returns ErrInFlight without
// calling auth. On failure LastError holds the display message and only the
// email is kept; on success the input is discarded. The password never
// outlives the call. Submitting is released in every case, including a
// panic inside auth.
func (f *Form) Submit(ctx context.Context, auth Authenticator) (err error) {
	f.mu.Lock()
	if f.in.Submitting {
		f.mu.Unlock()
		return ErrInFlight
	}
	if f.in.Email == "" || f.in.Password == "" {
		f.in.Password = ""
		f.in.LastError = MsgIncomplete
		f.mu.Unlock()
		return ErrIncomplete
	}
	f.in.Submitting = true
	f.in.LastError = ""
	mode, email, password := f.in.Mode, f.in.Email, f.in.Password
	f.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("credential submission panicked", "panic", r)
			err = fmt.Errorf("%w: %v", ErrUnexpected, r)
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if err == nil {
			f.in = Input{}
			return
		}
		f.in.Submitting = false
		f.in.Password = ""
		f.in.LastError = displayMessage(err)
	}()

	if mode == ModeSignUp {
		err = auth.SignUp(ctx, email, password)
	} else {
		err = auth.SignIn(ctx, email, password)
	}
	if err != nil {
		if _, ok := identity.AsAuthError(err); !ok {
			f.logger.Error("credential submission failed", "mode", mode, "error", err)
		}
	}
	return err
}

func displayMessage(err error) string {
	if ae, ok := identity.AsAuthError(err); ok && ae.Message != "" {
		return ae.Message
	}
	return MsgUnexpected
}
