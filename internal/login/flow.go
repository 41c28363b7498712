// Package login drives the credential round trip: submit once, then either
// navigate to the callback or show a generic error and allow a retry.
package login

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/f1blog/internal/domain"
	"github.com/f1blog/internal/session"
)

// User-facing messages. They never say which part of the credential was wrong.
const (
	MsgRejected     = "Incorrect email or password"
	MsgFailed       = "Login failed, try again"
	MsgMissingInput = "Enter your email and password"
	MsgInvalidEmail = "Enter a valid email address"
)

// DefaultTimeout bounds one sign-in call
const DefaultTimeout = 10 * time.Second

var (
	// ErrBusy is returned when a submission is already in flight
	ErrBusy = errors.New("login: submission in progress")
	// ErrCompleted is returned after a successful sign-in
	ErrCompleted = errors.New("login: already signed in")
)

// Credential is an email and secret handed to an Authenticator for one call.
// The Flow zeroes Secret once the call returns.
type Credential struct {
	Email  string
	Secret []byte
}

// Result is what the verification service answered
type Result struct {
	Rejected bool
}

// Authenticator verifies credentials without navigating anywhere.
// A rejected credential is a Result; an error means the call itself failed.
type Authenticator interface {
	SignIn(ctx context.Context, cred Credential) (Result, error)
}

// AuthenticatorFunc adapts a function to Authenticator
type AuthenticatorFunc func(ctx context.Context, cred Credential) (Result, error)

// SignIn implements Authenticator
func (f AuthenticatorFunc) SignIn(ctx context.Context, cred Credential) (Result, error) {
	return f(ctx, cred)
}

// Phase is the state of the flow
type Phase int

const (
	Idle Phase = iota
	Submitting
	NavigatingAway
)

// String returns the string value of the phase
func (p Phase) String() string {
	switch p {
	case Submitting:
		return "submitting"
	case NavigatingAway:
		return "navigating"
	default:
		return "idle"
	}
}

// Outcome is the result of one Submit
type Outcome struct {
	Phase    Phase
	Navigate string // Set once, on success
	Error    string // Set on failure; Phase is back to Idle
}

// Snapshot is the renderable state of the form
type Snapshot struct {
	Phase Phase
	Error string
}

// Busy reports whether the submit control should be disabled
func (s Snapshot) Busy() bool {
	return s.Phase != Idle
}

// Flow is the login form state machine: Idle, Submitting, then
// NavigatingAway on success or Idle with an error on failure.
type Flow struct {
	auth     Authenticator
	callback string
	timeout  time.Duration
	refresh  func(ctx context.Context)

	mu    sync.Mutex
	phase Phase
	err   string
}

// Option configures a Flow
type Option func(*Flow)

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRefresh registers a hook run once after a successful sign-in so
// session-dependent state is read again
func WithRefresh(fn func(ctx context.Context)) Option {
	return func(f *Flow) {
		f.refresh = fn
	}
}

// NewFlow creates a Flow returning to callback after sign-in.
// Unsafe or empty callbacks become "/".
func NewFlow(auth Authenticator, callback string, opts ...Option) *Flow {
	f := &Flow{
		auth:     auth,
		callback: session.SanitizeCallback(callback),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Callback returns the sanitized return path
func (f *Flow) Callback() string {
	return f.callback
}

// State returns the current form state
func (f *Flow) State() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{Phase: f.phase, Error: f.err}
}

// Submit validates the input and performs one sign-in call. While a call is
// in flight other Submits return ErrBusy without reaching the Authenticator.
func (f *Flow) Submit(ctx context.Context, email, secret string) (Outcome, error) {
	f.mu.Lock()
	switch f.phase {
	case Submitting:
		f.mu.Unlock()
		return Outcome{Phase: Submitting}, ErrBusy
	case NavigatingAway:
		f.mu.Unlock()
		return Outcome{Phase: NavigatingAway, Navigate: f.callback}, ErrCompleted
	}

	if msg := validate(email, secret); msg != "" {
		f.err = msg
		f.mu.Unlock()
		return Outcome{Phase: Idle, Error: msg}, nil
	}

	f.phase = Submitting
	f.err = ""
	f.mu.Unlock()

	cred := Credential{Email: strings.TrimSpace(email), Secret: []byte(secret)}
	res, err := f.call(ctx, cred)

	f.mu.Lock()
	var out Outcome
	switch {
	case err != nil:
		f.phase, f.err = Idle, MsgFailed
		out = Outcome{Phase: Idle, Error: MsgFailed}
	case res.Rejected:
		f.phase, f.err = Idle, MsgRejected
		out = Outcome{Phase: Idle, Error: MsgRejected}
	default:
		f.phase = NavigatingAway
		out = Outcome{Phase: NavigatingAway, Navigate: f.callback}
	}
	f.mu.Unlock()

	if out.Phase == NavigatingAway && f.refresh != nil {
		f.refresh(ctx)
	}
	return out, nil
}

// call runs the Authenticator under the flow timeout. A panic or an
// expired deadline is reported as a failed call. The secret is zeroed once
// the Authenticator returns, which may be after an abandoned call.
func (f *Flow) call(ctx context.Context, cred Credential) (res Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	type reply struct {
		res Result
		err error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				clear(cred.Secret)
				done <- reply{err: errors.New("login: authenticator panicked")}
			}
		}()
		r, e := f.auth.SignIn(ctx, cred)
		clear(cred.Secret)
		done <- reply{r, e}
	}()

	select {
	case r := <-done:
		return r.res, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func validate(email, secret string) string {
	if strings.TrimSpace(email) == "" || secret == "" {
		return MsgMissingInput
	}
	if _, err := domain.NewEmail(email); err != nil {
		return MsgInvalidEmail
	}
	return ""
}
