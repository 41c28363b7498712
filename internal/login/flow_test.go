package login

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubAuth struct {
	result Result
	err    error
	calls  atomic.Int32
	seen   []Credential
	mu     sync.Mutex
}

func (s *stubAuth) SignIn(_ context.Context, cred Credential) (Result, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.seen = append(s.seen, cred)
	s.mu.Unlock()
	return s.result, s.err
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name         string
		email        string
		secret       string
		auth         *stubAuth
		callback     string
		wantPhase    Phase
		wantError    string
		wantNavigate string
		wantCalls    int32
	}{
		{
			name:         "accepted credentials navigate to callback",
			email:        "ana@example.com",
			secret:       "hunter2",
			auth:         &stubAuth{},
			callback:     "/feed",
			wantPhase:    NavigatingAway,
			wantNavigate: "/feed",
			wantCalls:    1,
		},
		{
			name:         "missing callback defaults to root",
			email:        "ana@example.com",
			secret:       "hunter2",
			auth:         &stubAuth{},
			wantPhase:    NavigatingAway,
			wantNavigate: "/",
			wantCalls:    1,
		},
		{
			name:         "foreign callback defaults to root",
			email:        "ana@example.com",
			secret:       "hunter2",
			auth:         &stubAuth{},
			callback:     "https://evil.example/",
			wantPhase:    NavigatingAway,
			wantNavigate: "/",
			wantCalls:    1,
		},
		{
			name:      "rejected credentials",
			email:     "ana@example.com",
			secret:    "wrong",
			auth:      &stubAuth{result: Result{Rejected: true}},
			callback:  "/feed",
			wantPhase: Idle,
			wantError: MsgRejected,
			wantCalls: 1,
		},
		{
			name:      "transport failure",
			email:     "ana@example.com",
			secret:    "hunter2",
			auth:      &stubAuth{err: errors.New("connection refused")},
			callback:  "/feed",
			wantPhase: Idle,
			wantError: MsgFailed,
			wantCalls: 1,
		},
		{
			name:      "empty email never reaches the service",
			email:     "  ",
			secret:    "hunter2",
			auth:      &stubAuth{},
			wantPhase: Idle,
			wantError: MsgMissingInput,
		},
		{
			name:      "empty secret never reaches the service",
			email:     "ana@example.com",
			auth:      &stubAuth{},
			wantPhase: Idle,
			wantError: MsgMissingInput,
		},
		{
			name:      "malformed email never reaches the service",
			email:     "not-an-email",
			secret:    "hunter2",
			auth:      &stubAuth{},
			wantPhase: Idle,
			wantError: MsgInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFlow(tt.auth, tt.callback)

			out, err := f.Submit(context.Background(), tt.email, tt.secret)
			if err != nil {
				t.Fatalf("Submit() error: %v", err)
			}

			if out.Phase != tt.wantPhase {
				t.Errorf("Phase = %v, want %v", out.Phase, tt.wantPhase)
			}
			if out.Error != tt.wantError {
				t.Errorf("Error = %q, want %q", out.Error, tt.wantError)
			}
			if out.Navigate != tt.wantNavigate {
				t.Errorf("Navigate = %q, want %q", out.Navigate, tt.wantNavigate)
			}
			if got := tt.auth.calls.Load(); got != tt.wantCalls {
				t.Errorf("authenticator called %d times, want %d", got, tt.wantCalls)
			}

			st := f.State()
			if st.Phase != tt.wantPhase || st.Error != tt.wantError {
				t.Errorf("State() = %+v, want phase %v error %q", st, tt.wantPhase, tt.wantError)
			}
		})
	}
}

func TestSubmitWhileInFlightIsRejected(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var calls atomic.Int32

	auth := AuthenticatorFunc(func(ctx context.Context, cred Credential) (Result, error) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-release
		return Result{}, nil
	})
	f := NewFlow(auth, "/dashboard")

	done := make(chan Outcome, 1)
	go func() {
		out, _ := f.Submit(context.Background(), "ana@example.com", "hunter2")
		done <- out
	}()
	<-entered

	if !f.State().Busy() {
		t.Error("Expected form to be busy while submitting")
	}

	for i := 0; i < 3; i++ {
		out, err := f.Submit(context.Background(), "ana@example.com", "hunter2")
		if !errors.Is(err, ErrBusy) {
			t.Errorf("Submit() error = %v, want ErrBusy", err)
		}
		if out.Navigate != "" {
			t.Errorf("busy submit should not navigate, got %q", out.Navigate)
		}
	}

	close(release)
	out := <-done
	if out.Navigate != "/dashboard" {
		t.Errorf("Navigate = %q, want /dashboard", out.Navigate)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("authenticator called %d times, want 1", got)
	}
}

func TestSubmitAfterSuccess(t *testing.T) {
	auth := &stubAuth{}
	f := NewFlow(auth, "/feed")

	if _, err := f.Submit(context.Background(), "ana@example.com", "hunter2"); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	out, err := f.Submit(context.Background(), "ana@example.com", "hunter2")
	if !errors.Is(err, ErrCompleted) {
		t.Errorf("second Submit() error = %v, want ErrCompleted", err)
	}
	if out.Navigate != "/feed" {
		t.Errorf("Navigate = %q, want /feed", out.Navigate)
	}
	if got := auth.calls.Load(); got != 1 {
		t.Errorf("authenticator called %d times, want 1", got)
	}
}

func TestRetryAfterFailure(t *testing.T) {
	auth := &stubAuth{result: Result{Rejected: true}}
	f := NewFlow(auth, "/feed")

	out, _ := f.Submit(context.Background(), "ana@example.com", "wrong")
	if out.Error != MsgRejected {
		t.Fatalf("Error = %q, want %q", out.Error, MsgRejected)
	}

	auth.result = Result{}
	out, err := f.Submit(context.Background(), "ana@example.com", "hunter2")
	if err != nil {
		t.Fatalf("retry error: %v", err)
	}
	if out.Navigate != "/feed" || out.Error != "" {
		t.Errorf("retry outcome = %+v, want navigate to /feed", out)
	}
}

func TestSubmitTimeout(t *testing.T) {
	auth := AuthenticatorFunc(func(ctx context.Context, cred Credential) (Result, error) {
		time.Sleep(200 * time.Millisecond)
		return Result{}, nil
	})
	f := NewFlow(auth, "/feed", WithTimeout(20*time.Millisecond))

	start := time.Now()
	out, err := f.Submit(context.Background(), "ana@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("Submit() took %v, expected timeout", elapsed)
	}
	if out.Error != MsgFailed || out.Phase != Idle {
		t.Errorf("outcome = %+v, want idle with %q", out, MsgFailed)
	}
}

func TestAuthenticatorPanicIsAFailure(t *testing.T) {
	auth := AuthenticatorFunc(func(ctx context.Context, cred Credential) (Result, error) {
		panic("boom")
	})
	f := NewFlow(auth, "/")

	out, err := f.Submit(context.Background(), "ana@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if out.Error != MsgFailed {
		t.Errorf("Error = %q, want %q", out.Error, MsgFailed)
	}
}

func TestSecretIsZeroedAfterCall(t *testing.T) {
	auth := &stubAuth{result: Result{Rejected: true}}
	f := NewFlow(auth, "/")

	if _, err := f.Submit(context.Background(), " ana@example.com ", "hunter2"); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	if len(auth.seen) != 1 {
		t.Fatalf("Expected one credential, got %d", len(auth.seen))
	}
	cred := auth.seen[0]
	if cred.Email != "ana@example.com" {
		t.Errorf("Email = %q, want trimmed address", cred.Email)
	}
	for i, b := range cred.Secret {
		if b != 0 {
			t.Fatalf("Secret byte %d not zeroed", i)
		}
	}
}

func TestRefreshRunsOnceOnSuccess(t *testing.T) {
	var refreshed atomic.Int32
	refresh := func(context.Context) { refreshed.Add(1) }

	ok := NewFlow(&stubAuth{}, "/", WithRefresh(refresh))
	ok.Submit(context.Background(), "ana@example.com", "hunter2")
	ok.Submit(context.Background(), "ana@example.com", "hunter2")

	rejected := NewFlow(&stubAuth{result: Result{Rejected: true}}, "/", WithRefresh(refresh))
	rejected.Submit(context.Background(), "ana@example.com", "wrong")

	if got := refreshed.Load(); got != 1 {
		t.Errorf("refresh ran %d times, want 1", got)
	}
}

func TestAbandonedCallKeepsSecretUntilItReturns(t *testing.T) {
	release := make(chan struct{})
	read := make(chan string, 1)
	auth := AuthenticatorFunc(func(_ context.Context, cred Credential) (Result, error) {
		<-release
		read <- string(cred.Secret)
		return Result{}, nil
	})

	f := NewFlow(auth, "/", WithTimeout(10*time.Millisecond))
	out, err := f.Submit(context.Background(), "ana@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if out.Error != MsgFailed {
		t.Fatalf("Error = %q, want %q", out.Error, MsgFailed)
	}

	// The timed-out call is still running and must see the whole secret
	close(release)
	if got := <-read; got != "hunter2" {
		t.Errorf("abandoned call read secret %q, want %q", got, "hunter2")
	}
}
