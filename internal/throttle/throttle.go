// Package throttle limits repeated failed logins per account.
package throttle

import (
	"context"
	"strings"
	"time"
)

// Policy describes when a key gets locked and for how long
type Policy struct {
	MaxAttempts int           // Failures allowed inside Window before locking
	Window      time.Duration // Failure counting window
	Lockout     time.Duration // How long a locked key stays locked
}

// DefaultPolicy locks an account for 10 minutes after 5 failures in 15 minutes
var DefaultPolicy = Policy{
	MaxAttempts: 5,
	Window:      15 * time.Minute,
	Lockout:     10 * time.Minute,
}

// Limiter tracks failed attempts per key
type Limiter interface {
	// Allowed reports whether a new attempt for key may be checked
	Allowed(ctx context.Context, key string) (bool, error)
	// Failure records a failed attempt
	Failure(ctx context.Context, key string) error
	// Reset clears the failures after a successful attempt
	Reset(ctx context.Context, key string) error
}

// Key normalizes an email into a limiter key
func Key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.Window <= 0 {
		p.Window = DefaultPolicy.Window
	}
	if p.Lockout <= 0 {
		p.Lockout = DefaultPolicy.Lockout
	}
	return p
}
