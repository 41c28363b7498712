package constants

import "time"

// Account values
const (
	// DefaultAvatarInitial is shown when a display name has no letters
	DefaultAvatarInitial = "U"

	// LocalIssuer is the JWT issuer for tokens minted by the server
	LocalIssuer = "f1blog"
)

// Timeout and interval constants
const (
	// HTTPClientTimeout is the per-request timeout of the API client
	HTTPClientTimeout = 10 * time.Second

	// ServerReadTimeout is the HTTP server read timeout
	ServerReadTimeout = 15 * time.Second

	// ServerWriteTimeout is the HTTP server write timeout.
	// Pages wait for their data fetches before responding.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the HTTP server idle timeout
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout bounds graceful shutdown
	ServerShutdownTimeout = 30 * time.Second

	// CredentialCheckTimeout bounds one password verification
	CredentialCheckTimeout = 5 * time.Second

	// ThrottleSweepSchedule is the cron schedule for pruning idle login counters
	ThrottleSweepSchedule = "@every 1m"
)

// Size limits
const (
	// MaxRequestBodySize is the largest accepted request body
	MaxRequestBodySize = 1 << 20

	// MaxHeaderBytes is the largest accepted request header block
	MaxHeaderBytes = 1 << 20
)

// Circuit breaker constants
const (
	// CircuitBreakerFailureThreshold is the number of consecutive failures before opening circuit
	CircuitBreakerFailureThreshold = 5

	// CircuitBreakerCooldown is how long an open circuit rejects calls before a probe
	CircuitBreakerCooldown = 30 * time.Second
)
