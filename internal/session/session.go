// Package session exposes the signed-in principal of a request.
//
// Tokens are issued and validated by go-pkgz/auth; this package only reads
// the user the auth middleware attached to the request and confirms the
// account is still allowed in.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/go-pkgz/auth/token"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/f1blog/internal/constants"
)

// UserIDAttr is the token attribute holding the account id
const UserIDAttr = "uid"

// DefaultCallback is used whenever a callback is absent or unsafe
const DefaultCallback = "/"

// Session is an authenticated principal
type Session struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Initial returns the upper-cased first letter of the name, or "U"
func (s *Session) Initial() string {
	for _, r := range strings.TrimSpace(s.Name) {
		return string(unicode.ToUpper(r))
	}
	return constants.DefaultAvatarInitial
}

// FromUser converts a token user into a Session
func FromUser(u token.User) Session {
	id := u.StrAttr(UserIDAttr)
	if id == "" {
		id = u.ID
	}
	return Session{
		UserID: id,
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Picture,
	}
}

// Prober answers whether a request carries a valid session.
// (nil, nil) means no session; an error means the check itself failed.
type Prober interface {
	Probe(r *http.Request) (*Session, error)
}

// ProberFunc adapts a function to Prober
type ProberFunc func(r *http.Request) (*Session, error)

// Probe implements Prober
func (f ProberFunc) Probe(r *http.Request) (*Session, error) { return f(r) }

// AccountChecker confirms an account may still use its session
type AccountChecker interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// TokenProber reads the user set by go-pkgz/auth's Trace middleware
type TokenProber struct {
	accounts AccountChecker
	timeout  time.Duration
	logger   *slog.Logger
}

// NewTokenProber creates a prober. accounts may be nil to trust the token alone.
func NewTokenProber(accounts AccountChecker, timeout time.Duration, logger *slog.Logger) *TokenProber {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenProber{accounts: accounts, timeout: timeout, logger: logger}
}

// ErrCheckTimeout is returned when the account check does not finish in time
var ErrCheckTimeout = errors.New("session check timed out")

// Probe implements Prober
func (p *TokenProber) Probe(r *http.Request) (*Session, error) {
	ctx, span := otel.Tracer("github.com/f1blog/internal/session").Start(r.Context(), "session.probe")
	defer span.End()

	user, err := token.GetUserInfo(r)
	if err != nil {
		// No user in context: the request carries no valid token
		span.SetAttributes(attribute.Bool("session.present", false))
		return nil, nil
	}

	s := FromUser(user)
	if s.UserID == "" {
		span.SetAttributes(attribute.Bool("session.present", false))
		return nil, nil
	}

	if p.accounts != nil {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		active, err := p.accounts.IsActive(ctx, s.UserID)
		if err == nil && ctx.Err() != nil {
			err = ErrCheckTimeout
		}
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = ErrCheckTimeout
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "account check failed")
			return nil, err
		}
		if !active {
			p.logger.DebugContext(ctx, "token belongs to inactive account", "user_id", s.UserID)
			span.SetAttributes(attribute.Bool("session.present", false))
			return nil, nil
		}
	}

	span.SetAttributes(attribute.Bool("session.present", true))
	return &s, nil
}

// SanitizeCallback returns raw when it is a same-origin path, else DefaultCallback.
// Scheme-relative URLs, absolute URLs, backslashes and control characters are rejected.
func SanitizeCallback(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return DefaultCallback
	}
	if strings.ContainsRune(raw, '\\') {
		return DefaultCallback
	}
	for _, r := range raw {
		if unicode.IsControl(r) {
			return DefaultCallback
		}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return DefaultCallback
	}
	return raw
}
