// Package gate decides, before any handler runs, whether a request may
// reach its page or must be sent to the login page first.
package gate

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/f1blog/internal/session"
)

// CallbackParam is the login page query parameter holding the return path
const CallbackParam = "callbackUrl"

// sessionContextKey is the gin context key holding the probed *session.Session
const sessionContextKey = "session"

// Kind is the outcome of evaluating a request
type Kind int

const (
	Allow Kind = iota
	Redirect
)

// String returns the metric label of the kind
func (k Kind) String() string {
	if k == Redirect {
		return "redirect"
	}
	return "allow"
}

// Decision is the result of Evaluate
type Decision struct {
	Kind     Kind
	Location string           // Login URL with the callback attached, for Redirect
	Callback string           // Original path and query, for Redirect
	Session  *session.Session // Probed session for protected paths, nil otherwise
}

// Gate guards a fixed set of protected paths
type Gate struct {
	paths     PathSet
	loginPath string
	prober    session.Prober
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
}

// Option configures a Gate
type Option func(*Gate)

// WithMetrics records every decision in m
func WithMetrics(m *Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// New creates a Gate
func New(paths PathSet, loginPath string, prober session.Prober, logger *slog.Logger, opts ...Option) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		paths:     paths,
		loginPath: loginPath,
		prober:    prober,
		logger:    logger,
		tracer:    otel.Tracer("github.com/f1blog/internal/gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate decides what to do with r. Unprotected paths are allowed without
// probing. For protected paths a failed probe counts as no session.
func (g *Gate) Evaluate(r *http.Request) Decision {
	ctx, span := g.tracer.Start(r.Context(), "gate.evaluate")
	defer span.End()

	if !g.paths.Match(r.URL.Path) {
		span.SetAttributes(attribute.Bool("gate.protected", false))
		return g.record(Decision{Kind: Allow}, "")
	}
	span.SetAttributes(attribute.Bool("gate.protected", true))

	s, err := g.prober.Probe(r.WithContext(ctx))
	reason := ""
	if err != nil {
		g.logger.WarnContext(ctx, "session check failed, treating request as signed out",
			"path", r.URL.Path,
			"error", err,
		)
		span.RecordError(err)
		s = nil
		reason = "probe_error"
	}

	if s != nil {
		return g.record(Decision{Kind: Allow, Session: s}, "")
	}

	callback := r.URL.Path
	if r.URL.RawQuery != "" {
		callback += "?" + r.URL.RawQuery
	}
	if reason == "" {
		reason = "no_session"
	}
	return g.record(Decision{
		Kind:     Redirect,
		Callback: callback,
		Location: LoginURL(g.loginPath, callback),
	}, reason)
}

func (g *Gate) record(d Decision, reason string) Decision {
	if g.metrics != nil {
		g.metrics.observe(d.Kind, reason)
	}
	return d
}

// LoginURL builds the login location carrying callback
func LoginURL(loginPath, callback string) string {
	q := url.Values{}
	q.Set(CallbackParam, callback)
	return loginPath + "?" + q.Encode()
}

// Middleware applies Evaluate to every request. Redirects use 307 so the
// method is kept; allowed protected requests carry their session in the context.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Evaluate(c.Request)

		if d.Kind == Redirect {
			c.Header("Cache-Control", "no-store")
			c.Redirect(http.StatusTemporaryRedirect, d.Location)
			c.Abort()
			return
		}

		if d.Session != nil {
			c.Set(sessionContextKey, d.Session)
		}
		c.Next()
	}
}

// SessionFromContext returns the session the gate attached, if any
func SessionFromContext(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*session.Session)
	return s, ok && s != nil
}
