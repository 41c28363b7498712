package http

// Sessions are issued by go-pkgz/auth with the local direct provider:
//   - POST /auth/local/login  - JSON {"user": email, "passwd": secret}; 403 when rejected
//   - GET  /auth/logout       - Clear the session cookie
//   - GET  /api/session       - Current session or 401

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-pkgz/auth/provider"
	"github.com/go-pkgz/auth/token"

	"github.com/f1blog/internal/constants"
	"github.com/f1blog/internal/session"
)

// credChecker adapts the account service to the direct provider.
// The provider API carries no request context.
func (s *Server) credChecker() provider.CredCheckerFunc {
	return func(user, password string) (bool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), constants.CredentialCheckTimeout)
		defer cancel()

		ok, err := s.accountService.VerifyCredentials(ctx, user, password)
		switch {
		case err != nil:
			s.metrics.loginAttempts.WithLabelValues("error").Inc()
			s.logger.Error("credential check failed", "error", err)
			return false, err
		case !ok:
			s.metrics.loginAttempts.WithLabelValues("rejected").Inc()
			s.logger.Info("login rejected")
		default:
			s.metrics.loginAttempts.WithLabelValues("accepted").Inc()
		}
		return ok, nil
	}
}

// updateClaims fills the token user from the account table the first time a
// token is issued. The direct provider only knows the login name.
func (s *Server) updateClaims(claims token.Claims) token.Claims {
	if claims.User == nil || claims.User.StrAttr(session.UserIDAttr) != "" {
		return claims
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Auth.CheckTimeout)
	defer cancel()

	account, err := s.accountService.GetAccount(ctx, claims.User.Name)
	if err != nil {
		s.logger.Warn("failed to load account for token", "error", err)
		return claims
	}

	claims.User.SetStrAttr(session.UserIDAttr, account.ID)
	claims.User.Name = account.Name
	claims.User.Email = account.Email
	claims.User.Picture = account.AvatarURL
	return claims
}

// currentSession probes the request for a session on pages the gate does
// not guard. A failed check renders the page signed out.
func (s *Server) currentSession(c *gin.Context) *session.Session {
	sess, err := s.prober.Probe(c.Request)
	if err != nil {
		s.logger.WarnContext(c.Request.Context(), "session check failed", "path", c.Request.URL.Path, "error", err)
		return nil
	}
	return sess
}

// wrapAuthHandler wraps an http.Handler for use with Gin, stripping the prefix
// go-pkgz/auth expects paths relative to where it's mounted
func wrapAuthHandler(handler http.Handler, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		originalPath := c.Request.URL.Path
		c.Request.URL.Path = strings.TrimPrefix(originalPath, prefix)

		handler.ServeHTTP(c.Writer, c.Request)

		c.Request.URL.Path = originalPath
	}
}
