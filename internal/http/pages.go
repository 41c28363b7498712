package http

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/f1blog/internal/apipaths"
	"github.com/f1blog/internal/domain"
	"github.com/f1blog/internal/gate"
	"github.com/f1blog/internal/home"
	"github.com/f1blog/internal/httputil"
	"github.com/f1blog/internal/login"
	"github.com/f1blog/internal/session"
	"github.com/f1blog/internal/system"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templateFuncs = template.FuncMap{
	"ago":   humanize.Time,
	"bytes": humanize.Bytes,
	"date": func(t time.Time) string {
		return t.Format("2 Jan 2006")
	},
	"percent": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
	"filesize": func(n int64) string {
		if n < 0 {
			n = 0
		}
		return humanize.Bytes(uint64(n))
	},
}

// render executes a page template with the navigation for sess
func (s *Server) render(c *gin.Context, status int, name, title string, sess *session.Session, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Nav"] = home.NavFor(sess)
	data["Session"] = sess
	c.HTML(status, name, data)
}

// pageSession returns the session for the page: the one the gate attached on
// protected paths, otherwise a fresh probe
func (s *Server) pageSession(c *gin.Context) *session.Session {
	if sess, ok := gate.SessionFromContext(c); ok {
		return sess
	}
	return s.currentSession(c)
}

// homePage renders the landing page. Posts and stats load concurrently and
// each region renders whatever state it settled in.
func (s *Server) homePage(c *gin.Context) {
	loader := home.NewLoader(s.postService, s.config.Data.FetchTimeout, s.logger)
	loader.PreviewLimit = s.config.Data.PreviewLimit
	st := loader.Load(c.Request.Context())

	s.render(c, http.StatusOK, "home.html", "Home", s.pageSession(c), gin.H{
		"Posts": st.Posts(),
		"Stats": st.Stats(),
	})
}

// loginPage renders the login form. The callback is sanitized here and again
// by the browser script before navigating.
func (s *Server) loginPage(c *gin.Context) {
	callback := session.SanitizeCallback(c.Query(gate.CallbackParam))

	s.render(c, http.StatusOK, "login.html", "Login", s.pageSession(c), gin.H{
		"Callback":        callback,
		"LoginEndpoint":   apipaths.LocalLogin,
		"TimeoutMillis":   login.DefaultTimeout.Milliseconds(),
		"MsgRejected":     login.MsgRejected,
		"MsgFailed":       login.MsgFailed,
		"MsgMissingInput": login.MsgMissingInput,
	})
}

// postsRegion loads every post into a region the way the home page does
func (s *Server) postsRegion(ctx context.Context) home.Region[[]domain.Post] {
	ctx, cancel := context.WithTimeout(ctx, s.config.Data.FetchTimeout)
	defer cancel()

	posts, err := s.postService.ListPosts(ctx)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "failed to load posts", "error", err)
		return home.Region[[]domain.Post]{State: home.Unavailable, Message: home.UnavailableMessage}
	case len(posts) == 0:
		return home.Region[[]domain.Post]{State: home.Empty, Data: []domain.Post{}, Message: home.EmptyPostsMessage}
	default:
		return home.Region[[]domain.Post]{State: home.Ready, Data: posts}
	}
}

// postsPage lists every post. Protected by the gate.
func (s *Server) postsPage(c *gin.Context) {
	s.render(c, http.StatusOK, "posts.html", "Posts", s.pageSession(c), gin.H{
		"Posts": s.postsRegion(c.Request.Context()),
	})
}

// feedPage shows every post in full. Protected by the gate.
func (s *Server) feedPage(c *gin.Context) {
	s.render(c, http.StatusOK, "feed.html", "Feed", s.pageSession(c), gin.H{
		"Posts": s.postsRegion(c.Request.Context()),
	})
}

// postPage shows one post
func (s *Server) postPage(c *gin.Context) {
	sess := s.pageSession(c)

	id, err := httputil.ValidateAndGetPostID(c)
	if err != nil {
		s.render(c, http.StatusNotFound, "error.html", "Not found", sess, gin.H{"Message": "Post not found"})
		return
	}

	post, err := s.postService.GetPost(c.Request.Context(), id)
	switch {
	case domain.IsNotFoundError(err):
		s.render(c, http.StatusNotFound, "error.html", "Not found", sess, gin.H{"Message": "Post not found"})
		return
	case err != nil:
		s.render(c, http.StatusServiceUnavailable, "error.html", "Unavailable", sess, gin.H{"Message": domain.PublicMessage(err)})
		return
	}

	s.render(c, http.StatusOK, "post.html", post.Title, sess, gin.H{"Post": post})
}

// dashboardPage shows site totals and host usage. Protected by the gate.
func (s *Server) dashboardPage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.Data.FetchTimeout)
	defer cancel()

	region := home.Region[*system.SystemStats]{State: home.Ready}
	stats, err := s.collector.GetSystemStats(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to collect dashboard stats", "error", err)
		region = home.Region[*system.SystemStats]{State: home.Unavailable, Message: home.UnavailableMessage}
	} else {
		region.Data = stats
	}

	s.render(c, http.StatusOK, "dashboard.html", "Dashboard", s.pageSession(c), gin.H{
		"System": region,
	})
}

// profilePage shows the signed-in account or a prompt to sign in
func (s *Server) profilePage(c *gin.Context) {
	s.render(c, http.StatusOK, "profile.html", "Profile", s.pageSession(c), gin.H{
		"LoginURL": gate.LoginURL(s.config.Auth.LoginPath, c.Request.URL.Path),
	})
}

func (s *Server) notFoundPage(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
		return
	}
	s.render(c, http.StatusNotFound, "error.html", "Not found", s.pageSession(c), gin.H{"Message": "Page not found"})
}
