package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/f1blog/internal/apipaths"
)

// setupRoutes configures pages, the JSON API and the auth handlers
func (s *Server) setupRoutes() {
	// Mount auth routes (local login, logout)
	// go-pkgz/auth expects paths relative to mount point, so we strip /auth prefix
	authHandler, _ := s.authService.Handlers()
	s.engine.Any(apipaths.AuthPrefix+"/*path", wrapAuthHandler(authHandler, apipaths.AuthPrefix))

	s.engine.GET(apipaths.Health, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "f1blog",
		})
	})
	s.engine.GET(apipaths.Metrics, gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")
	{
		api.GET("/session", s.getSession)
		api.GET("/posts", s.listPosts)
		api.GET("/posts/:id", s.getPost)
		api.GET("/stats", s.getStats)
	}

	s.setupPageRoutes()

	s.engine.NoRoute(s.notFoundPage)
}

func (s *Server) setupPageRoutes() {
	s.engine.GET("/", s.homePage)
	s.engine.GET(s.config.Auth.LoginPath, s.loginPage)
	s.engine.GET("/post", s.postsPage)
	s.engine.GET("/post/:id", s.postPage)
	s.engine.GET("/feed", s.feedPage)
	s.engine.GET("/dashboard", s.dashboardPage)
	s.engine.GET("/perfil", s.profilePage)
}
