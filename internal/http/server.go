package http

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-pkgz/auth"
	"github.com/go-pkgz/auth/avatar"
	"github.com/go-pkgz/auth/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/f1blog/internal/apipaths"
	"github.com/f1blog/internal/config"
	"github.com/f1blog/internal/constants"
	"github.com/f1blog/internal/db"
	"github.com/f1blog/internal/domain"
	"github.com/f1blog/internal/gate"
	"github.com/f1blog/internal/logger"
	"github.com/f1blog/internal/service"
	"github.com/f1blog/internal/session"
	"github.com/f1blog/internal/system"
	"github.com/f1blog/internal/throttle"
)

// Server wraps the HTTP server
type Server struct {
	config         *config.Config
	postService    domain.PostService
	accountService domain.AccountService
	collector      *system.Collector
	prober         session.Prober
	gate           *gate.Gate
	engine         *gin.Engine
	authService    *auth.Service
	registry       *prometheus.Registry
	metrics        *serverMetrics
	logger         *slog.Logger
	httpServer     *http.Server
}

// NewServer creates a new HTTP server. limiter may be nil to disable login throttling.
func NewServer(cfg *config.Config, database *db.DB, limiter throttle.Limiter, appLogger *slog.Logger) (*Server, error) {
	if appLogger == nil {
		appLogger = slog.Default()
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.DebugMode)
	}

	paths, err := gate.NewPathSet(cfg.Auth.ProtectedPaths...)
	if err != nil {
		return nil, fmt.Errorf("invalid protected paths: %w", err)
	}

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	postService := service.NewPostService(database, appLogger)
	accountService := service.NewAccountService(database, limiter, appLogger)
	prober := session.NewTokenProber(accountService, cfg.Auth.CheckTimeout, appLogger)

	s := &Server{
		config:         cfg,
		postService:    postService,
		accountService: accountService,
		collector:      system.NewCollector(database.GetDBPath(), postService, appLogger),
		prober:         prober,
		gate:           gate.New(paths, cfg.Auth.LoginPath, prober, appLogger, gate.WithMetrics(gate.NewMetrics(registry))),
		registry:       registry,
		metrics:        newServerMetrics(registry),
		logger:         appLogger,
	}
	s.authService = s.initAuthService()

	engine := gin.New()
	engine.SetHTMLTemplate(pages)
	engine.MaxMultipartMemory = constants.MaxRequestBodySize

	// Middleware - order matters
	engine.Use(gin.Recovery())
	engine.Use(securityHeadersMiddleware())
	if len(cfg.CORS.AllowedOrigins) > 0 {
		engine.Use(cors.New(corsConfig(cfg)))
	}
	engine.Use(cacheControlMiddleware())
	engine.Use(s.loggerMiddleware())
	engine.Use(jsonBodyLimitMiddleware(constants.MaxRequestBodySize))
	engine.Use(s.traceMiddleware())
	engine.Use(s.gate.Middleware())

	s.engine = engine
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           cfg.ServerAddress,
		Handler:        s.engine,
		ReadTimeout:    constants.ServerReadTimeout,
		WriteTimeout:   constants.ServerWriteTimeout,
		IdleTimeout:    constants.ServerIdleTimeout,
		MaxHeaderBytes: constants.MaxHeaderBytes,
	}

	return s, nil
}

// initAuthService initializes go-pkgz/auth with the local email and password provider
func (s *Server) initAuthService() *auth.Service {
	cfg := s.config

	// URL must include /auth prefix since that's where we mount the handlers
	baseURL := strings.TrimRight(cfg.Auth.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	opts := auth.Opts{
		SecretReader: token.SecretFunc(func(string) (string, error) {
			return cfg.Auth.JWTSecret, nil
		}),
		TokenDuration:  cfg.Auth.TokenDuration,
		CookieDuration: cfg.Auth.CookieDuration,
		Issuer:         constants.LocalIssuer,
		URL:            baseURL + apipaths.AuthPrefix,
		AvatarStore:    avatar.NewNoOp(),
		SecureCookies:  cfg.Auth.SecureCookie,
		SameSiteCookie: http.SameSiteLaxMode,
		DisableXSRF:    true, // Same-site cookie plus JSON-only login
		Validator: token.ValidatorFunc(func(_ string, claims token.Claims) bool {
			if claims.User == nil {
				s.logger.Warn("JWT validation failed: no user in claims")
				return false
			}
			return true
		}),
		ClaimsUpd: token.ClaimsUpdFunc(s.updateClaims),
		Logger:    logger.AuthLogger(s.logger),
	}

	authService := auth.NewService(opts)
	authService.AddDirectProvider(apipaths.LocalProvider, s.credChecker())

	return authService
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	if s.httpServer.Addr == "" {
		s.httpServer.Addr = ":8080"
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func corsConfig(cfg *config.Config) cors.Config {
	return cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
}

// securityHeadersMiddleware adds security-related HTTP headers
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent MIME type sniffing
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		// Prevent clickjacking
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// HSTS (only if using HTTPS)
		if c.Request.TLS != nil {
			c.Writer.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// cacheControlMiddleware sets appropriate cache headers based on the path
func cacheControlMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		// API and auth responses depend on the session
		if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, apipaths.AuthPrefix+"/") {
			c.Writer.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Writer.Header().Set("Pragma", "no-cache")
			c.Writer.Header().Set("Expires", "0")
		} else if path != apipaths.Metrics {
			// Pages render the navigation for the current visitor
			c.Writer.Header().Set("Cache-Control", "private, no-cache")
		}

		c.Next()
	}
}

// jsonBodyLimitMiddleware limits the size of JSON request bodies to prevent DoS
func jsonBodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "GET" && c.Request.Method != "DELETE" && c.Request.Method != "OPTIONS" {
			contentType := c.GetHeader("Content-Type")
			if strings.Contains(contentType, "application/json") {
				if c.Request.ContentLength > maxBytes {
					c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
						Error: "Request body too large",
					})
					return
				}
				c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
			}
		}
		c.Next()
	}
}

// loggerMiddleware logs HTTP requests and records them in the request metrics
func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		latency := time.Since(start)
		s.metrics.observeRequest(c.Request.Method, route, c.Writer.Status(), latency)

		s.logger.InfoContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", latency,
			"remote_addr", c.ClientIP(),
		)
	}
}

// traceMiddleware runs go-pkgz/auth's Trace middleware so every request
// carries the token user when one is present. It never rejects a request.
func (s *Server) traceMiddleware() gin.HandlerFunc {
	m := s.authService.Middleware()
	trace := m.Trace

	return func(c *gin.Context) {
		trace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
	}
}

// parsePages parses the embedded page templates
func parsePages() (*template.Template, error) {
	return template.New("pages").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
}
