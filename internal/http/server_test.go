package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pkgz/auth/token"
	"github.com/golang-jwt/jwt"

	"github.com/f1blog/internal/client"
	"github.com/f1blog/internal/config"
	"github.com/f1blog/internal/db"
	"github.com/f1blog/internal/domain"
	"github.com/f1blog/internal/home"
	"github.com/f1blog/internal/login"
	"github.com/f1blog/internal/service"
	"github.com/f1blog/internal/throttle"
)

const (
	anaEmail    = "ana@example.com"
	anaPassword = "box-box-box"
)

type testEnv struct {
	server   *Server
	database *db.DB
	ana      *db.User
}

func testConfig(dbPath string) *config.Config {
	return &config.Config{
		Environment:   "test",
		ServerAddress: ":0",
		DatabasePath:  dbPath,
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret",
			BaseURL:        "http://localhost",
			TokenDuration:  15 * time.Minute,
			CookieDuration: time.Hour,
			LoginPath:      "/login",
			ProtectedPaths: []string{"/post", "/feed", "/dashboard"},
			CheckTimeout:   time.Second,
		},
		Data: config.DataConfig{
			FetchTimeout: 2 * time.Second,
			PreviewLimit: 3,
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// setupTestServer creates a server over a temp database with one account
// and postCount posts written by it
func setupTestServer(t *testing.T, postCount int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tmpDB, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("Failed to create temp database: %v", err)
	}
	tmpDB.Close()

	database, err := db.Init(tmpDB.Name())
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
		os.Remove(tmpDB.Name())
	})

	ctx := context.Background()
	hash, err := service.HashPassword(anaPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	ana := db.NewUser(anaEmail, "Ana", hash)
	if err := database.CreateUser(ctx, ana); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	for i := 1; i <= postCount; i++ {
		post := db.NewPost(fmt.Sprintf("Race report %d", i), "Lights out and away we go.", &ana.ID)
		post.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		if err := database.CreatePost(ctx, post); err != nil {
			t.Fatalf("Failed to create post: %v", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(testConfig(tmpDB.Name()), database, throttle.NewMemory(throttle.DefaultPolicy), logger)
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}

	return &testEnv{server: srv, database: database, ana: ana}
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"user": email, "passwd": password})
	return e.do(t, http.MethodPost, "/auth/local/login", bytes.NewReader(body))
}

// sessionCookies signs in as Ana and returns the session cookies
func (e *testEnv) sessionCookies(t *testing.T) []*http.Cookie {
	t.Helper()
	w := e.login(t, anaEmail, anaPassword)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Expected session cookie after login")
	}
	return cookies
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t, 0)

	w := env.do(t, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestProtectedPagesRedirectWithoutSession(t *testing.T) {
	env := setupTestServer(t, 1)

	tests := []struct {
		target       string
		wantLocation string
	}{
		{"/post", "/login?callbackUrl=%2Fpost"},
		{"/feed", "/login?callbackUrl=%2Ffeed"},
		{"/dashboard", "/login?callbackUrl=%2Fdashboard"},
		{"/feed?page=2", "/login?callbackUrl=%2Ffeed%3Fpage%3D2"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.target, nil)
			if w.Code != http.StatusTemporaryRedirect {
				t.Fatalf("status = %d, want 307", w.Code)
			}
			if got := w.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
		})
	}
}

func TestPublicPagesRenderWithoutSession(t *testing.T) {
	env := setupTestServer(t, 1)

	for _, target := range []string{"/", "/login", "/perfil"} {
		w := env.do(t, http.MethodGet, target, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", target, w.Code)
		}
		if !strings.Contains(w.Body.String(), `href="/registrar"`) {
			t.Errorf("%s: expected register link for signed-out visitor", target)
		}
	}
}

func TestLogin(t *testing.T) {
	env := setupTestServer(t, 0)

	tests := []struct {
		name       string
		email      string
		password   string
		wantStatus int
	}{
		{"valid credentials", anaEmail, anaPassword, http.StatusOK},
		{"email is case-insensitive", "ANA@example.com", anaPassword, http.StatusOK},
		{"wrong password", anaEmail, "wrong", http.StatusForbidden},
		{"unknown email", "nobody@example.com", anaPassword, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.login(t, tt.email, tt.password)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestSignedInVisitorReachesProtectedPages(t *testing.T) {
	env := setupTestServer(t, 2)
	cookies := env.sessionCookies(t)

	for _, target := range []string{"/post", "/feed", "/dashboard"} {
		w := env.do(t, http.MethodGet, target, nil, cookies...)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", target, w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, "Ana") || !strings.Contains(body, `href="/perfil"`) {
			t.Errorf("%s: expected account controls in navigation", target)
		}
		if strings.Contains(body, `href="/registrar"`) {
			t.Errorf("%s: register link shown to signed-in visitor", target)
		}
	}
}

func TestSessionEndpoint(t *testing.T) {
	env := setupTestServer(t, 0)

	w := env.do(t, http.MethodGet, "/api/session", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status without cookie = %d, want 401", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/session", nil, env.sessionCookies(t)...)
	if w.Code != http.StatusOK {
		t.Fatalf("status with cookie = %d, want 200", w.Code)
	}
	var got struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.ID != env.ana.ID || got.Name != "Ana" || got.Email != anaEmail {
		t.Errorf("session = %+v, want Ana's account", got)
	}
}

func TestDisabledAccountLosesSession(t *testing.T) {
	env := setupTestServer(t, 0)
	cookies := env.sessionCookies(t)

	if err := env.database.SetUserDisabled(context.Background(), env.ana.ID, true); err != nil {
		t.Fatalf("SetUserDisabled() error: %v", err)
	}

	w := env.do(t, http.MethodGet, "/dashboard", nil, cookies...)
	if w.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want 307 for disabled account", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/session", nil, cookies...)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("session status = %d, want 401 for disabled account", w.Code)
	}
}

func TestMintedTokens(t *testing.T) {
	env := setupTestServer(t, 0)

	mint := func(t *testing.T, secret string) *http.Cookie {
		t.Helper()
		claims := token.Claims{
			User: &token.User{Name: anaEmail, ID: "local_test"},
			StandardClaims: jwt.StandardClaims{
				ExpiresAt: time.Now().Add(10 * time.Minute).Unix(),
				NotBefore: time.Now().Add(-time.Minute).Unix(),
				Issuer:    "f1blog",
			},
		}
		if secret == "" {
			tok, err := env.server.authService.TokenService().Token(claims)
			if err != nil {
				t.Fatalf("Token() error: %v", err)
			}
			return &http.Cookie{Name: "JWT", Value: tok}
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("SignedString() error: %v", err)
		}
		return &http.Cookie{Name: "JWT", Value: tok}
	}

	t.Run("token from the auth service", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/feed", nil, mint(t, ""))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/feed", nil, mint(t, "not-the-secret"))
		if w.Code != http.StatusTemporaryRedirect {
			t.Errorf("status = %d, want 307", w.Code)
		}
	})
}

func TestLoginLockout(t *testing.T) {
	env := setupTestServer(t, 0)

	for i := 0; i < throttle.DefaultPolicy.MaxAttempts; i++ {
		if w := env.login(t, anaEmail, "wrong"); w.Code != http.StatusForbidden {
			t.Fatalf("attempt %d status = %d, want 403", i+1, w.Code)
		}
	}

	if w := env.login(t, anaEmail, anaPassword); w.Code != http.StatusForbidden {
		t.Errorf("correct password during lockout status = %d, want 403", w.Code)
	}
}

func TestHomePage(t *testing.T) {
	t.Run("shows three newest posts and stats", func(t *testing.T) {
		env := setupTestServer(t, 5)

		w := env.do(t, http.MethodGet, "/", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		body := w.Body.String()

		for _, title := range []string{"Race report 5", "Race report 4", "Race report 3"} {
			if !strings.Contains(body, title) {
				t.Errorf("Expected %q on home page", title)
			}
		}
		for _, title := range []string{"Race report 2", "Race report 1"} {
			if strings.Contains(body, title) {
				t.Errorf("Did not expect %q on home page", title)
			}
		}
		if strings.Index(body, "Race report 5") > strings.Index(body, "Race report 3") {
			t.Error("Expected newest post first")
		}
		if !strings.Contains(body, `data-region="stats" data-state="ready"`) {
			t.Error("Expected stats region ready")
		}
	})

	t.Run("empty blog shows no highlights", func(t *testing.T) {
		env := setupTestServer(t, 0)

		body := env.do(t, http.MethodGet, "/", nil).Body.String()
		if !strings.Contains(body, home.EmptyPostsMessage) {
			t.Errorf("Expected %q on home page", home.EmptyPostsMessage)
		}
		if !strings.Contains(body, `data-region="stats" data-state="ready"`) {
			t.Error("Expected zero stats to render as ready")
		}
	})

	t.Run("database failure marks both regions unavailable", func(t *testing.T) {
		env := setupTestServer(t, 1)
		env.database.Close()

		w := env.do(t, http.MethodGet, "/", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		body := w.Body.String()
		if strings.Count(body, home.UnavailableMessage) < 2 {
			t.Errorf("Expected both regions to show %q", home.UnavailableMessage)
		}
		if strings.Contains(body, "sql") {
			t.Error("Technical error text leaked into the page")
		}
	})
}

func TestLoginPageSanitizesCallback(t *testing.T) {
	env := setupTestServer(t, 0)

	w := env.do(t, http.MethodGet, "/login?callbackUrl=https%3A%2F%2Fevil.example%2F", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "evil.example") {
		t.Error("Foreign callback rendered into the login page")
	}
}

func TestPostsAPI(t *testing.T) {
	env := setupTestServer(t, 4)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCount  int
	}{
		{"all posts", "/api/posts", http.StatusOK, 4},
		{"limited", "/api/posts?limit=2", http.StatusOK, 2},
		{"limit above total", "/api/posts?limit=50", http.StatusOK, 4},
		{"invalid limit", "/api/posts?limit=abc", http.StatusBadRequest, -1},
		{"zero limit", "/api/posts?limit=0", http.StatusBadRequest, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.target, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCount < 0 {
				return
			}
			var posts []domain.Post
			if err := json.Unmarshal(w.Body.Bytes(), &posts); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if len(posts) != tt.wantCount {
				t.Errorf("got %d posts, want %d", len(posts), tt.wantCount)
			}
			if len(posts) > 0 && posts[0].Author.Kind != domain.AuthorPopulated {
				t.Errorf("Author = %+v, want populated", posts[0].Author)
			}
		})
	}
}

func TestPostDetail(t *testing.T) {
	env := setupTestServer(t, 1)

	w := env.do(t, http.MethodGet, "/api/posts/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("API status = %d, want 404", w.Code)
	}

	w = env.do(t, http.MethodGet, "/post/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("page status = %d, want 404", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/posts/bad%20id", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("API status for malformed id = %d, want 400", w.Code)
	}

	var posts []domain.Post
	json.Unmarshal(env.do(t, http.MethodGet, "/api/posts", nil).Body.Bytes(), &posts)
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}

	// Post detail is public
	w = env.do(t, http.MethodGet, "/post/"+posts[0].ID, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Race report 1") {
		t.Errorf("detail status = %d", w.Code)
	}
}

func TestStatsAPI(t *testing.T) {
	env := setupTestServer(t, 2)

	w := env.do(t, http.MethodGet, "/api/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var stats domain.SiteStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if stats.TotalPosts != 2 || stats.TotalUsers != 1 {
		t.Errorf("stats = %+v", stats)
	}

	env.database.Close()
	w = env.do(t, http.MethodGet, "/api/stats", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status after close = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Data unavailable") {
		t.Errorf("body = %s, want generic message", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t, 0)

	env.do(t, http.MethodGet, "/feed", nil)
	env.login(t, anaEmail, "wrong")

	w := env.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`blog_gate_decisions_total{decision="redirect",reason="no_session"} 1`,
		`blog_auth_login_attempts_total{result="rejected"} 1`,
		"blog_http_requests_total",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := setupTestServer(t, 0)

	w := env.do(t, http.MethodGet, "/api/health", nil)
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := w.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("Cache-Control = %q, want no-store on API", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestServer(t, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}
}

func TestBrowserlessRoundTrip(t *testing.T) {
	env := setupTestServer(t, 5)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	c, err := client.New(ts.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("client.New() error: %v", err)
	}
	ctx := context.Background()

	refreshed := 0
	flow := login.NewFlow(c, "/feed", login.WithRefresh(func(context.Context) { refreshed++ }))

	out, err := flow.Submit(ctx, anaEmail, "wrong")
	if err != nil || out.Error != login.MsgRejected {
		t.Fatalf("rejected Submit() = %+v, %v", out, err)
	}

	out, err = flow.Submit(ctx, anaEmail, anaPassword)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if out.Navigate != "/feed" || refreshed != 1 {
		t.Fatalf("outcome = %+v, refreshed = %d", out, refreshed)
	}

	sess, err := c.Session(ctx)
	if err != nil || sess == nil || sess.Name != "Ana" {
		t.Fatalf("Session() = %+v, %v", sess, err)
	}

	st := home.NewLoader(c, time.Second, nil).Load(ctx)
	if posts := st.Posts(); posts.State != home.Ready || len(posts.Data) != 3 {
		t.Errorf("posts region = %v with %d posts", posts.State, len(posts.Data))
	}
	if stats := st.Stats(); stats.State != home.Ready || stats.Data.TotalPosts != 5 {
		t.Errorf("stats region = %+v", stats)
	}

	if err := c.SignOut(ctx); err != nil {
		t.Fatalf("SignOut() error: %v", err)
	}
	if sess, _ := c.Session(ctx); sess != nil {
		t.Errorf("Expected no session after sign-out, got %+v", sess)
	}
}
