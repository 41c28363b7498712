package apipaths

// API surface paths. Used by routes and by the API client.

const (
	Health  = "/api/health"
	Session = "/api/session"
	Posts   = "/api/posts"
	Stats   = "/api/stats"
	Metrics = "/metrics"

	// Served by the auth service mounted under /auth
	AuthPrefix = "/auth"
	LocalLogin = "/auth/local/login"
	Logout     = "/auth/logout"
)

// LocalProvider is the name of the email and password provider
const LocalProvider = "local"

func PostByID(postID string) string { return "/api/posts/" + postID }
