package home

import "github.com/f1blog/internal/session"

// Link is a navigation entry
type Link struct {
	Label string
	Href  string
}

// Nav is the navigation bar model. It depends on nothing but the session.
type Nav struct {
	SignedIn    bool
	Name        string
	Initial     string
	Avatar      string
	ProfileHref string
	SignOutHref string
	Links       []Link // Always shown
	Entry       []Link // Login and register, only when signed out
}

// Navigation targets
const (
	ProfilePath  = "/perfil"
	SignOutPath  = "/auth/logout"
	LoginPath    = "/login"
	RegisterPath = "/registrar"
)

// NavFor builds the navigation for s; nil means signed out
func NavFor(s *session.Session) Nav {
	nav := Nav{
		Links: []Link{
			{Label: "Home", Href: "/"},
			{Label: "Posts", Href: "/post"},
		},
	}

	if s == nil {
		nav.Entry = []Link{
			{Label: "Login", Href: LoginPath},
			{Label: "Register", Href: RegisterPath},
		}
		return nav
	}

	nav.SignedIn = true
	nav.Name = s.Name
	nav.Initial = s.Initial()
	nav.Avatar = s.Avatar
	nav.ProfileHref = ProfilePath
	nav.SignOutHref = SignOutPath
	return nav
}
