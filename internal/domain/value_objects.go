package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ============================================================================
// Value Objects
// ============================================================================

// Email represents a normalized, validated email address
type Email struct {
	value string
}

// NewEmail validates an address and lower-cases it
func NewEmail(raw string) (*Email, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, WrapValidationError("email", fmt.Errorf("email cannot be empty"))
	}
	if len(raw) > 254 {
		return nil, WrapValidationError("email", fmt.Errorf("email cannot exceed 254 characters"))
	}

	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || addr.Name != "" {
		return nil, WrapValidationError("email", fmt.Errorf("email is not valid"))
	}

	return &Email{value: strings.ToLower(raw)}, nil
}

// String returns the string value of the email
func (e *Email) String() string {
	return e.value
}

// ============================================================================

// AuthorKind tells which shape an author reference arrived in
type AuthorKind int

const (
	AuthorUnknown AuthorKind = iota
	AuthorReferenceOnly
	AuthorPopulated
)

// String returns the string value of the kind
func (k AuthorKind) String() string {
	switch k {
	case AuthorPopulated:
		return "populated"
	case AuthorReferenceOnly:
		return "reference"
	default:
		return "unknown"
	}
}

// UnknownAuthorName is displayed for authors that are not populated
const UnknownAuthorName = "Unknown author"

// Author is the author of a post. It is either populated with a name and
// email, a bare reference to a user id, or unknown.
type Author struct {
	Kind  AuthorKind
	ID    string
	Name  string
	Email string
}

// PopulatedAuthor creates an author with display details
func PopulatedAuthor(name, email string) Author {
	return Author{Kind: AuthorPopulated, Name: name, Email: email}
}

// ReferenceAuthor creates an author known only by id
func ReferenceAuthor(id string) Author {
	return Author{Kind: AuthorReferenceOnly, ID: id}
}

// DisplayName returns the name to render for the author
func (a Author) DisplayName() string {
	if a.Kind == AuthorPopulated && a.Name != "" {
		return a.Name
	}
	return UnknownAuthorName
}

type populatedAuthorJSON struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MarshalJSON encodes the author as an object, a string id, or null
func (a Author) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AuthorPopulated:
		return json.Marshal(populatedAuthorJSON{Name: a.Name, Email: a.Email})
	case AuthorReferenceOnly:
		return json.Marshal(a.ID)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts an object, a string id, or null
func (a *Author) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*a = Author{Kind: AuthorUnknown}
		return nil
	case data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		if id == "" {
			*a = Author{Kind: AuthorUnknown}
			return nil
		}
		*a = ReferenceAuthor(id)
		return nil
	case data[0] == '{':
		var p populatedAuthorJSON
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*a = PopulatedAuthor(p.Name, p.Email)
		return nil
	default:
		return fmt.Errorf("author must be an object, a string or null, got %s", string(data))
	}
}

// ============================================================================

// Post is a read-only projection of a blog post
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Author       Author    `json:"author"`
	CreatedAt    time.Time `json:"createdAt"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	CommentCount int       `json:"commentCount"`
}

// Excerpt returns at most n runes of the content
func (p Post) Excerpt(n int) string {
	runes := []rune(p.Content)
	if n <= 0 || len(runes) <= n {
		return p.Content
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}

// SiteStats holds the aggregate counters shown on the home page
type SiteStats struct {
	TotalPosts    int `json:"totalPosts"`
	TotalUsers    int `json:"totalUsers"`
	TotalComments int `json:"totalComments"`
}
