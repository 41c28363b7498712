package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// postIDRegex allows only alphanumeric characters, hyphens, and underscores
	postIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// Limits for stored content
const (
	MaxPostIDLength      = 64
	MaxTitleLength       = 200
	MaxContentLength     = 64 << 10
	MaxDisplayNameLength = 80
	MaxCommentLength     = 4 << 10
)

// ValidatePostID validates a post identifier taken from a URL
func ValidatePostID(id string) error {
	if len(id) < 1 {
		return errors.New("post ID cannot be empty")
	}
	if len(id) > MaxPostIDLength {
		return fmt.Errorf("post ID must be %d characters or less", MaxPostIDLength)
	}

	// Rejects path traversal and separators along with everything else
	if !postIDRegex.MatchString(id) {
		return errors.New("post ID must contain only letters, numbers, hyphens, and underscores")
	}

	return nil
}

// ValidatePostTitle validates a post title
func ValidatePostTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title must be %d characters or less", MaxTitleLength)
	}
	if strings.ContainsAny(title, "\r\n") {
		return errors.New("title must be a single line")
	}
	return nil
}

// ValidatePostContent validates a post body; empty content is allowed
func ValidatePostContent(content string) error {
	if len(content) > MaxContentLength {
		return errors.New("content too large (maximum 64KB)")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateDisplayName validates a user's display name. It is optional.
func ValidateDisplayName(name string) error {
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return fmt.Errorf("name must be %d characters or less", MaxDisplayNameLength)
	}
	if strings.ContainsAny(name, "<>\r\n") {
		return errors.New("name contains invalid characters")
	}
	return nil
}

// ValidateComment validates a comment body
func ValidateComment(body string) error {
	if strings.TrimSpace(body) == "" {
		return errors.New("comment cannot be empty")
	}
	if len(body) > MaxCommentLength {
		return errors.New("comment too large (maximum 4KB)")
	}
	return nil
}

// ValidateImageURL validates an optional image or avatar URL. Only absolute
// http(s) URLs and site-relative paths are accepted.
func ValidateImageURL(raw string) error {
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid image URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("image URL must use http or https")
	}
	if u.Host == "" {
		return errors.New("image URL must include a host")
	}
	return nil
}
