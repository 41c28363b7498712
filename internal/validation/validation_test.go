package validation

import (
	"strings"
	"testing"
)

func TestValidatePostID(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		shouldErr bool
	}{
		// Valid IDs
		{"uuid", "3f2a6c1e-8d4b-4f0a-9b7e-2c1d5e6f7a8b", false},
		{"object id", "64b7f0c2e1a4b5c6d7e8f901", false},
		{"underscore", "post_1", false},

		// Invalid IDs
		{"empty", "", true},
		{"too long", strings.Repeat("a", 65), true},
		{"path traversal", "../secret", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"space", "a b", true},
		{"query", "a?b=c", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostID(tt.id)
			if tt.shouldErr && err == nil {
				t.Errorf("expected error but got none for post ID: %q", tt.id)
			}
			if !tt.shouldErr && err != nil {
				t.Errorf("unexpected error for valid post ID %q: %v", tt.id, err)
			}
		})
	}
}

func TestValidatePostTitle(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		shouldErr bool
	}{
		{"valid", "Monaco: qualifying is everything", false},
		{"unicode at limit", strings.Repeat("é", MaxTitleLength), false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"too long", strings.Repeat("a", MaxTitleLength+1), true},
		{"multi line", "first\nsecond", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostTitle(tt.title)
			if tt.shouldErr && err == nil {
				t.Errorf("expected error but got none for title: %q", tt.title)
			}
			if !tt.shouldErr && err != nil {
				t.Errorf("unexpected error for valid title %q: %v", tt.title, err)
			}
		})
	}
}

func TestValidatePostContent(t *testing.T) {
	if err := ValidatePostContent(""); err != nil {
		t.Errorf("empty content should be allowed, got %v", err)
	}
	if err := ValidatePostContent(strings.Repeat("a", MaxContentLength+1)); err == nil {
		t.Error("expected error for oversized content")
	}
	if err := ValidatePostContent(string([]byte{0xff, 0xfe})); err == nil {
		t.Error("expected error for invalid UTF-8")
	}
}

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{"empty allowed", "", false},
		{"plain", "Ana Souza", false},
		{"markup", "<b>Ana</b>", true},
		{"newline", "Ana\nSouza", true},
		{"too long", strings.Repeat("a", MaxDisplayNameLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDisplayName(tt.input)
			if (err != nil) != tt.shouldErr {
				t.Errorf("ValidateDisplayName(%q) error = %v, shouldErr %v", tt.input, err, tt.shouldErr)
			}
		})
	}
}

func TestValidateComment(t *testing.T) {
	if err := ValidateComment("Great race"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateComment("  "); err == nil {
		t.Error("expected error for blank comment")
	}
	if err := ValidateComment(strings.Repeat("a", MaxCommentLength+1)); err == nil {
		t.Error("expected error for oversized comment")
	}
}

func TestValidateImageURL(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		shouldErr bool
	}{
		{"empty allowed", "", false},
		{"https", "https://cdn.example.com/monaco.jpg", false},
		{"http", "http://example.com/a.png", false},
		{"site relative", "/static/car.png", false},
		{"protocol relative", "//evil.example.com/x.png", true},
		{"javascript", "javascript:alert(1)", true},
		{"data", "data:image/png;base64,AAAA", true},
		{"no host", "https:///x.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImageURL(tt.raw)
			if tt.shouldErr && err == nil {
				t.Errorf("expected error but got none for URL: %q", tt.raw)
			}
			if !tt.shouldErr && err != nil {
				t.Errorf("unexpected error for valid URL %q: %v", tt.raw, err)
			}
		})
	}
}
