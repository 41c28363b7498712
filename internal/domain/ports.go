package domain

import (
	"context"
)

// ============================================================================
// Primary Ports (Application Use Cases)
// ============================================================================

// PostService defines the primary port for reading posts and site statistics
type PostService interface {
	ListPosts(ctx context.Context) ([]Post, error)
	GetPost(ctx context.Context, postID string) (*Post, error)
	GetSiteStats(ctx context.Context) (SiteStats, error)
}

// AccountService defines the primary port for credential checks and account lookups
type AccountService interface {
	// VerifyCredentials reports whether the pair is valid. Unknown email and
	// wrong secret both return false with a nil error.
	VerifyCredentials(ctx context.Context, email, secret string) (bool, error)
	GetAccount(ctx context.Context, email string) (*Account, error)
	IsActive(ctx context.Context, userID string) (bool, error)
}

// ============================================================================
// Request/Response Types
// ============================================================================

// Account is the public view of a user
type Account struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}
