package db

import (
	"time"

	"github.com/google/uuid"
)

// User represents a blog account
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	AvatarURL    *string   `json:"avatar_url" db:"avatar_url"` // Nullable, rendered as an initial when absent
	PasswordHash string    `json:"-" db:"password_hash"`       // Never expose password in JSON
	Disabled     bool      `json:"disabled" db:"disabled"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Post represents a stored blog post
type Post struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	AuthorID  *string   `json:"author_id" db:"author_id"` // NULL when the author was removed
	ImageURL  *string   `json:"image_url" db:"image_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PostRow is a post joined with whatever is known about its author
type PostRow struct {
	Post
	AuthorName   *string // NULL when author_id does not resolve to a user
	AuthorEmail  *string
	CommentCount int
}

// Comment represents a comment on a post
type Comment struct {
	ID        string    `json:"id" db:"id"`
	PostID    string    `json:"post_id" db:"post_id"`
	AuthorID  *string   `json:"author_id" db:"author_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Counts holds the table totals behind the site statistics
type Counts struct {
	Posts    int
	Users    int
	Comments int
}

// NewUser creates a new User with a generated UUID
func NewUser(email, name, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
}

// NewPost creates a new Post with a generated UUID
func NewPost(title, content string, authorID *string) *Post {
	return &Post{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: time.Now(),
	}
}

// NewComment creates a new Comment with a generated UUID
func NewComment(postID string, authorID *string, body string) *Comment {
	return &Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now(),
	}
}
