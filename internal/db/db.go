package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	dbPath string
}

// Init initializes the database connection and runs migrations
func Init(dbPath string) (*DB, error) {
	// Ensure data directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// Open database connection
	sqlDB, err := sql.Open("sqlite", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	db := &DB{sqlDB, dbPath}

	// Run migrations
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// GetDBPath returns the database file path
func (db *DB) GetDBPath() string {
	return db.dbPath
}

// migrate runs database migrations
func (db *DB) migrate() error {
	// posts.author_id carries no foreign key: a post may outlive its author
	// and is then rendered with a reference-only author.
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE COLLATE NOCASE,
			name TEXT NOT NULL,
			avatar_url TEXT,
			password_hash TEXT NOT NULL,
			disabled INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			author_id TEXT,
			image_url TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			post_id TEXT NOT NULL,
			author_id TEXT,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			// Ignore error if column already exists
			if !isDuplicateColumnError(err) {
				return err
			}
		}
	}

	return nil
}

// isDuplicateColumnError checks if error is about duplicate column
func isDuplicateColumnError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "duplicate column name") ||
		strings.Contains(errStr, "already exists")
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// CreateUser creates a new user
func (db *DB) CreateUser(ctx context.Context, user *User) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO users (id, email, name, avatar_url, password_hash, disabled, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Email, user.Name, nullable(user.AvatarURL), user.PasswordHash, user.Disabled, user.CreatedAt.UTC(),
	)
	return err
}

const userColumns = "id, email, name, avatar_url, password_hash, disabled, created_at"

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	var avatar sql.NullString
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &avatar, &user.PasswordHash, &user.Disabled, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.AvatarURL = stringPtr(avatar)
	return user, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?",
		strings.TrimSpace(email),
	))
}

// GetUserByID retrieves a user by ID
func (db *DB) GetUserByID(ctx context.Context, id string) (*User, error) {
	return scanUser(db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?",
		id,
	))
}

// SetUserDisabled enables or disables an account
func (db *DB) SetUserDisabled(ctx context.Context, id string, disabled bool) error {
	res, err := db.ExecContext(ctx, "UPDATE users SET disabled = ? WHERE id = ?", disabled, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreatePost creates a new post
func (db *DB) CreatePost(ctx context.Context, post *Post) error {
	createdAt := post.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO posts (id, title, content, author_id, image_url, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		post.ID, post.Title, post.Content, nullable(post.AuthorID), nullable(post.ImageURL), createdAt.UTC(),
	)
	return err
}

const postRowQuery = `SELECT p.id, p.title, p.content, p.author_id, p.image_url, p.created_at,
		u.name, u.email,
		(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)
	FROM posts p
	LEFT JOIN users u ON u.id = p.author_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPostRow(s rowScanner) (*PostRow, error) {
	row := &PostRow{}
	var authorID, imageURL, authorName, authorEmail sql.NullString
	err := s.Scan(&row.ID, &row.Title, &row.Content, &authorID, &imageURL, &row.CreatedAt,
		&authorName, &authorEmail, &row.CommentCount)
	if err != nil {
		return nil, err
	}
	row.AuthorID = stringPtr(authorID)
	row.ImageURL = stringPtr(imageURL)
	row.AuthorName = stringPtr(authorName)
	row.AuthorEmail = stringPtr(authorEmail)
	return row, nil
}

// ListPosts retrieves posts newest first. A limit of zero or less returns all posts.
func (db *DB) ListPosts(ctx context.Context, limit int) ([]*PostRow, error) {
	query := postRowQuery + " ORDER BY p.created_at DESC, p.rowid DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*PostRow
	for rows.Next() {
		post, err := scanPostRow(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// GetPost retrieves a post by ID
func (db *DB) GetPost(ctx context.Context, id string) (*PostRow, error) {
	return scanPostRow(db.QueryRowContext(ctx, postRowQuery+" WHERE p.id = ?", id))
}

// CreateComment creates a new comment
func (db *DB) CreateComment(ctx context.Context, comment *Comment) error {
	createdAt := comment.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO comments (id, post_id, author_id, body, created_at) VALUES (?, ?, ?, ?, ?)",
		comment.ID, comment.PostID, nullable(comment.AuthorID), comment.Body, createdAt.UTC(),
	)
	return err
}

// CountAll returns the number of posts, users and comments
func (db *DB) CountAll(ctx context.Context) (Counts, error) {
	var c Counts
	err := db.QueryRowContext(ctx,
		"SELECT (SELECT COUNT(*) FROM posts), (SELECT COUNT(*) FROM users), (SELECT COUNT(*) FROM comments)",
	).Scan(&c.Posts, &c.Users, &c.Comments)
	return c, err
}
