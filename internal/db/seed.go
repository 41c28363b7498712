package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/f1blog/internal/validation"
)

// SeedFile describes initial users and posts loaded from YAML
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
	Posts []SeedPost `yaml:"posts"`
}

// SeedUser is a user entry in the seed file
type SeedUser struct {
	Email     string `yaml:"email"`
	Name      string `yaml:"name"`
	Password  string `yaml:"password"`
	AvatarURL string `yaml:"avatar_url"`
	Disabled  bool   `yaml:"disabled"`
}

// SeedPost is a post entry in the seed file. Author is an email; it may name
// no user at all, in which case the post is stored without an author.
type SeedPost struct {
	Title     string        `yaml:"title"`
	Content   string        `yaml:"content"`
	Author    string        `yaml:"author"`
	ImageURL  string        `yaml:"image_url"`
	CreatedAt time.Time     `yaml:"created_at"`
	Comments  []SeedComment `yaml:"comments"`
}

// SeedComment is a comment entry in the seed file
type SeedComment struct {
	Author string `yaml:"author"`
	Body   string `yaml:"body"`
}

// PasswordHasher turns a plaintext password into a stored hash
type PasswordHasher func(password string) (string, error)

// LoadSeedFile reads and parses a YAML seed file
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, u := range seed.Users {
		if strings.TrimSpace(u.Email) == "" || u.Password == "" {
			return nil, fmt.Errorf("seed user %d: email and password are required", i)
		}
		if err := validation.ValidateDisplayName(u.Name); err != nil {
			return nil, fmt.Errorf("seed user %d: %w", i, err)
		}
		if err := validation.ValidateImageURL(u.AvatarURL); err != nil {
			return nil, fmt.Errorf("seed user %d: %w", i, err)
		}
	}
	for i, p := range seed.Posts {
		if err := validation.ValidatePostTitle(p.Title); err != nil {
			return nil, fmt.Errorf("seed post %d: %w", i, err)
		}
		if err := validation.ValidatePostContent(p.Content); err != nil {
			return nil, fmt.Errorf("seed post %d: %w", i, err)
		}
		if err := validation.ValidateImageURL(p.ImageURL); err != nil {
			return nil, fmt.Errorf("seed post %d: %w", i, err)
		}
		for j, c := range p.Comments {
			if err := validation.ValidateComment(c.Body); err != nil {
				return nil, fmt.Errorf("seed post %d comment %d: %w", i, j, err)
			}
		}
	}

	return &seed, nil
}

// ApplySeed inserts seed users that do not exist yet. Posts are only
// inserted into an empty posts table so restarts do not duplicate them.
func (db *DB) ApplySeed(ctx context.Context, seed *SeedFile, hash PasswordHasher) error {
	userIDs := make(map[string]string, len(seed.Users))

	for _, su := range seed.Users {
		email := strings.ToLower(strings.TrimSpace(su.Email))
		existing, err := db.GetUserByEmail(ctx, email)
		if err == nil {
			userIDs[email] = existing.ID
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to look up seed user %s: %w", email, err)
		}

		passwordHash, err := hash(su.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", email, err)
		}

		name := su.Name
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		user := NewUser(email, name, passwordHash)
		user.Disabled = su.Disabled
		if su.AvatarURL != "" {
			avatar := su.AvatarURL
			user.AvatarURL = &avatar
		}
		if err := db.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to create seed user %s: %w", email, err)
		}
		userIDs[email] = user.ID
		slog.Debug("Seeded user", "user_id", user.ID)
	}

	counts, err := db.CountAll(ctx)
	if err != nil {
		return err
	}
	if counts.Posts > 0 {
		slog.Info("Posts already present, skipping post seed", "posts", counts.Posts)
		return nil
	}

	lookup := func(email string) *string {
		if email == "" {
			return nil
		}
		if id, ok := userIDs[strings.ToLower(strings.TrimSpace(email))]; ok {
			return &id
		}
		// Unknown authors are kept as a dangling reference
		ref := email
		return &ref
	}

	for _, sp := range seed.Posts {
		post := NewPost(sp.Title, sp.Content, lookup(sp.Author))
		if sp.ImageURL != "" {
			img := sp.ImageURL
			post.ImageURL = &img
		}
		if !sp.CreatedAt.IsZero() {
			post.CreatedAt = sp.CreatedAt
		}
		if err := db.CreatePost(ctx, post); err != nil {
			return fmt.Errorf("failed to create seed post %q: %w", sp.Title, err)
		}
		for _, sc := range sp.Comments {
			comment := NewComment(post.ID, lookup(sc.Author), sc.Body)
			if err := db.CreateComment(ctx, comment); err != nil {
				return fmt.Errorf("failed to create seed comment: %w", err)
			}
		}
	}

	slog.Info("Seed applied", "users", len(seed.Users), "posts", len(seed.Posts))
	return nil
}
