package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/f1blog/internal/db"
	"github.com/f1blog/internal/domain"
)

// postService implements the PostService interface
type postService struct {
	database *db.DB
	logger   *slog.Logger
}

// NewPostService creates a new post service
func NewPostService(database *db.DB, logger *slog.Logger) domain.PostService {
	return &postService{
		database: database,
		logger:   logger,
	}
}

// ListPosts returns every post, newest first
func (s *postService) ListPosts(ctx context.Context) ([]domain.Post, error) {
	rows, err := s.database.ListPosts(ctx, 0)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list posts", "error", err)
		return nil, domain.WrapDatabaseOperation("list posts", err)
	}

	posts := make([]domain.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, toDomainPost(row))
	}

	s.logger.DebugContext(ctx, "listed posts", "count", len(posts))
	return posts, nil
}

// GetPost returns a single post
func (s *postService) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	row, err := s.database.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapPostNotFound(postID, err)
		}
		s.logger.ErrorContext(ctx, "failed to get post", "post_id", postID, "error", err)
		return nil, domain.WrapDatabaseOperation("get post", err)
	}

	post := toDomainPost(row)
	return &post, nil
}

// GetSiteStats returns the post, user and comment totals
func (s *postService) GetSiteStats(ctx context.Context) (domain.SiteStats, error) {
	counts, err := s.database.CountAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count site totals", "error", err)
		return domain.SiteStats{}, domain.WrapDatabaseOperation("site stats", err)
	}

	return domain.SiteStats{
		TotalPosts:    counts.Posts,
		TotalUsers:    counts.Users,
		TotalComments: counts.Comments,
	}, nil
}

func toDomainPost(row *db.PostRow) domain.Post {
	post := domain.Post{
		ID:           row.ID,
		Title:        row.Title,
		Content:      row.Content,
		CreatedAt:    row.CreatedAt,
		CommentCount: row.CommentCount,
		Author:       toDomainAuthor(row),
	}
	if row.ImageURL != nil {
		post.ImageURL = *row.ImageURL
	}
	return post
}

func toDomainAuthor(row *db.PostRow) domain.Author {
	switch {
	case row.AuthorID == nil || *row.AuthorID == "":
		return domain.Author{Kind: domain.AuthorUnknown}
	case row.AuthorName == nil:
		return domain.ReferenceAuthor(*row.AuthorID)
	default:
		email := ""
		if row.AuthorEmail != nil {
			email = *row.AuthorEmail
		}
		return domain.PopulatedAuthor(*row.AuthorName, email)
	}
}
