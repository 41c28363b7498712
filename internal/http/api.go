package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/f1blog/internal/domain"
	"github.com/f1blog/internal/httputil"
)

// maxPostsLimit caps the limit query parameter
const maxPostsLimit = 100

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// handleServiceError maps domain errors to status codes. The body only ever
// carries the public message.
func handleServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsNotFoundError(err):
		status = http.StatusNotFound
	case domain.IsValidationError(err):
		status = http.StatusBadRequest
	case domain.IsInfrastructureError(err), domain.IsAuthCheckFailure(err):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, ErrorResponse{Error: domain.PublicMessage(err)})
}

// getSession returns the signed-in principal
func (s *Server) getSession(c *gin.Context) {
	sess, err := s.prober.Probe(c.Request)
	if err != nil {
		s.logger.WarnContext(c.Request.Context(), "session check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Session check failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Not signed in"})
		return
	}

	c.JSON(http.StatusOK, sess)
}

// listPosts returns the newest posts first
func (s *Server) listPosts(c *gin.Context) {
	limit, err := httputil.ParseLimit(c, 0, maxPostsLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid limit", Details: "limit must be a positive integer"})
		return
	}

	posts, err := s.postService.ListPosts(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	c.JSON(http.StatusOK, posts)
}

// getPost returns a single post
func (s *Server) getPost(c *gin.Context) {
	id, err := httputil.ValidateAndGetPostID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid post ID"})
		return
	}

	post, err := s.postService.GetPost(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

// getStats returns the site totals
func (s *Server) getStats(c *gin.Context) {
	stats, err := s.postService.GetSiteStats(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
