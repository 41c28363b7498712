package httputil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/f1blog/internal/validation"
)

// ParseLimit reads the "limit" query parameter. Missing means def; values
// above max are clamped.
func ParseLimit(c *gin.Context, def, max int) (int, error) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return def, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > max {
		limit = max
	}
	return limit, nil
}

// ValidateAndGetPostID validates and returns post ID from URL parameter
func ValidateAndGetPostID(c *gin.Context) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	if err := validation.ValidatePostID(id); err != nil {
		return "", fmt.Errorf("invalid post ID: %w", err)
	}
	return id, nil
}
