package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/hiinen/internal/common"
	"github.com/dmitrijs2005/hiinen/internal/logging"
	"github.com/dmitrijs2005/hiinen/internal/server/validation"
)

// messages holds the user-facing text for the errors an endpoint can
// produce. Empty fields fall back to defaults.
type messages struct {
	unauthorized string
	notSupported string
	internal     string
}

// respondError maps err onto a status and a JSON body. Details of
// unexpected errors are logged, never returned.
func respondError(c *gin.Context, logger logging.Logger, err error, m messages) {
	if ve, ok := validation.As(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": ve.Fields})
		return
	}

	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
	case errors.Is(err, common.ErrRefreshTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token expired"})
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": orDefault(m.unauthorized, "Invalid credentials")})
	case errors.Is(err, common.ErrorNotSupported):
		c.JSON(http.StatusBadRequest, gin.H{"error": orDefault(m.notSupported, "Not available")})
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": orDefault(m.internal, "Server error")})
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// badRequest reports a body that could not be decoded at all.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Validation failed",
		"details": []validation.FieldError{{Field: "body", Message: err.Error()}},
	})
}
