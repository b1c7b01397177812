package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carhorizon/carhorizon/internal/apperr"
)

// respondError maps an error kind to its HTTP status. Infrastructure
// failures are logged with full detail and answered generically; business
// errors carry their message through.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)

	var status int
	switch kind {
	case apperr.Validation:
		status = http.StatusBadRequest
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Forbidden:
		status = http.StatusForbidden
	case apperr.AlreadyExists:
		status = http.StatusConflict
	case apperr.InvalidState:
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	c.JSON(status, gin.H{"error": apperr.Message(err)})
}
