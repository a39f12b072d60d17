package handlers

import (
	"net/http"

	"clinic-console-server/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps the service error taxonomy onto HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case services.IsSession(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No authenticated actor"})
	case services.IsForbidden(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case services.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case services.IsTransient(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
