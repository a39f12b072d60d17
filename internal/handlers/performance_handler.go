package handlers

import (
	"net/http"

	"clinic-console-server/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// PerformanceHandler handles dashboard metric requests
type PerformanceHandler struct {
	performance PerformanceServiceInterface
}

// NewPerformanceHandler creates a new performance handler
func NewPerformanceHandler(performance PerformanceServiceInterface) *PerformanceHandler {
	return &PerformanceHandler{performance: performance}
}

// Daily handles GET /api/performance/daily
// Attendants get their own window; managers get the system-wide window
func (h *PerformanceHandler) Daily(c *gin.Context) {
	actor := middleware.ActorFromContext(c)

	snapshot, err := h.performance.ComputeDaily(actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// Team handles GET /api/performance/team (manager only)
func (h *PerformanceHandler) Team(c *gin.Context) {
	actor := middleware.ActorFromContext(c)

	stats, err := h.performance.TeamStats(actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"team": stats})
}
