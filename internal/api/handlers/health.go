package handlers

import (
	"context"
	"net/http"
	"time"

	"gatekeeper/internal/models"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a health handler. A nil db means there is no external store to check.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health godoc
// @Summary Health check
// @Description Returns the health status of the API and its dependencies
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Failure 503 {object} models.HealthResponse "Database unreachable"
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	dbState := models.DatabaseDisabled
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, models.HealthResponse{
				Status:   "unhealthy",
				Database: models.DatabaseDown,
				Time:     time.Now().UTC(),
			})
			return
		}
		dbState = models.DatabaseUp
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:   "healthy",
		Database: dbState,
		Time:     time.Now().UTC(),
	})
}
