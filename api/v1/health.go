package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports database reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// SweepSchedule reports the retention scheduler state
type SweepSchedule interface {
	IsRunning() bool
	NextRun() *time.Time
}

// HealthHandler serves the health check endpoint
type HealthHandler struct {
	db        Pinger
	scheduler SweepSchedule
}

// NewHealthHandler creates a health handler. scheduler may be nil.
func NewHealthHandler(db Pinger, scheduler SweepSchedule) *HealthHandler {
	return &HealthHandler{db: db, scheduler: scheduler}
}

// HealthCheck handles the health check endpoint
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{
		"status":  "ok",
		"service": "pm-app-lifecycle",
		"version": "1.0.0",
	}
	if h.scheduler != nil {
		body["retention"] = gin.H{
			"running": h.scheduler.IsRunning(),
			"nextRun": h.scheduler.NextRun(),
		}
	}

	if err := h.db.Ping(ctx); err != nil {
		body["status"] = "error"
		body["message"] = "Database unavailable: " + err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	c.JSON(http.StatusOK, body)
}
