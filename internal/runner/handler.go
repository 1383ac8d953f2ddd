package runner

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes the job trigger endpoints. They are guarded by a shared
// secret rather than a user session: cron services and the scheduler worker
// call them, not browsers.
type Handler struct {
	runner    *Runner
	refresher *Refresher
}

func NewHandler(r *Runner, refresher *Refresher) *Handler {
	return &Handler{runner: r, refresher: refresher}
}

// RunScheduledSearches executes the most overdue scheduled search. Partial
// failure is still a 200; the summary carries the error details.
func (h *Handler) RunScheduledSearches(c *gin.Context) {
	summary, err := h.runner.RunDue(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "processed": 0})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RefreshTokens sweeps tokens nearing expiry.
func (h *Handler) RefreshTokens(c *gin.Context) {
	summary, err := h.refresher.RefreshExpiring(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "processed": 0})
		return
	}
	c.JSON(http.StatusOK, summary)
}
