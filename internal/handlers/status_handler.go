package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kuberan/ledgersync/internal/auth"
	"github.com/kuberan/ledgersync/internal/scheduler"
)

// StatusSource is the part of a session the status routes read.
type StatusSource interface {
	Status() auth.Status
	SchedulerState() scheduler.State
	RefreshData() error
	Counts(ctx context.Context) (map[string]int64, error)
}

// StatusHandler reports liveness, login state and cache size.
type StatusHandler struct {
	session StatusSource
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(session StatusSource) *StatusHandler {
	return &StatusHandler{session: session}
}

// StatusResponse describes the session.
type StatusResponse struct {
	Status    string           `json:"status"`
	Scheduler string           `json:"scheduler"`
	Records   map[string]int64 `json:"records"`
}

// Health handles liveness probes.
// @Summary     Liveness probe
// @Tags        status
// @Produce     json
// @Success     200 {object} map[string]string
// @Router      /health [get]
func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status reports the login state, whether refreshes run and cached row counts.
// @Summary     Session status
// @Tags        status
// @Produce     json
// @Success     200 {object} StatusResponse
// @Failure     500 {object} ErrorResponse "Cache unreadable"
// @Router      /status [get]
func (h *StatusHandler) Status(c *gin.Context) {
	counts, err := h.session.Counts(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{
		Status:    h.session.Status().String(),
		Scheduler: h.session.SchedulerState().String(),
		Records:   counts,
	})
}

// Refresh restarts the refresh schedule.
// @Summary     Refresh now
// @Tags        status
// @Produce     json
// @Success     202 {object} map[string]string
// @Failure     409 {object} ErrorResponse "Logged out"
// @Router      /refresh [post]
func (h *StatusHandler) Refresh(c *gin.Context) {
	if err := h.session.RefreshData(); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"scheduler": h.session.SchedulerState().String()})
}
