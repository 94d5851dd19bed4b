// Package http provides the REST handlers for the control API.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nwlens/nwlens/internal/domain/orchestrator"
	"github.com/nwlens/nwlens/internal/domain/store"
	"github.com/nwlens/nwlens/internal/infrastructure/logging"
	"github.com/nwlens/nwlens/internal/shared/types"
)

// Handlers contains HTTP request handlers
type Handlers struct {
	orch   *orchestrator.Orchestrator
	store  *store.Store
	logger *logging.Logger
}

// NewHandlers creates HTTP handlers
func NewHandlers(orch *orchestrator.Orchestrator, st *store.Store, logger *logging.Logger) *Handlers {
	return &Handlers{
		orch:   orch,
		store:  st,
		logger: logger,
	}
}

// Health returns service health status
func (h *Handlers) Health(c *gin.Context) {
	stats := h.store.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"apps":          stats.TotalApps,
		"sessions":      stats.TotalSessions,
		"live_sessions": stats.LiveSessions,
		"timestamp":     time.Now().Unix(),
	})
}

// ListApps returns the current application mapping
func (h *Handlers) ListApps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"apps": h.store.Applications()})
}

// AppIcon serves an application's icon bytes with the sniffed MIME type
func (h *Handlers) AppIcon(c *gin.Context) {
	app, ok := h.store.Application(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown application"})
		return
	}
	if len(app.Icon) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "application has no icon"})
		return
	}
	c.Data(http.StatusOK, app.IconMIME, app.Icon)
}

// Discover triggers a rescan of installed applications
func (h *Handlers) Discover(c *gin.Context) {
	apps := h.orch.RequestDiscovery(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"apps": apps})
}

// StartRequest is the launch request body. Exactly one of AppID and
// Path must be set.
type StartRequest struct {
	AppID string `json:"app_id"`
	Path  string `json:"path"`
}

// StartDebug launches a debug session for a discovered app or an
// explicit path
func (h *Handlers) StartDebug(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if (req.AppID == "") == (req.Path == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of app_id and path is required"})
		return
	}

	var (
		session types.Session
		err     error
	)
	if req.AppID != "" {
		session, err = h.orch.StartDebugging(c.Request.Context(), req.AppID)
	} else {
		session, err = h.orch.StartDebuggingByPath(c.Request.Context(), req.Path)
	}

	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, orchestrator.ErrUnknownApp):
			status = http.StatusNotFound
		case errors.Is(err, orchestrator.ErrInvalidPath):
			status = http.StatusUnprocessableEntity
		}
		h.logger.Warn("Launch failed",
			zap.String("app_id", req.AppID),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session": session})
}

// ListSessions returns all sessions, live and closed
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.store.Sessions()})
}

// GetSession returns a single session by instance id
func (h *Handlers) GetSession(c *gin.Context) {
	session, ok := h.store.Session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// SessionLog returns the retained output of a session as plain text
func (h *Handlers) SessionLog(c *gin.Context) {
	log, ok := h.store.SessionLog(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", log)
}
