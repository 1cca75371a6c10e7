package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// OnlineLister reports the identifiers with a live connection.
type OnlineLister interface {
	Online() []string
}

// PresenceHandler handles presence-related HTTP requests
type PresenceHandler struct {
	registry OnlineLister
}

// NewPresenceHandler creates a new presence handler
func NewPresenceHandler(registry OnlineLister) *PresenceHandler {
	return &PresenceHandler{registry: registry}
}

// GetPresence returns the current online users as JSON
func (h *PresenceHandler) GetPresence(c echo.Context) error {
	online := h.registry.Online()
	return c.JSON(http.StatusOK, PresenceResponse{
		OnlineUsers: online,
		Count:       len(online),
	})
}
