package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Root reports that the service is up (GET /).
func Root(c echo.Context) error {
	return c.JSON(http.StatusOK, MessageResponse{Message: "Amruno Backend Running 🚀"})
}

// Health is the liveness check (GET /health).
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}
