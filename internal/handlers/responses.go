package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserMobile  string `json:"user_mobile"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// UploadResponse points at a stored upload.
type UploadResponse struct {
	URL string `json:"url"`
}

// PresenceResponse lists the users currently connected.
type PresenceResponse struct {
	OnlineUsers []string `json:"online_users"`
	Count       int      `json:"count"`
}

// HTTPErrorHandler renders every error as an ErrorResponse. Errors that are
// not *echo.HTTPError are logged with a stack trace and reported as 500
// without details.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		detail = fmt.Sprint(he.Message)
	} else {
		slog.Error("Internal Server Error (Unhandled)",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
			"stack_trace", string(debug.Stack()),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Detail: detail})
	}
	if err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
