package websocket

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// Handler upgrades HTTP requests to websocket connections served by a Router.
type Handler struct {
	router *Router
	accept *websocket.AcceptOptions

	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewHandler creates a Handler. allowedOrigins holds origin URLs or host
// patterns; "*" disables the origin check.
func NewHandler(router *Router, allowedOrigins []string) *Handler {
	base, cancel := context.WithCancel(context.Background())
	return &Handler{
		router: router,
		accept: acceptOptions(allowedOrigins),
		base:   base,
		cancel: cancel,
	}
}

func acceptOptions(origins []string) *websocket.AcceptOptions {
	if lo.Contains(origins, "*") {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	patterns := lo.Map(origins, func(o string, _ int) string {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			return u.Host
		}
		return o
	})
	return &websocket.AcceptOptions{OriginPatterns: patterns}
}

// Serve handles GET /ws/:client_id. The identifier is taken from the path
// as is.
func (h *Handler) Serve(c echo.Context) error {
	id := c.Param("client_id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "client id is required")
	}
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server is shutting down")
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	conn, err := websocket.Accept(c.Response(), c.Request(), h.accept)
	if err != nil {
		// Accept has already written the error response.
		h.router.logger.Warn("Failed to upgrade connection to WebSocket", "user_id", id, "error", err)
		return nil
	}

	ctx, stop := context.WithCancel(c.Request().Context())
	defer stop()
	unregister := context.AfterFunc(h.base, stop)
	defer unregister()

	h.router.Serve(ctx, id, conn)
	return nil
}

// Shutdown closes every live connection and waits for their sessions to
// finish or for ctx to expire.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()
	h.cancel()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
