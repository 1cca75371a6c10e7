package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 10 * time.Second

var (
	// ErrSendBufferFull is returned when a client's outbound queue is full.
	ErrSendBufferFull = errors.New("websocket: send buffer full")
	// ErrClientClosed is returned when sending to a client that has closed.
	ErrClientClosed = errors.New("websocket: client closed")
)

// Client is the outbound half of one websocket connection. Messages are
// queued by Send and written by writePump in order.
type Client struct {
	ID string

	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func newClient(id string, conn *websocket.Conn, buffer int, logger *slog.Logger) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		send:   make(chan []byte, buffer),
		logger: logger,
	}
}

// Send queues msg without blocking.
func (c *Client) Send(msg []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("Client send channel full, dropping message")
		return ErrSendBufferFull
	}
}

// close stops accepting messages. Already queued messages are still written.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump pumps messages from the send queue to the connection until the
// queue is closed or a write fails.
func (c *Client) writePump(ctx context.Context) {
	for msg := range c.send {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.conn.Write(wctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			c.logger.Debug("WebSocket write error", "error", err)
			// Unblocks the reader so the session reaches Closed.
			c.conn.CloseNow()
			for range c.send {
			}
			return
		}
	}
}
