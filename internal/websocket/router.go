package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/coder/websocket"
	"github.com/nfrund/amruno/internal/domain"
	"github.com/nfrund/amruno/internal/hub"
	"github.com/nfrund/amruno/internal/presence"
)

// State is the lifecycle stage of a connection.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const (
	defaultSendBuffer = 256
	defaultReadLimit  = 32 << 10
)

// Router runs the per-connection protocol: it registers the connection,
// routes inbound events to their recipients and cleans up on close.
type Router struct {
	hub        *hub.Hub
	presence   *presence.Service
	messages   domain.MessageRepository
	logger     *slog.Logger
	sendBuffer int
	readLimit  int64
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used by the router.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithSendBuffer sets the per-connection outbound queue length.
func WithSendBuffer(n int) Option {
	return func(r *Router) { r.sendBuffer = n }
}

// WithReadLimit sets the largest inbound frame accepted, in bytes.
func WithReadLimit(n int64) Option {
	return func(r *Router) { r.readLimit = n }
}

// NewRouter creates a Router.
func NewRouter(h *hub.Hub, p *presence.Service, messages domain.MessageRepository, opts ...Option) *Router {
	r := &Router{
		hub:        h,
		presence:   p,
		messages:   messages,
		logger:     slog.Default(),
		sendBuffer: defaultSendBuffer,
		readLimit:  defaultReadLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "router")
	return r
}

// session is the state of one connection.
type session struct {
	id     string
	state  State
	client *Client
	store  domain.MessageSession
	router *Router
	logger *slog.Logger
}

// Serve runs the connection identified by id until it closes. conn has
// already completed the handshake. Serve always closes conn.
func (r *Router) Serve(ctx context.Context, id string, conn *websocket.Conn) {
	logger := r.logger.With("user_id", id)
	s := &session{id: id, state: StateConnecting, router: r, logger: logger}

	store, err := r.messages.OpenSession(ctx)
	if err != nil {
		logger.Error("Failed to open store session", "error", err)
		conn.Close(websocket.StatusInternalError, "storage unavailable")
		return
	}
	s.store = store

	conn.SetReadLimit(r.readLimit)
	s.client = newClient(id, conn, r.sendBuffer, logger)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.client.writePump(ctx)
	}()

	r.hub.Connect(id, s.client)
	s.state = StateOpen
	if err := r.presence.Joined(id); err != nil {
		logger.Error("Failed to announce join", "error", err)
	}

	code, reason := s.run(ctx, conn)

	s.state = StateClosed
	// A connection that was replaced under the same id leaves the registry
	// and the peers' view of the user alone.
	if r.hub.Release(id, s.client) {
		if err := r.presence.Left(id); err != nil {
			logger.Error("Failed to announce leave", "error", err)
		}
	}
	s.client.close()
	<-writerDone
	conn.Close(code, reason)
	if err := s.store.Close(); err != nil {
		logger.Warn("Failed to release store session", "error", err)
	}
	logger.Debug("Connection finished", "state", s.state, "code", code)
}

// run reads events in arrival order until the connection fails or a
// message cannot be stored. It returns the close frame to send.
func (s *session) run(ctx context.Context, conn *websocket.Conn) (websocket.StatusCode, string) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch status := websocket.CloseStatus(err); {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				s.logger.Info("WebSocket closed normally by client")
			case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
				s.logger.Info("WebSocket connection ended", "reason", err)
			default:
				s.logger.Warn("WebSocket read error", "error", err)
			}
			return websocket.StatusNormalClosure, ""
		}

		ev, err := DecodeEvent(data)
		if err != nil {
			s.logger.Debug("Rejected inbound event", "error", err)
			s.reply(ErrorNotice{Type: TypeError, Error: err.Error()})
			continue
		}

		if err := s.route(ctx, ev); err != nil {
			s.logger.Error("Failed to store message, closing connection", "error", err)
			return websocket.StatusInternalError, "message could not be stored"
		}
	}
}

func (s *session) route(ctx context.Context, ev Event) error {
	h := s.router.hub
	switch ev := ev.(type) {
	case TypingEvent:
		s.deliver(ev.To, TypingNotice{Type: TypeTyping, SenderID: s.id})
		return nil

	case ChatEvent:
		msg, err := s.store.CreateMessage(ctx, ev.NewMessage(s.id))
		if err != nil {
			return err
		}
		payload, err := json.Marshal(NewChatMessage(msg))
		if err != nil {
			return err
		}
		// Delivery is best effort; the stored message is the record.
		_ = h.SendTo(ev.Recipient(), payload)
		_ = h.SendTo(s.id, payload)
		return nil
	}
	return nil
}

func (s *session) deliver(to string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to encode event", "error", err)
		return
	}
	if err := s.router.hub.SendTo(to, payload); err != nil {
		s.logger.Debug("Event not delivered", "recipient", to, "error", err)
	}
}

// reply sends v on this connection only.
func (s *session) reply(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to encode event", "error", err)
		return
	}
	_ = s.client.Send(payload)
}
