// Package presence announces users joining and leaving the live channel.
package presence

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Event type tags of the presence payloads.
const (
	TypePresence = "presence"
	TypeStatus   = "status"
)

// Snapshot lists the users online when the recipient connected.
type Snapshot struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// Change announces that a single user went online or offline.
type Change struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Status Status `json:"status"`
}

// Registry is the part of the connection registry the notifier needs.
type Registry interface {
	OnlineExcept(id string) []string
	SendTo(id string, msg []byte) error
	BroadcastExcept(sender string, msg []byte) int
}

// Service sends presence snapshots and status changes through the registry.
type Service struct {
	registry Registry
	logger   *slog.Logger
}

// Option is a function that configures a Service.
type Option func(*Service)

// WithLogger sets the logger used by the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a presence service on top of registry.
func NewService(registry Registry, opts ...Option) *Service {
	s := &Service{registry: registry, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "presence")
	return s
}

// Joined runs after id has been registered: id receives the list of the
// other online users, then everybody else learns that id is online. The
// snapshot is taken once and not refreshed afterwards.
func (s *Service) Joined(id string) error {
	snapshot, err := json.Marshal(Snapshot{Type: TypePresence, Users: s.registry.OnlineExcept(id)})
	if err != nil {
		return fmt.Errorf("failed to encode presence snapshot: %w", err)
	}
	if err := s.registry.SendTo(id, snapshot); err != nil {
		s.logger.Debug("Presence snapshot not delivered", "user_id", id, "error", err)
	}
	return s.announce(id, StatusOnline)
}

// Left tells everybody else that id went offline.
func (s *Service) Left(id string) error {
	return s.announce(id, StatusOffline)
}

func (s *Service) announce(id string, status Status) error {
	msg, err := json.Marshal(Change{Type: TypeStatus, UserID: id, Status: status})
	if err != nil {
		return fmt.Errorf("failed to encode status change: %w", err)
	}
	n := s.registry.BroadcastExcept(id, msg)
	s.logger.Info("Presence changed", "user_id", id, "status", status, "notified", n)
	return nil
}
