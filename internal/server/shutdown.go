package server

import (
	"context"
	"errors"
	"log/slog"
)

// Shutdown closes live websocket sessions, stops the HTTP server and then
// releases the database connection.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.wsHandler.Shutdown(ctx); err != nil {
		slog.Warn("WebSocket sessions did not finish in time", "error", err)
		errs = append(errs, err)
	}
	if err := s.E.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.Stores.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
