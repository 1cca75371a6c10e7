package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// Start serves HTTP on s.Cfg.Addr until ctx is cancelled, then shuts down
// gracefully within s.Cfg.ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", s.Cfg.Addr, "db_driver", s.Cfg.DBDriver)
		if err := s.E.Start(s.Cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			slog.Error("Server failed", "error", err)
			_ = s.Stores.Close(context.Background())
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Cfg.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
