package database

import (
	"context"
	"fmt"

	"github.com/nfrund/amruno/internal/config"
	"github.com/nfrund/amruno/internal/database/sqlite"
	"github.com/nfrund/amruno/internal/domain"
)

// Stores bundles the repositories of the configured storage driver.
type Stores struct {
	Users    domain.UserRepository
	Messages domain.MessageRepository

	migrate func(ctx context.Context) error
	close   func(ctx context.Context) error
}

// Open connects to the storage backend selected by cfg.DBDriver.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Users:    sqlite.NewUserStore(db),
			Messages: sqlite.NewMessageStore(db),
			migrate:  db.Migrate,
			close:    func(context.Context) error { return db.Close() },
		}, nil

	case config.DriverSurreal:
		db, err := NewDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Users:    NewUserStore(db),
			Messages: NewMessageStore(db),
			migrate:  func(ctx context.Context) error { return Migrate(ctx, db) },
			close:    func(ctx context.Context) error { return db.Close(ctx) },
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
}

// Migrate creates the schema if needed.
func (s *Stores) Migrate(ctx context.Context) error {
	return s.migrate(ctx)
}

// Close releases the underlying connection.
func (s *Stores) Close(ctx context.Context) error {
	return s.close(ctx)
}
