// Package sqlite implements the user and message repositories on an embedded
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"
)

// DB wraps the database handle shared by the stores.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the database file at path in WAL mode.
// Websocket sessions pin a connection each, so the pool is left unbounded.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	slog.Info("Opened SQLite database", "path", path)
	return &DB{db}, nil
}

// Migrate creates the schema if it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		full_name TEXT NOT NULL,
		mobile_number TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		gender TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_mobile TEXT NOT NULL,
		recipient_mobile TEXT NOT NULL,
		content TEXT,
		image_url TEXT,
		audio_url TEXT,
		timestamp DATETIME NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_mobile, recipient_mobile);
	CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient_mobile, is_read);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
