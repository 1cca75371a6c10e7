// Package database implements the user and message repositories on
// SurrealDB and selects the configured storage driver.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nfrund/amruno/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

// NewDB creates and configures a new SurrealDB connection.
func NewDB(ctx context.Context, cfg *config.Config) (*surrealdb.DB, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.DBUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to surrealdb: %w", err)
	}

	authData := &surrealdb.Auth{
		Username: cfg.DBUser,
		Password: cfg.DBPass,
	}

	if _, err = db.SignIn(ctx, authData); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	if err = db.Use(ctx, cfg.DBNs, cfg.DBDb); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/db: %w", err)
	}

	slog.Info("Successfully signed in to SurrealDB", "namespace", cfg.DBNs, "database", cfg.DBDb)
	return db, nil
}

// Migrate defines the tables and indexes the stores rely on.
func Migrate(ctx context.Context, db *surrealdb.DB) error {
	const schema = `
	DEFINE TABLE IF NOT EXISTS user SCHEMALESS;
	DEFINE INDEX IF NOT EXISTS user_mobile_unique ON TABLE user FIELDS mobile_number UNIQUE;
	DEFINE TABLE IF NOT EXISTS message SCHEMALESS;
	DEFINE INDEX IF NOT EXISTS message_pair ON TABLE message FIELDS sender_mobile, recipient_mobile;
	DEFINE INDEX IF NOT EXISTS message_unread ON TABLE message FIELDS recipient_mobile, is_read;
	`
	if err := Execute(ctx, db, schema, nil); err != nil {
		return WrapError(err, "failed to define schema")
	}
	return nil
}
