// internal/database/schema.go
package database

import (
	"context"
	"fmt"
)

// schemaStatements create the tables the service writes to. They are
// idempotent so startup can run them unconditionally.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS gallery (
		id UUID PRIMARY KEY,
		room_id UUID NOT NULL,
		round INT NOT NULL,
		drawer TEXT NOT NULL,
		target_word TEXT NOT NULL,
		best_guess TEXT NOT NULL,
		image TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS turn_records (
		id BIGSERIAL PRIMARY KEY,
		room_id UUID NOT NULL,
		round INT NOT NULL,
		event TEXT NOT NULL,
		player TEXT,
		drawer TEXT,
		target TEXT,
		guess TEXT,
		correct BOOLEAN NOT NULL DEFAULT FALSE,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_gallery_created_at ON gallery (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_turn_records_room ON turn_records (room_id, round)`,
}

// EnsureSchema applies the schema statements against the connected pool.
func EnsureSchema(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database is not connected")
	}
	for _, stmt := range schemaStatements {
		if _, err := DB.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
