// internal/database/gallery.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/inkguess/inkguess/internal/models"
)

// InsertGalleryEntry persists a recognized drawing. Callers treat failures as
// best-effort: a lost gallery row never blocks turn progress.
func InsertGalleryEntry(ctx context.Context, entry *models.GalleryEntry) error {
	if entry.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate gallery id: %w", err)
		}
		entry.ID = id
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	q := `INSERT INTO gallery (id, room_id, round, drawer, target_word, best_guess, image, created_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			entry.ID, entry.RoomID, entry.Round, entry.Drawer,
			entry.TargetWord, entry.BestGuess, entry.Image, entry.CreatedAt,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert gallery entry: %w", err)
	}
	return nil
}

// ListGalleryEntries returns the most recent recognized drawings, newest
// first, capped at limit.
func ListGalleryEntries(ctx context.Context, limit int) ([]models.GalleryEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	q := `SELECT id, room_id, round, drawer, target_word, best_guess, image, created_at
	      FROM gallery ORDER BY created_at DESC LIMIT $1`

	rows, err := DB.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query gallery: %w", err)
	}
	defer rows.Close()

	var out []models.GalleryEntry
	for rows.Next() {
		var e models.GalleryEntry
		if err := rows.Scan(&e.ID, &e.RoomID, &e.Round, &e.Drawer,
			&e.TargetWord, &e.BestGuess, &e.Image, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan gallery row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
