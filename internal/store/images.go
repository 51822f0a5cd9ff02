package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PutImage stores image bytes under id.
func PutImage(ctx context.Context, db *sql.DB, id string, data []byte, mime, filename string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO images (id, data, mime, filename, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, data, mime, filename, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing image: %w", err)
	}
	return nil
}

// GetImage returns an image's data and MIME type. Data is nil if absent.
func GetImage(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM images WHERE id = ?`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting image: %w", err)
	}
	return data, mime, nil
}
