// Package blob stores uploaded item photos and hands back the URL they are
// served from.
package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/campuslost/lostfound/internal/imaging"
	"github.com/campuslost/lostfound/internal/store"
)

// URLPrefix is the path images are served under.
const URLPrefix = "/api/images/"

// ErrInvalidImage wraps uploads that are not acceptable photos.
var ErrInvalidImage = errors.New("invalid image")

// Store uploads a photo and returns its public URL.
type Store interface {
	Upload(ctx context.Context, r io.Reader, filename string) (string, error)
}

// SQLiteStore normalizes photos with imaging.Process and keeps them in the
// images table.
type SQLiteStore struct {
	DB *sql.DB
}

func (s *SQLiteStore) Upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	photo, err := imaging.Process(r)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) || errors.Is(err, imaging.ErrTooLarge) {
			return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		return "", fmt.Errorf("processing image: %w", err)
	}

	id := uuid.NewString()
	name := sanitizeFilename(filename)
	if err := store.PutImage(ctx, s.DB, id, photo.Data, photo.MIME, name); err != nil {
		return "", err
	}

	slog.Debug("image stored", "id", id, "filename", name, "width", photo.Width, "height", photo.Height, "bytes", len(photo.Data))
	return URLPrefix + id, nil
}

// Open returns a stored image by ID. Data is nil if absent.
func (s *SQLiteStore) Open(ctx context.Context, id string) ([]byte, string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, "", nil
	}
	return store.GetImage(ctx, s.DB, id)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
