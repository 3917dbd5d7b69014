package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/contract-spec-publisher/interfaces"
)

// FileBackend implements a storage backend using the local file system.
// Objects are stored under a subdirectory per object kind.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file storage backend rooted at baseDir, creating
// the per-kind subdirectories if they don't exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	for _, kind := range interfaces.ObjectKinds {
		if err := os.MkdirAll(filepath.Join(baseDir, kind.String()), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", kind, err)
		}
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch returns ErrContentNotFound if the file doesn't exist.
func (b *FileBackend) Fetch(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind) ([]byte, error) {
	filePath := b.getFilePath(hash, kind)

	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched object from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store writes to a temporary file and renames it into place.
func (b *FileBackend) Store(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind, data []byte) error {
	filePath := b.getFilePath(hash, kind)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	b.log.Debug("Stored object in file",
		slog.String("path", filePath),
		slog.String("hash", hash.Short()))

	return nil
}

// Exists stats the object file.
func (b *FileBackend) Exists(ctx context.Context, hash interfaces.ContentHash, kind interfaces.ObjectKind) (bool, error) {
	_, err := os.Stat(b.getFilePath(hash, kind))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}

// Available checks if the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) getFilePath(hash interfaces.ContentHash, kind interfaces.ObjectKind) string {
	return filepath.Join(b.baseDir, kind.String(), hash.Hex())
}
