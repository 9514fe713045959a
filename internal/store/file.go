package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"sensorita-alert/internal/models"

	"go.uber.org/zap"
)

// FileStore keeps the baseline as an indented JSON object on disk
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a file-backed store at path
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Load reads the baseline. A missing file is the first run and yields an empty map.
func (s *FileStore) Load(_ context.Context) (models.SensorStatus, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("No stored baseline, starting empty",
				zap.String("path", s.path),
			)
			return make(models.SensorStatus), nil
		}
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	return decodeSnapshot(data)
}

// Save writes the baseline to a temp file and renames it over the previous one.
func (s *FileStore) Save(_ context.Context, tooLate models.SensorStatus) error {
	data, err := encodeSnapshot(tooLate)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create baseline dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".baseline-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp baseline: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close baseline: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace baseline: %w", err)
	}
	return nil
}

// Close is a no-op for files
func (s *FileStore) Close() error {
	return nil
}
