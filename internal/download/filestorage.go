package download

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStorage implements Storage for the local filesystem.
type FileStorage struct {
	dir     string
	maxSize int64
	logger  *slog.Logger
}

// NewFileStorage creates a FileStorage writing into dir. The directory is
// created lazily on the first save so that a dry run touches nothing.
func NewFileStorage(dir string, maxSize int64, logger *slog.Logger) *FileStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStorage{dir: dir, maxSize: maxSize, logger: logger}
}

// Save writes content under filename inside the storage directory,
// resolving name collisions with a numeric suffix.
func (fs *FileStorage) Save(filename string, content []byte) (string, error) {
	if fs.maxSize > 0 && int64(len(content)) > fs.maxSize {
		return "", fmt.Errorf("attachment size %d exceeds maximum allowed size %d", len(content), fs.maxSize)
	}

	if err := os.MkdirAll(fs.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	if filename == "" {
		filename = fmt.Sprintf("attachment_%d.bin", time.Now().UnixNano())
	}

	finalPath := uniquePath(filepath.Join(fs.dir, filename))

	if err := fs.writeFile(finalPath, content); err != nil {
		return "", err
	}

	fs.logger.Debug("saved attachment", "filename", filename, "path", finalPath)
	return finalPath, nil
}

// uniquePath appends _1, _2, ... before the extension until the path does
// not exist. Any stat error counts as "not taken" so a persistent failure
// (lost permissions, broken parent) cannot loop forever; the O_EXCL open
// in writeFile surfaces the real error instead. The check and the later
// create are not atomic: two parallel saves with the same target can both
// pick the same candidate, in which case the O_EXCL open fails the loser.
func uniquePath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

func (fs *FileStorage) writeFile(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		os.Remove(path) // Clean up on error
		return fmt.Errorf("failed to write file content: %w", err)
	}
	return nil
}
