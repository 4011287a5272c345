package download

import (
	"context"
	"fmt"
	"log/slog"
)

// Storage persists attachment bytes under a final, collision-free name.
type Storage interface {
	// Save stores content and returns the final path or identifier.
	Save(filename string, content []byte) (string, error)
}

// StorageType selects a storage backend
type StorageType string

const (
	StorageTypeFile   StorageType = "file"
	StorageTypeGDrive StorageType = "gdrive"
)

// StorageConfig holds configuration for creating storage instances
type StorageConfig struct {
	Type StorageType
	// Path is the local output directory for file storage
	Path string
	// MaxSize rejects attachments larger than this many bytes; 0 means no limit
	MaxSize int64
	// CredentialsFile and ParentFolderID configure the Google Drive backend
	CredentialsFile string
	ParentFolderID  string
}

// NewStorage creates a storage instance based on the configuration
func NewStorage(ctx context.Context, config StorageConfig, logger *slog.Logger) (Storage, error) {
	switch config.Type {
	case StorageTypeFile, "":
		return NewFileStorage(config.Path, config.MaxSize, logger), nil
	case StorageTypeGDrive:
		return NewGDriveStorage(ctx, logger, config)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}
