package download

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// GDriveStorage implements Storage for Google Drive.
type GDriveStorage struct {
	logger   *slog.Logger
	service  *drive.Service
	parentID string
	maxSize  int64
}

// NewGDriveStorage creates a Google Drive storage instance
func NewGDriveStorage(ctx context.Context, logger *slog.Logger, config StorageConfig) (*GDriveStorage, error) {
	service, err := drive.NewService(ctx, option.WithCredentialsFile(config.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}

	return &GDriveStorage{
		logger:   logger,
		service:  service,
		parentID: config.ParentFolderID,
		maxSize:  config.MaxSize,
	}, nil
}

// Save uploads content to the configured Drive folder and returns the
// file ID. Drive allows duplicate names, so no collision handling is
// needed here.
func (gd *GDriveStorage) Save(filename string, content []byte) (string, error) {
	if gd.maxSize > 0 && int64(len(content)) > gd.maxSize {
		return "", fmt.Errorf("attachment size %d exceeds maximum allowed size %d", len(content), gd.maxSize)
	}

	file := &drive.File{
		Name:     filename,
		MimeType: driveMimeType(filename),
	}
	if gd.parentID != "" {
		file.Parents = []string{gd.parentID}
	}

	uploaded, err := gd.service.Files.Create(file).Media(bytes.NewReader(content)).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	gd.logger.Debug("file uploaded",
		"filename", filename,
		"id", uploaded.Id,
		"size", len(content))

	return uploaded.Id, nil
}

func driveMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
