package errorlog

import (
	"log/slog"
	"time"

	"github.com/altafino/imap-attachment-downloader/internal/types"
)

// Manager routes error entries to the configured backend. When error
// logging is disabled or the backend fails to initialize it degrades to
// a no-op so the pipeline never fails because of its error journal.
type Manager struct {
	backend Logger
	logger  *slog.Logger
}

// NewManager builds a manager from the account configuration
func NewManager(config *types.Config, logger *slog.Logger) *Manager {
	m := &Manager{
		backend: noopLogger{},
		logger:  logger,
	}

	errCfg := &config.Email.ErrorLogging
	if !errCfg.Enabled {
		return m
	}

	switch errCfg.StorageType {
	case "", "file":
		backend, err := NewFileLogger(errCfg.StoragePath)
		if err != nil {
			logger.Warn("error journal unavailable, errors will only be logged", "error", err)
			return m
		}
		m.backend = backend
	default:
		logger.Warn("unknown error log storage type", "type", errCfg.StorageType)
	}

	return m
}

// LogError records a pipeline failure. Journal write failures are
// reported on the application log, never returned.
func (m *Manager) LogError(entry EmailError) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	m.logger.Error("pipeline error",
		"category", entry.Category,
		"config_id", entry.ConfigID,
		"uid", entry.MessageUID,
		"filename", entry.Filename,
		"error", entry.ErrorMessage,
	)

	if err := m.backend.LogError(entry); err != nil {
		m.logger.Warn("failed to write error journal entry", "error", err)
	}
}

// GetErrors returns journal entries recorded at or after since.
func (m *Manager) GetErrors(since time.Time) ([]EmailError, error) {
	return m.backend.GetErrors(since)
}

// CleanupOldErrors removes journal entries past the retention window.
func (m *Manager) CleanupOldErrors(retentionDays int) error {
	return m.backend.CleanupOldErrors(retentionDays)
}

type noopLogger struct{}

func (noopLogger) LogError(EmailError) error { return nil }
func (noopLogger) GetErrors(time.Time) ([]EmailError, error) { return nil, nil }
func (noopLogger) CleanupOldErrors(int) error { return nil }
