// Package tracking records which messages have already had their
// attachments downloaded, so repeated runs against the same mailbox do
// not save duplicates.
package tracking

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloaded_messages (
	account       TEXT NOT NULL,
	message_uid   TEXT NOT NULL,
	downloaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (account, message_uid)
);
CREATE INDEX IF NOT EXISTS idx_downloaded_at ON downloaded_messages(downloaded_at);
`

// Tracker is a SQLite-backed store keyed by (account, message UID).
type Tracker struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTracker opens (creating if needed) the tracking database at path.
func NewTracker(path string, logger *slog.Logger) (*Tracker, error) {
	if path == "" {
		path = "downloads.db"
	}
	path = os.ExpandEnv(path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create tracking directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tracking database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tracking schema: %w", err)
	}

	return &Tracker{db: db, logger: logger}, nil
}

// IsDownloaded reports whether the message was already processed for
// this account.
func (t *Tracker) IsDownloaded(account, uid string) (bool, error) {
	var exists bool
	err := t.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM downloaded_messages WHERE account = ? AND message_uid = ?)",
		account, uid,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("tracking lookup failed: %w", err)
	}
	return exists, nil
}

// MarkDownloaded records the message as processed. Marking the same
// message twice is not an error.
func (t *Tracker) MarkDownloaded(account, uid string) error {
	_, err := t.db.Exec(
		"INSERT OR IGNORE INTO downloaded_messages (account, message_uid) VALUES (?, ?)",
		account, uid,
	)
	if err != nil {
		return fmt.Errorf("failed to record downloaded message: %w", err)
	}
	return nil
}

// Cleanup removes records older than retentionDays.
func (t *Tracker) Cleanup(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	res, err := t.db.Exec("DELETE FROM downloaded_messages WHERE downloaded_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("tracking cleanup failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		t.logger.Debug("removed expired tracking records", "count", n)
	}
	return nil
}

// Close closes the underlying database
func (t *Tracker) Close() error {
	return t.db.Close()
}
