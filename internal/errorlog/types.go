// Package errorlog keeps a persistent journal of pipeline failures so
// operators can review what went wrong after unattended runs.
package errorlog

import "time"

// EmailError is one journal entry.
type EmailError struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ConfigID     string    `json:"config_id"`
	Account      string    `json:"account"`
	MessageUID   string    `json:"message_uid,omitempty"`
	Filename     string    `json:"filename,omitempty"`
	Category     string    `json:"category"`
	ErrorMessage string    `json:"error_message"`
}

// Logger persists error entries.
type Logger interface {
	LogError(entry EmailError) error
	GetErrors(since time.Time) ([]EmailError, error)
	CleanupOldErrors(retentionDays int) error
}
