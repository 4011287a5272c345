package models

import (
	"time"

	"github.com/jhillyerd/enmime"
)

// SearchCriteria narrows a mailbox search. Zero-value fields are ignored;
// an all-zero criteria matches every message.
type SearchCriteria struct {
	Sender  string
	Subject string
	Since   time.Time
	Before  time.Time
}

// EmailMessage is a fetched message with decoded metadata and its parsed
// MIME tree. Root is nil when the primary parser failed on the raw body;
// Raw is then the only way to get at the attachments.
type EmailMessage struct {
	UID     string
	Subject string
	Sender  string
	Date    time.Time
	Root    *enmime.Part
	Raw     []byte
}

// DateString returns the message date as YYYY-MM-DD, or "" when unknown.
func (m *EmailMessage) DateString() string {
	if m.Date.IsZero() {
		return ""
	}
	return m.Date.Format("2006-01-02")
}

// Attachment is a single extracted attachment together with the metadata
// of the email it came from. Immutable once extracted; Size always equals
// len(Data).
type Attachment struct {
	Filename     string
	ContentType  string
	Size         int
	Data         []byte
	EmailSubject string
	EmailSender  string
	EmailDate    string // YYYY-MM-DD
	EmailUID     string
}

// DownloadResult records the outcome of one attempted save. On failure
// SavedFilename and Filepath are empty and Error carries the cause.
type DownloadResult struct {
	Success          bool
	OriginalFilename string
	SavedFilename    string
	Filepath         string
	Size             int
	Error            string
}

// Summary is a dry-run count of what a download would touch.
type Summary struct {
	EmailCount      int
	AttachmentCount int
	TotalSize       int64
}
