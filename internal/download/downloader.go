package download

import (
	"github.com/altafino/imap-attachment-downloader/internal/email/extract"
	"github.com/altafino/imap-attachment-downloader/internal/models"
)

// Downloader combines attachment extraction with batch saving.
type Downloader struct {
	extractor *extract.Extractor
	manager   *Manager
}

// NewDownloader wires an extractor and a manager together.
func NewDownloader(extractor *extract.Extractor, manager *Manager) *Downloader {
	return &Downloader{extractor: extractor, manager: manager}
}

// DownloadFromEmails extracts every attachment of every message, in
// message order, and saves the whole batch. When no message carries an
// attachment nothing is written and no workers are started.
func (d *Downloader) DownloadFromEmails(messages []*models.EmailMessage, progress ProgressFunc, parallel bool) []models.DownloadResult {
	var all []models.Attachment
	for _, msg := range messages {
		all = append(all, d.extractor.Extract(msg)...)
	}

	if len(all) == 0 {
		return nil
	}

	return d.manager.DownloadBatch(all, progress, parallel)
}

// Summary counts what DownloadFromEmails would save, without writing.
func (d *Downloader) Summary(messages []*models.EmailMessage) models.Summary {
	s := models.Summary{EmailCount: len(messages)}
	for _, msg := range messages {
		for _, att := range d.extractor.Extract(msg) {
			s.AttachmentCount++
			s.TotalSize += int64(att.Size)
		}
	}
	return s
}
