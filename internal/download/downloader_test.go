package download

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altafino/imap-attachment-downloader/internal/email/extract"
	"github.com/altafino/imap-attachment-downloader/internal/models"
)

const downloaderTestMessage = "From: carol@example.com\r\n" +
	"Date: Tue, 16 Jan 2024 09:00:00 +0000\r\n" +
	"Subject: Two files\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Hi\r\n" +
	"--XYZ\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"one.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"b25l\r\n" +
	"--XYZ\r\n" +
	"Content-Type: application/zip\r\n" +
	"Content-Disposition: attachment; filename=\"two.zip\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"dHdvIQ==\r\n" +
	"--XYZ--\r\n"

func parseDownloaderMessage(t *testing.T, uid string) *models.EmailMessage {
	t.Helper()

	env, err := extract.ParseMessage([]byte(downloaderTestMessage), slog.Default())
	require.NoError(t, err)

	return &models.EmailMessage{
		UID:     uid,
		Subject: "Two files",
		Sender:  "carol@example.com",
		Root:    env.Root,
	}
}

func newTestDownloader(t *testing.T) (*Downloader, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "out")
	storage := NewFileStorage(dir, 0, slog.Default())
	manager := NewManager(storage, nil, 0, slog.Default())
	extractor := extract.NewExtractor(nil, slog.Default())
	return NewDownloader(extractor, manager), dir
}

func TestDownloadFromEmails(t *testing.T) {
	d, dir := newTestDownloader(t)

	messages := []*models.EmailMessage{
		parseDownloaderMessage(t, "1"),
		parseDownloaderMessage(t, "2"),
	}

	results := d.DownloadFromEmails(messages, nil, false)

	require.Len(t, results, 4)
	for _, res := range results {
		assert.True(t, res.Success, res.Error)
	}

	// Duplicate names from the second message get numeric suffixes
	for _, name := range []string{"one.pdf", "two.zip", "one_1.pdf", "two_1.zip"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "one.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestDownloadFromEmailsNothingToDo(t *testing.T) {
	d, dir := newTestDownloader(t)

	results := d.DownloadFromEmails(nil, nil, true)
	assert.Nil(t, results)

	results = d.DownloadFromEmails([]*models.EmailMessage{{UID: "9"}}, nil, true)
	assert.Nil(t, results)

	// No attachments means the output directory is never created
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestSummary(t *testing.T) {
	d, dir := newTestDownloader(t)

	messages := []*models.EmailMessage{
		parseDownloaderMessage(t, "1"),
		parseDownloaderMessage(t, "2"),
		{UID: "3"}, // no attachments
	}

	summary := d.Summary(messages)

	assert.Equal(t, 3, summary.EmailCount)
	assert.Equal(t, 4, summary.AttachmentCount)
	// "one" is 3 bytes, "two!" is 4, twice each
	assert.Equal(t, int64(14), summary.TotalSize)

	// Summary is a pure read
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
