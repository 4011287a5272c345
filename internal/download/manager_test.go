package download

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altafino/imap-attachment-downloader/internal/models"
	"github.com/altafino/imap-attachment-downloader/internal/renamer"
)

func newTestManager(t *testing.T, ren *renamer.Renamer) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	storage := NewFileStorage(dir, 0, slog.Default())
	return NewManager(storage, ren, 0, slog.Default()), dir
}

func testAttachment(name string, data []byte) models.Attachment {
	return models.Attachment{
		Filename: name,
		Size:     len(data),
		Data:     data,
	}
}

func TestSaveAttachmentRoundTrip(t *testing.T) {
	m, _ := newTestManager(t, nil)

	payload := []byte("binary payload \x00\x01\x02")
	result := m.SaveAttachment(testAttachment("data.bin", payload))

	require.True(t, result.Success, "save failed: %s", result.Error)
	assert.Equal(t, "data.bin", result.OriginalFilename)
	assert.Equal(t, "data.bin", result.SavedFilename)

	written, err := os.ReadFile(result.Filepath)
	require.NoError(t, err)
	assert.Equal(t, payload, written)
}

func TestSaveAttachmentSanitizesName(t *testing.T) {
	m, dir := newTestManager(t, nil)

	result := m.SaveAttachment(testAttachment(`bad:na*me?.txt`, []byte("x")))

	require.True(t, result.Success)
	assert.Equal(t, "bad_na_me_.txt", result.SavedFilename)
	assert.Equal(t, filepath.Join(dir, "bad_na_me_.txt"), result.Filepath)

	// Path separators become underscores; the prefix is kept, not split off
	result = m.SaveAttachment(testAttachment("a/b.txt", []byte("y")))
	require.True(t, result.Success)
	assert.Equal(t, "a_b.txt", result.SavedFilename)
	assert.Equal(t, filepath.Join(dir, "a_b.txt"), result.Filepath)
}

func TestSaveAttachmentWithRenamer(t *testing.T) {
	ren := renamer.New("{date}_{sender}_{filename}")
	m, _ := newTestManager(t, ren)

	att := testAttachment("Invoice.pdf", []byte("pdf"))
	att.EmailSender = "Jane <jane@x.com>"
	att.EmailDate = "2024-03-02"

	result := m.SaveAttachment(att)

	require.True(t, result.Success)
	assert.Equal(t, "2024_03_02_Jane_Invoice.pdf", result.SavedFilename)
	assert.Equal(t, "Invoice.pdf", result.OriginalFilename)
}

func TestSaveAttachmentBadPattern(t *testing.T) {
	ren := renamer.New("{nope}")
	m, dir := newTestManager(t, ren)

	result := m.SaveAttachment(testAttachment("a.txt", []byte("x")))

	assert.False(t, result.Success)
	assert.Empty(t, result.SavedFilename)
	assert.Empty(t, result.Filepath)
	assert.Contains(t, result.Error, "{nope}")

	// Nothing must be written on failure
	entries, err := os.ReadDir(dir)
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestSaveAttachmentCollision(t *testing.T) {
	m, dir := newTestManager(t, nil)

	first := m.SaveAttachment(testAttachment("same.txt", []byte("one")))
	second := m.SaveAttachment(testAttachment("same.txt", []byte("two")))
	third := m.SaveAttachment(testAttachment("same.txt", []byte("three")))

	require.True(t, first.Success)
	require.True(t, second.Success)
	require.True(t, third.Success)

	assert.Equal(t, "same.txt", first.SavedFilename)
	assert.Equal(t, "same_1.txt", second.SavedFilename)
	assert.Equal(t, "same_2.txt", third.SavedFilename)

	for name, want := range map[string]string{
		"same.txt":   "one",
		"same_1.txt": "two",
		"same_2.txt": "three",
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestDownloadBatchSequentialProgress(t *testing.T) {
	m, _ := newTestManager(t, nil)

	var attachments []models.Attachment
	for i := 0; i < 5; i++ {
		attachments = append(attachments, testAttachment(fmt.Sprintf("file%d.txt", i), []byte("x")))
	}

	type call struct {
		current, total int
		filename       string
	}
	var calls []call
	progress := func(current, total int, filename string) {
		calls = append(calls, call{current, total, filename})
	}

	results := m.DownloadBatch(attachments, progress, false)

	require.Len(t, results, 5)
	require.Len(t, calls, 5)
	for i, c := range calls {
		assert.Equal(t, i+1, c.current)
		assert.Equal(t, 5, c.total)
		assert.Equal(t, attachments[i].Filename, c.filename)
	}
	for i, res := range results {
		assert.True(t, res.Success)
		assert.Equal(t, attachments[i].Filename, res.OriginalFilename)
	}
}

func TestDownloadBatchParallel(t *testing.T) {
	m, dir := newTestManager(t, nil)

	var attachments []models.Attachment
	for i := 0; i < 8; i++ {
		attachments = append(attachments, testAttachment(fmt.Sprintf("par%d.txt", i), []byte("x")))
	}

	var mu sync.Mutex
	var seen []int
	progress := func(current, total int, filename string) {
		mu.Lock()
		seen = append(seen, current)
		mu.Unlock()
		assert.Equal(t, 8, total)
	}

	results := m.DownloadBatch(attachments, progress, true)

	require.Len(t, results, 8)
	for _, res := range results {
		assert.True(t, res.Success, res.Error)
	}

	// Callbacks are serialized, so current must be strictly 1..8
	require.Len(t, seen, 8)
	assert.True(t, sort.IntsAreSorted(seen))
	assert.Equal(t, 1, seen[0])
	assert.Equal(t, 8, seen[7])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}

func TestDownloadBatchEmpty(t *testing.T) {
	m, _ := newTestManager(t, nil)
	assert.Nil(t, m.DownloadBatch(nil, nil, true))
	assert.Nil(t, m.DownloadBatch([]models.Attachment{}, nil, false))
}

func TestDownloadBatchContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(dir, 4, slog.Default()) // 4 byte limit
	m := NewManager(storage, nil, 0, slog.Default())

	attachments := []models.Attachment{
		testAttachment("small.txt", []byte("ok")),
		testAttachment("big.txt", []byte("far too large")),
		testAttachment("small2.txt", []byte("ok2")),
	}

	results := m.DownloadBatch(attachments, nil, false)

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "exceeds maximum")
	assert.True(t, results[2].Success)
}
