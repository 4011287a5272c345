package download

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/altafino/imap-attachment-downloader/internal/models"
	"github.com/altafino/imap-attachment-downloader/internal/renamer"
)

// DefaultMaxWorkers bounds the parallel download pool.
const DefaultMaxWorkers = 4

// ProgressFunc reports download progress. current is 1-based. In
// sequential mode it is called before each save in input order; in
// parallel mode it is called as saves complete, from worker goroutines.
type ProgressFunc func(current, total int, filename string)

// Manager saves attachments through a storage backend, optionally
// renaming them first.
type Manager struct {
	storage    Storage
	renamer    *renamer.Renamer
	maxWorkers int
	logger     *slog.Logger
}

// NewManager creates a download manager. ren may be nil to keep original
// filenames. maxWorkers <= 0 falls back to DefaultMaxWorkers.
func NewManager(storage Storage, ren *renamer.Renamer, maxWorkers int, logger *slog.Logger) *Manager {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		storage:    storage,
		renamer:    ren,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// SaveAttachment writes one attachment and reports the outcome. Any
// failure, including a bad rename pattern, comes back as a failed result
// rather than an error.
func (m *Manager) SaveAttachment(att models.Attachment) models.DownloadResult {
	filename := att.Filename

	if m.renamer != nil {
		renamed, err := m.renamer.Apply(filename, att.EmailSender, att.EmailSubject, att.EmailDate)
		if err != nil {
			return failure(att, err.Error())
		}
		filename = renamed
	}

	filename = sanitizeFilename(filename)

	path, err := m.storage.Save(filename, att.Data)
	if err != nil {
		m.logger.Error("failed to save attachment",
			"filename", att.Filename,
			"error", err)
		return failure(att, err.Error())
	}

	return models.DownloadResult{
		Success:          true,
		OriginalFilename: att.Filename,
		SavedFilename:    filepath.Base(path),
		Filepath:         path,
		Size:             att.Size,
	}
}

// DownloadBatch saves all attachments and returns one result each. With
// parallel set and more than one attachment the saves run on a bounded
// worker pool and result order is unspecified; otherwise saves happen
// sequentially in input order.
func (m *Manager) DownloadBatch(attachments []models.Attachment, progress ProgressFunc, parallel bool) []models.DownloadResult {
	total := len(attachments)
	if total == 0 {
		return nil
	}

	if !parallel || total <= 1 {
		results := make([]models.DownloadResult, 0, total)
		for i, att := range attachments {
			if progress != nil {
				progress(i+1, total, att.Filename)
			}
			results = append(results, m.SaveAttachment(att))
		}
		return results
	}

	jobs := make(chan models.Attachment)
	resultCh := make(chan models.DownloadResult, total)

	workers := m.maxWorkers
	if workers > total {
		workers = total
	}

	var mu sync.Mutex
	completed := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for att := range jobs {
				result := m.SaveAttachment(att)

				// Serialize callbacks so current is strictly increasing
				mu.Lock()
				completed++
				if progress != nil {
					progress(completed, total, att.Filename)
				}
				mu.Unlock()

				resultCh <- result
			}
		}()
	}

	for _, att := range attachments {
		jobs <- att
	}
	close(jobs)
	wg.Wait()
	close(resultCh)

	results := make([]models.DownloadResult, 0, total)
	for result := range resultCh {
		results = append(results, result)
	}
	return results
}

func failure(att models.Attachment, msg string) models.DownloadResult {
	return models.DownloadResult{
		Success:          false,
		OriginalFilename: att.Filename,
		Error:            msg,
	}
}

// sanitizeFilename replaces characters that are invalid on common
// filesystems. Slashes are replaced rather than split on, so a name like
// "a/b.txt" saves as "a_b.txt" instead of silently dropping the prefix.
func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", "_",
		">", "_",
		":", "_",
		"\"", "_",
		"/", "_",
		"\\", "_",
		"|", "_",
		"?", "_",
		"*", "_",
	)
	return strings.TrimSpace(replacer.Replace(filename))
}
