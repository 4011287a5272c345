package errorlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileLogger appends entries to one JSON-lines file per day under a
// base directory.
type FileLogger struct {
	dir string
	mu  sync.Mutex
}

// NewFileLogger creates the journal directory if needed.
func NewFileLogger(dir string) (*FileLogger, error) {
	if dir == "" {
		dir = "errorlog"
	}
	dir = os.ExpandEnv(dir)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create error log directory: %w", err)
	}
	return &FileLogger{dir: dir}, nil
}

func (f *FileLogger) fileFor(t time.Time) string {
	return filepath.Join(f.dir, fmt.Sprintf("errors_%s.jsonl", t.Format("2006-01-02")))
}

// LogError appends the entry to the current day's file, assigning an ID
// if the caller did not set one.
func (f *FileLogger) LogError(entry EmailError) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode error entry: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.fileFor(entry.Timestamp), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open error log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write error entry: %w", err)
	}
	return nil
}

// GetErrors reads all daily files and returns entries recorded at or
// after since, oldest first.
func (f *FileLogger) GetErrors(since time.Time) ([]EmailError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(f.dir, "errors_*.jsonl"))
	if err != nil {
		return nil, err
	}

	var entries []EmailError
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read error log file %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			var entry EmailError
			if err := json.Unmarshal([]byte(line), &entry); err != nil {
				continue // tolerate a torn write at the tail
			}
			if entry.Timestamp.Before(since) {
				continue
			}
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// CleanupOldErrors deletes daily files older than the retention window.
func (f *FileLogger) CleanupOldErrors(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Format("2006-01-02")

	f.mu.Lock()
	defer f.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(f.dir, "errors_*.jsonl"))
	if err != nil {
		return err
	}
	for _, path := range files {
		name := filepath.Base(path)
		day := strings.TrimSuffix(strings.TrimPrefix(name, "errors_"), ".jsonl")
		if day < cutoff {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove old error log %s: %w", path, err)
			}
		}
	}
	return nil
}
