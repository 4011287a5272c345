package email

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altafino/imap-attachment-downloader/internal/types"
)

func testConfig() *types.Config {
	cfg := &types.Config{}
	cfg.Meta.ID = "test-account"
	cfg.Email.Protocols.IMAP.Enabled = true
	cfg.Email.Protocols.IMAP.Server = "imap.example.com"
	cfg.Email.Protocols.IMAP.Username = "user"
	return cfg
}

func TestAccountKey(t *testing.T) {
	svc := NewService(testConfig(), slog.Default())
	assert.Equal(t, "user@imap.example.com", svc.accountKey())

	cfg := &types.Config{}
	cfg.Email.Protocols.POP3.Server = "pop.example.com"
	cfg.Email.Protocols.POP3.Username = "popuser"
	svc = NewService(cfg, slog.Default())
	assert.Equal(t, "popuser@pop.example.com", svc.accountKey())
}

func TestSearchCriteriaFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Email.Search.Sender = "billing@vendor.com"
	cfg.Email.Search.Subject = "invoice"
	cfg.Email.Search.Since = "2024-01-01"
	cfg.Email.Search.Until = "2024-02-01"

	svc := NewService(cfg, slog.Default())
	criteria, err := svc.searchCriteria()
	require.NoError(t, err)

	assert.Equal(t, "billing@vendor.com", criteria.Sender)
	assert.Equal(t, "invoice", criteria.Subject)
	assert.Equal(t, 2024, criteria.Since.Year())
	assert.Equal(t, 2, int(criteria.Before.Month()))
}

func TestSearchCriteriaBadDate(t *testing.T) {
	cfg := testConfig()
	cfg.Email.Search.Since = "January 1st"

	svc := NewService(cfg, slog.Default())
	_, err := svc.searchCriteria()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.since")
}

func TestAllowedExtensions(t *testing.T) {
	cfg := testConfig()
	cfg.Email.Attachments.FileTypes = []string{"pdf"}
	cfg.Email.Attachments.AllowedTypes = []string{"TXT", ".csv", "  "}

	svc := NewService(cfg, slog.Default())
	assert.Equal(t, []string{".pdf", ".txt", ".csv"}, svc.allowedExtensions())

	cfg.Email.Attachments.FileTypes = nil
	cfg.Email.Attachments.AllowedTypes = nil
	assert.Nil(t, svc.allowedExtensions())
}

func TestBuildRenamer(t *testing.T) {
	cfg := testConfig()

	// Disabled renaming keeps original filenames
	svc := NewService(cfg, slog.Default())
	assert.Nil(t, svc.buildRenamer())

	cfg.Email.Rename.Enabled = true
	cfg.Email.Rename.TemplateKey = "date_filename"
	cfg.Email.Rename.ReplaceSpaces = true

	ren := svc.buildRenamer()
	require.NotNil(t, ren)
	got, err := ren.Apply("report v2.pdf", "", "", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "2024_05_01_report_v2.pdf", got)

	// An explicit pattern wins over the template key
	cfg.Email.Rename.Pattern = "{counter}_{filename}"
	ren = svc.buildRenamer()
	got, err = ren.Apply("a.txt", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "1_a.txt", got)
}

func TestCleanupErrorJournal(t *testing.T) {
	dir := t.TempDir()

	cfg := testConfig()
	cfg.Email.ErrorLogging.Enabled = true
	cfg.Email.ErrorLogging.StoragePath = dir
	cfg.Email.ErrorLogging.RetentionDays = 7

	stale := filepath.Join(dir, "errors_2020-01-01.jsonl")
	require.NoError(t, os.WriteFile(stale, []byte("{}\n"), 0644))
	fresh := filepath.Join(dir, "errors_"+time.Now().Format("2006-01-02")+".jsonl")
	require.NoError(t, os.WriteFile(fresh, []byte("{}\n"), 0644))

	svc := NewService(cfg, slog.Default())
	svc.cleanupErrorJournal()

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale journal file should be removed")
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "current journal file should survive")
}

func TestNewClientRequiresProtocol(t *testing.T) {
	cfg := &types.Config{}
	cfg.Meta.ID = "empty"

	svc := NewService(cfg, slog.Default())
	_, err := svc.newClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no email protocol enabled")
}
