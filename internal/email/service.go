package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/altafino/imap-attachment-downloader/internal/download"
	"github.com/altafino/imap-attachment-downloader/internal/email/extract"
	"github.com/altafino/imap-attachment-downloader/internal/errorlog"
	"github.com/altafino/imap-attachment-downloader/internal/models"
	"github.com/altafino/imap-attachment-downloader/internal/renamer"
	"github.com/altafino/imap-attachment-downloader/internal/tracking"
	"github.com/altafino/imap-attachment-downloader/internal/types"
)

// MailClient is the protocol-independent surface the service drives.
type MailClient interface {
	Connect(ctx context.Context) error
	Search(ctx context.Context, criteria models.SearchCriteria, progress FetchProgressFunc) ([]*models.EmailMessage, error)
	Close() error
}

// Service runs the fetch-extract-download pipeline for one account config.
type Service struct {
	config   *types.Config
	logger   *slog.Logger
	errorLog *errorlog.Manager
}

// NewService creates a service for the given account configuration
func NewService(config *types.Config, logger *slog.Logger) *Service {
	return &Service{
		config:   config,
		logger:   logger.With("config_id", config.Meta.ID),
		errorLog: errorlog.NewManager(config, logger),
	}
}

func (s *Service) newClient() (MailClient, error) {
	switch {
	case s.config.Email.Protocols.IMAP.Enabled:
		return NewIMAPClient(s.config, s.logger), nil
	case s.config.Email.Protocols.POP3.Enabled:
		return NewPOP3Client(s.config, s.logger), nil
	default:
		return nil, fmt.Errorf("no email protocol enabled for config %s", s.config.Meta.ID)
	}
}

func (s *Service) accountKey() string {
	if s.config.Email.Protocols.IMAP.Enabled {
		imapCfg := &s.config.Email.Protocols.IMAP
		return fmt.Sprintf("%s@%s", imapCfg.Username, imapCfg.Server)
	}
	popCfg := &s.config.Email.Protocols.POP3
	return fmt.Sprintf("%s@%s", popCfg.Username, popCfg.Server)
}

// FetchMessages connects to the configured mailbox and returns the
// messages matching the configured search criteria.
func (s *Service) FetchMessages(ctx context.Context) ([]*models.EmailMessage, error) {
	client, err := s.newClient()
	if err != nil {
		return nil, err
	}

	if err := client.Connect(ctx); err != nil {
		s.logError("", "", "connection", err)
		return nil, err
	}
	defer client.Close()

	criteria, err := s.searchCriteria()
	if err != nil {
		return nil, err
	}

	progress := func(current, total int) {
		s.logger.Debug("fetching message", "current", current, "total", total)
	}

	messages, err := client.Search(ctx, criteria, progress)
	if err != nil {
		s.logError("", "", "search", err)
		return messages, err
	}
	return messages, nil
}

// Run executes the full pipeline: fetch, skip already-processed messages,
// extract attachments and save them. It returns one result per attachment.
func (s *Service) Run(ctx context.Context) ([]models.DownloadResult, error) {
	messages, err := s.FetchMessages(ctx)
	if err != nil {
		return nil, err
	}

	tracker, err := s.openTracker()
	if err != nil {
		return nil, err
	}
	if tracker != nil {
		defer tracker.Close()
		messages, err = s.filterProcessed(tracker, messages)
		if err != nil {
			return nil, err
		}
	}

	if len(messages) == 0 {
		s.logger.Info("no new messages to process")
		return nil, nil
	}

	downloader, err := s.buildDownloader(ctx)
	if err != nil {
		return nil, err
	}

	progress := func(current, total int, filename string) {
		s.logger.Info("saving attachment", "current", current, "total", total, "filename", filename)
	}

	results := downloader.DownloadFromEmails(messages, progress, s.config.Email.Download.Parallel)

	for _, res := range results {
		if !res.Success {
			s.logError("", res.OriginalFilename, "download", fmt.Errorf("%s", res.Error))
		}
	}

	if tracker != nil {
		account := s.accountKey()
		for _, msg := range messages {
			if err := tracker.MarkDownloaded(account, msg.UID); err != nil {
				s.logger.Warn("failed to record processed message", "uid", msg.UID, "error", err)
			}
		}
		if days := s.config.Email.Tracking.RetentionDays; days > 0 {
			if err := tracker.Cleanup(days); err != nil {
				s.logger.Warn("tracking cleanup failed", "error", err)
			}
		}
	}

	s.cleanupErrorJournal()

	saved := 0
	for _, res := range results {
		if res.Success {
			saved++
		}
	}
	s.logger.Info("run complete", "messages", len(messages), "attachments", len(results), "saved", saved)

	return results, nil
}

// Summary fetches matching messages and reports what a run would save,
// without writing anything.
func (s *Service) Summary(ctx context.Context) (models.Summary, []models.Attachment, error) {
	messages, err := s.FetchMessages(ctx)
	if err != nil {
		return models.Summary{}, nil, err
	}

	extractor := s.buildExtractor()
	var attachments []models.Attachment
	for _, msg := range messages {
		attachments = append(attachments, extractor.Extract(msg)...)
	}

	summary := models.Summary{EmailCount: len(messages)}
	for _, att := range attachments {
		summary.AttachmentCount++
		summary.TotalSize += int64(att.Size)
	}
	return summary, attachments, nil
}

// ListFolders lists mailbox folders. IMAP only; POP3 has no folder concept.
func (s *Service) ListFolders(ctx context.Context) ([]string, error) {
	if !s.config.Email.Protocols.IMAP.Enabled {
		return nil, fmt.Errorf("folder listing requires IMAP")
	}

	client := NewIMAPClient(s.config, s.logger)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	defer client.Close()

	return client.ListFolders(ctx)
}

func (s *Service) openTracker() (*tracking.Tracker, error) {
	if !s.config.Email.Tracking.Enabled {
		return nil, nil
	}
	tracker, err := tracking.NewTracker(s.config.Email.Tracking.StoragePath, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open tracking store: %w", err)
	}
	return tracker, nil
}

func (s *Service) filterProcessed(tracker *tracking.Tracker, messages []*models.EmailMessage) ([]*models.EmailMessage, error) {
	account := s.accountKey()
	var fresh []*models.EmailMessage
	for _, msg := range messages {
		done, err := tracker.IsDownloaded(account, msg.UID)
		if err != nil {
			return nil, err
		}
		if done {
			s.logger.Debug("skipping already processed message", "uid", msg.UID)
			continue
		}
		fresh = append(fresh, msg)
	}
	return fresh, nil
}

func (s *Service) buildDownloader(ctx context.Context) (*download.Downloader, error) {
	storage, err := download.NewStorage(ctx, download.StorageConfig{
		Type:            download.StorageType(s.config.Storage.Type),
		Path:            s.config.Email.Attachments.StoragePath,
		MaxSize:         s.config.Email.Attachments.MaxSize,
		CredentialsFile: s.config.Storage.CredentialsFile,
		ParentFolderID:  s.config.Storage.ParentFolderID,
	}, s.logger)
	if err != nil {
		return nil, err
	}

	manager := download.NewManager(storage, s.buildRenamer(), s.config.Email.Download.MaxWorkers, s.logger)
	return download.NewDownloader(s.buildExtractor(), manager), nil
}

func (s *Service) buildExtractor() *extract.Extractor {
	return extract.NewExtractor(s.allowedExtensions(), s.logger)
}

func (s *Service) allowedExtensions() []string {
	attCfg := &s.config.Email.Attachments

	extensions := extract.ExtensionsForTypes(attCfg.FileTypes)
	for _, ext := range attCfg.AllowedTypes {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions = append(extensions, ext)
	}
	return extensions
}

// buildRenamer returns nil when renaming is disabled, keeping original
// filenames untouched.
func (s *Service) buildRenamer() *renamer.Renamer {
	renameCfg := &s.config.Email.Rename
	if !renameCfg.Enabled {
		return nil
	}

	pattern := renameCfg.Pattern
	if pattern == "" {
		pattern = renamer.FromTemplate(renameCfg.TemplateKey)
	}

	ren := renamer.New(pattern)
	options := renamer.DefaultOptions()
	options.ReplaceSpaces = renameCfg.ReplaceSpaces
	options.Lowercase = renameCfg.Lowercase
	if renameCfg.SpaceReplacement != "" {
		options.SpaceReplacement = renameCfg.SpaceReplacement
	}
	ren.SetOptions(options)
	return ren
}

func (s *Service) searchCriteria() (models.SearchCriteria, error) {
	searchCfg := &s.config.Email.Search

	criteria := models.SearchCriteria{
		Sender:  searchCfg.Sender,
		Subject: searchCfg.Subject,
	}

	var err error
	if searchCfg.Since != "" {
		criteria.Since, err = parseDate(searchCfg.Since)
		if err != nil {
			return criteria, fmt.Errorf("invalid search.since date %q: %w", searchCfg.Since, err)
		}
	}
	if searchCfg.Until != "" {
		criteria.Before, err = parseDate(searchCfg.Until)
		if err != nil {
			return criteria, fmt.Errorf("invalid search.until date %q: %w", searchCfg.Until, err)
		}
	}
	return criteria, nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// cleanupErrorJournal expires old error journal entries after each run,
// mirroring the tracking retention cleanup.
func (s *Service) cleanupErrorJournal() {
	days := s.config.Email.ErrorLogging.RetentionDays
	if days <= 0 {
		return
	}
	if err := s.errorLog.CleanupOldErrors(days); err != nil {
		s.logger.Warn("error journal cleanup failed", "error", err)
	}
}

func (s *Service) logError(uid, filename, category string, err error) {
	s.errorLog.LogError(errorlog.EmailError{
		ConfigID:     s.config.Meta.ID,
		Account:      s.accountKey(),
		MessageUID:   uid,
		Filename:     filename,
		Category:     category,
		ErrorMessage: err.Error(),
	})
}
