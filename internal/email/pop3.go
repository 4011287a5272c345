package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/knadh/go-pop3"

	"github.com/altafino/imap-attachment-downloader/internal/email/extract"
	"github.com/altafino/imap-attachment-downloader/internal/models"
	"github.com/altafino/imap-attachment-downloader/internal/types"
)

// POP3Client handles POP3 mailbox operations. POP3 has no server-side
// search, so criteria are applied client-side after download.
type POP3Client struct {
	config *types.Config
	client *pop3.Client
	conn   *pop3.Conn
	logger *slog.Logger
}

// NewPOP3Client creates a new POP3 client
func NewPOP3Client(config *types.Config, logger *slog.Logger) *POP3Client {
	return &POP3Client{
		config: config,
		logger: logger,
	}
}

// Connect establishes a connection to the POP3 server and authenticates
func (c *POP3Client) Connect(ctx context.Context) error {
	popCfg := &c.config.Email.Protocols.POP3

	c.logger.Info("connecting to POP3 server",
		"server", popCfg.Server,
		"port", popCfg.DefaultPort,
		"tls_enabled", popCfg.Security.TLS.Enabled,
		"username", popCfg.Username,
	)

	c.client = pop3.New(pop3.Opt{
		Host:          popCfg.Server,
		Port:          popCfg.DefaultPort,
		TLSEnabled:    popCfg.Security.TLS.Enabled,
		TLSSkipVerify: !popCfg.Security.TLS.VerifyCert,
	})

	conn, err := c.client.NewConn()
	if err != nil {
		return fmt.Errorf("failed to connect to POP3 server: %w", err)
	}
	c.conn = conn

	if err := c.conn.Auth(popCfg.Username, popCfg.Password); err != nil {
		c.conn.Quit()
		c.conn = nil
		return fmt.Errorf("POP3 authentication failed: %w", err)
	}

	c.logger.Info("successfully connected to POP3 server and logged in")
	return nil
}

// Search downloads every message in the maildrop and keeps the ones
// matching the criteria. Messages that fail to retrieve or parse are
// skipped, not fatal.
func (c *POP3Client) Search(ctx context.Context, criteria models.SearchCriteria, progress FetchProgressFunc) ([]*models.EmailMessage, error) {
	count, _, err := c.conn.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get mailbox status: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	ids, err := c.conn.List(0)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	total := len(ids)
	var result []*models.EmailMessage
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if progress != nil {
			progress(i+1, total)
		}

		buf, err := c.conn.RetrRaw(id.ID)
		if err != nil {
			c.logger.Warn("skipping message", "id", id.ID, "error", err)
			continue
		}
		raw := buf.Bytes()

		msg := &models.EmailMessage{
			UID: fmt.Sprintf("%d", id.ID),
			Raw: raw,
		}

		env, err := extract.ParseMessage(raw, c.logger)
		if err == nil {
			msg.Root = env.Root
			msg.Subject = env.GetHeader("Subject")
			msg.Sender = env.GetHeader("From")
			if date, derr := mail.ParseDate(env.GetHeader("Date")); derr == nil {
				msg.Date = date
			}
		}

		if !matchesCriteria(msg, criteria) {
			continue
		}
		result = append(result, msg)
	}

	c.logger.Info("fetched messages", "count", len(result), "scanned", total)
	return result, nil
}

// matchesCriteria applies sender/subject substring matching and the date
// window. A message without a parseable date is rejected when a date
// bound is set.
func matchesCriteria(msg *models.EmailMessage, criteria models.SearchCriteria) bool {
	if criteria.Sender != "" && !strings.Contains(strings.ToLower(msg.Sender), strings.ToLower(criteria.Sender)) {
		return false
	}
	if criteria.Subject != "" && !strings.Contains(strings.ToLower(msg.Subject), strings.ToLower(criteria.Subject)) {
		return false
	}
	if !criteria.Since.IsZero() {
		if msg.Date.IsZero() || msg.Date.Before(criteria.Since) {
			return false
		}
	}
	if !criteria.Before.IsZero() {
		if msg.Date.IsZero() || !msg.Date.Before(criteria.Before) {
			return false
		}
	}
	return true
}

// Close terminates the POP3 connection
func (c *POP3Client) Close() error {
	if c.conn != nil {
		return c.conn.Quit()
	}
	return nil
}
