package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/altafino/imap-attachment-downloader/internal/email/extract"
	"github.com/altafino/imap-attachment-downloader/internal/models"
	"github.com/altafino/imap-attachment-downloader/internal/oauth2"
	"github.com/altafino/imap-attachment-downloader/internal/types"
)

// FetchProgressFunc reports message fetch progress, 1-based.
type FetchProgressFunc func(current, total int)

// IMAPClient handles IMAP mailbox operations
type IMAPClient struct {
	config *types.Config
	client *client.Client
	logger *slog.Logger
}

// NewIMAPClient creates a new IMAP client
func NewIMAPClient(config *types.Config, logger *slog.Logger) *IMAPClient {
	return &IMAPClient{
		config: config,
		logger: logger,
	}
}

// Connect establishes a connection to the IMAP server and authenticates
func (c *IMAPClient) Connect(ctx context.Context) error {
	imapCfg := &c.config.Email.Protocols.IMAP
	server := fmt.Sprintf("%s:%d", imapCfg.Server, imapCfg.DefaultPort)

	c.logger.Info("connecting to IMAP server",
		"server", imapCfg.Server,
		"port", imapCfg.DefaultPort,
		"tls_enabled", imapCfg.Security.TLS.Enabled,
		"username", imapCfg.Username,
	)

	var err error

	// For port 143, always use plain connection first, then STARTTLS
	if imapCfg.DefaultPort == 143 {
		c.client, err = client.Dial(server)
		if err != nil {
			return fmt.Errorf("failed to connect to IMAP server: %w", err)
		}

		if imapCfg.Security.TLS.Enabled {
			tlsConfig := &tls.Config{
				ServerName:         imapCfg.Server,
				MinVersion:         tls.VersionTLS12,
				InsecureSkipVerify: !imapCfg.Security.TLS.VerifyCert,
			}
			if err := c.client.StartTLS(tlsConfig); err != nil {
				c.logger.Warn("STARTTLS failed, continuing with plain connection", "error", err)
			}
		}
	} else if imapCfg.Security.TLS.Enabled {
		tlsConfig := &tls.Config{
			ServerName:         imapCfg.Server,
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: !imapCfg.Security.TLS.VerifyCert,
		}
		c.client, err = client.DialTLS(server, tlsConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to IMAP server: %w", err)
		}
	} else {
		c.client, err = client.Dial(server)
		if err != nil {
			return fmt.Errorf("failed to connect to IMAP server: %w", err)
		}
	}

	if c.config.Email.DefaultTimeout > 0 {
		c.client.Timeout = time.Duration(c.config.Email.DefaultTimeout) * time.Second
	}

	if err := c.login(ctx); err != nil {
		return err
	}

	c.logger.Info("successfully connected to IMAP server and logged in")
	return nil
}

func (c *IMAPClient) login(ctx context.Context) error {
	imapCfg := &c.config.Email.Protocols.IMAP

	if imapCfg.Security.OAuth2.Enabled {
		token, err := c.accessToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to obtain OAuth2 token: %w", err)
		}
		if err := c.client.Authenticate(oauth2.NewXOAUTH2Client(imapCfg.Username, token)); err != nil {
			return fmt.Errorf("XOAUTH2 authentication failed: %w", err)
		}
		return nil
	}

	if err := c.client.Login(imapCfg.Username, imapCfg.Password); err != nil {
		return fmt.Errorf("IMAP login failed: %w", err)
	}
	return nil
}

func (c *IMAPClient) accessToken(ctx context.Context) (string, error) {
	oauthCfg := &c.config.Email.Protocols.IMAP.Security.OAuth2

	providerCfg, err := oauth2.GetProviderConfig(
		oauthCfg.Provider,
		oauthCfg.ClientID,
		oauthCfg.ClientSecret,
		oauth2.LocalRedirectURL,
	)
	if err != nil {
		return "", err
	}

	accountID := fmt.Sprintf("%s_%s", c.config.Meta.ID, c.config.Email.Protocols.IMAP.Username)
	tm, err := oauth2.NewTokenManager(providerCfg, oauthCfg.TokenStoragePath, accountID, c.logger)
	if err != nil {
		return "", err
	}

	return tm.GetAccessToken(ctx)
}

// BuildSearchCriteria converts domain criteria to the IMAP wire form.
// Empty criteria produce an unrestricted search (ALL).
func BuildSearchCriteria(sc models.SearchCriteria) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()

	if sc.Sender != "" {
		criteria.Header.Add("From", sc.Sender)
	}
	if sc.Subject != "" {
		criteria.Header.Add("Subject", sc.Subject)
	}
	if !sc.Since.IsZero() {
		criteria.Since = sc.Since
	}
	if !sc.Before.IsZero() {
		criteria.Before = sc.Before
	}

	return criteria
}

// Search selects the configured folder, runs a UID search with the given
// criteria and fetches each matching message in full. Messages that fail
// to fetch or parse are skipped, not fatal.
func (c *IMAPClient) Search(ctx context.Context, criteria models.SearchCriteria, progress FetchProgressFunc) ([]*models.EmailMessage, error) {
	folder := c.config.Email.Protocols.IMAP.Folder
	if folder == "" {
		folder = "INBOX"
	}

	if _, err := c.client.Select(folder, true); err != nil {
		return nil, fmt.Errorf("cannot access folder %q: %w", folder, err)
	}

	uids, err := c.client.UidSearch(BuildSearchCriteria(criteria))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	if batch := c.config.Email.Protocols.IMAP.BatchSize; batch > 0 && len(uids) > batch {
		uids = uids[len(uids)-batch:]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchRFC822, imap.FetchUid}
	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.client.UidFetch(seqSet, items, messages)
	}()

	total := len(uids)
	var result []*models.EmailMessage
	i := 0
	for msg := range messages {
		i++
		if progress != nil {
			progress(i, total)
		}

		parsed, err := c.parseMessage(msg)
		if err != nil {
			c.logger.Warn("skipping message", "uid", msg.Uid, "error", err)
			continue
		}
		result = append(result, parsed)
	}

	if err := <-done; err != nil {
		return result, fmt.Errorf("fetch failed: %w", err)
	}

	c.logger.Info("fetched messages", "count", len(result), "folder", folder)
	return result, nil
}

func (c *IMAPClient) parseMessage(msg *imap.Message) (*models.EmailMessage, error) {
	var body []byte
	for _, literal := range msg.Body {
		b, err := io.ReadAll(literal)
		if err != nil {
			return nil, fmt.Errorf("failed to read message body: %w", err)
		}
		body = b
		break // We only need one body part
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty message body")
	}

	result := &models.EmailMessage{
		UID: fmt.Sprintf("%d", msg.Uid),
		Raw: body,
	}

	if msg.Envelope != nil {
		result.Subject = decodeHeader(msg.Envelope.Subject)
		result.Date = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			result.Sender = formatAddress(msg.Envelope.From[0])
		}
	}

	env, err := extract.ParseMessage(body, c.logger)
	if err == nil {
		result.Root = env.Root
		// Prefer parsed headers when the envelope came back empty
		if result.Subject == "" {
			result.Subject = env.GetHeader("Subject")
		}
		if result.Sender == "" {
			result.Sender = env.GetHeader("From")
		}
	}

	return result, nil
}

// ListFolders returns the names of all folders in the mailbox.
func (c *IMAPClient) ListFolders(ctx context.Context) ([]string, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.client.List("", "*", mailboxes)
	}()

	var names []string
	for m := range mailboxes {
		names = append(names, m.Name)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return names, nil
}

// Close terminates the IMAP connection
func (c *IMAPClient) Close() error {
	if c.client != nil {
		c.client.Logout()
		return c.client.Close()
	}
	return nil
}

// decodeHeader decodes RFC 2047 encoded-word syntax in header values
func decodeHeader(value string) string {
	if value == "" {
		return ""
	}
	decoder := mime.WordDecoder{}
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// formatAddress renders an IMAP envelope address as "Name <box@host>".
func formatAddress(addr *imap.Address) string {
	address := addr.MailboxName + "@" + addr.HostName
	name := decodeHeader(addr.PersonalName)
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}
