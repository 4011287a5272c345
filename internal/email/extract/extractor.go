package extract

import (
	"bytes"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/DusanKasan/parsemail"
	"github.com/jhillyerd/enmime"

	"github.com/altafino/imap-attachment-downloader/internal/models"
)

// Extractor pulls attachments out of parsed email messages, optionally
// restricted to an allowed set of file extensions.
type Extractor struct {
	allowed map[string]struct{} // lowercase extensions with dot; nil allows all
	logger  *slog.Logger
}

// NewExtractor creates an extractor. allowedExtensions restricts results to
// the given lowercase extensions (e.g. ".pdf"); nil or empty allows all.
func NewExtractor(allowedExtensions []string, logger *slog.Logger) *Extractor {
	var allowed map[string]struct{}
	if len(allowedExtensions) > 0 {
		allowed = make(map[string]struct{}, len(allowedExtensions))
		for _, ext := range allowedExtensions {
			allowed[strings.ToLower(ext)] = struct{}{}
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{allowed: allowed, logger: logger}
}

// Extract returns all attachments of msg in MIME part order. Parts that
// are malformed, lack a filename, or fail the extension filter are
// skipped; a single bad part never aborts the extraction.
func (e *Extractor) Extract(msg *models.EmailMessage) []models.Attachment {
	if msg == nil {
		return nil
	}
	if msg.Root != nil {
		return e.extractParts(msg)
	}
	if len(msg.Raw) > 0 {
		return e.extractFallback(msg)
	}
	return nil
}

// extractParts walks the enmime part tree depth-first.
func (e *Extractor) extractParts(msg *models.EmailMessage) []models.Attachment {
	var attachments []models.Attachment

	var walk func(p *enmime.Part)
	walk = func(p *enmime.Part) {
		for ; p != nil; p = p.NextSibling {
			if a, ok := e.attachmentFromPart(p, msg); ok {
				attachments = append(attachments, a)
			}
			walk(p.FirstChild)
		}
	}
	walk(msg.Root)

	return attachments
}

func (e *Extractor) attachmentFromPart(p *enmime.Part, msg *models.EmailMessage) (models.Attachment, bool) {
	if !strings.Contains(strings.ToLower(p.Disposition), "attachment") {
		return models.Attachment{}, false
	}

	filename := strings.ToValidUTF8(p.FileName, "�")
	if filename == "" {
		return models.Attachment{}, false
	}

	if !e.isAllowedType(filename) {
		e.logger.Debug("skipping disallowed attachment type",
			"filename", filename,
			"uid", msg.UID)
		return models.Attachment{}, false
	}

	if p.Content == nil {
		e.logger.Debug("skipping attachment without decodable content",
			"filename", filename,
			"uid", msg.UID)
		return models.Attachment{}, false
	}

	return models.Attachment{
		Filename:     filename,
		ContentType:  p.ContentType,
		Size:         len(p.Content),
		Data:         p.Content,
		EmailSubject: msg.Subject,
		EmailSender:  msg.Sender,
		EmailDate:    msg.DateString(),
		EmailUID:     msg.UID,
	}, true
}

// extractFallback parses the raw message with parsemail when the primary
// parser could not build a part tree. parsemail classifies any part with
// a filename as an attachment, so its results are cross-checked against
// the dispositions declared in the raw part headers to drop inline parts.
func (e *Extractor) extractFallback(msg *models.EmailMessage) []models.Attachment {
	email, err := parsemail.Parse(bytes.NewReader(msg.Raw))
	if err != nil {
		e.logger.Debug("fallback parse failed, skipping message",
			"uid", msg.UID,
			"error", err)
		return nil
	}

	counts, verified := attachmentNameCounts(msg.Raw)

	var attachments []models.Attachment
	for _, a := range email.Attachments {
		filename := strings.ToValidUTF8(a.Filename, "�")
		if filename == "" || !e.isAllowedType(filename) {
			continue
		}
		if verified {
			if counts[filename] == 0 {
				e.logger.Debug("skipping part without attachment disposition",
					"filename", filename,
					"uid", msg.UID)
				continue
			}
			counts[filename]--
		}

		data, err := io.ReadAll(a.Data)
		if err != nil {
			e.logger.Debug("skipping unreadable attachment",
				"filename", filename,
				"uid", msg.UID,
				"error", err)
			continue
		}

		attachments = append(attachments, models.Attachment{
			Filename:     filename,
			ContentType:  a.ContentType,
			Size:         len(data),
			Data:         data,
			EmailSubject: msg.Subject,
			EmailSender:  msg.Sender,
			EmailDate:    msg.DateString(),
			EmailUID:     msg.UID,
		})
	}
	return attachments
}

// attachmentNameCounts scans the raw message's part headers and counts
// the filenames of parts that declare an attachment disposition. verified
// is false when the raw structure cannot be walked; the caller then has
// no disposition information to filter on.
func attachmentNameCounts(raw []byte) (map[string]int, bool) {
	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}

	counts := make(map[string]int)
	header := func(name string) string { return m.Header.Get(name) }
	if err := collectDispositions(header, m.Body, counts); err != nil {
		return nil, false
	}
	return counts, true
}

func collectDispositions(header func(string) string, body io.Reader, counts map[string]int) error {
	mediaType, params, err := mime.ParseMediaType(header("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := collectDispositions(part.Header.Get, part, counts); err != nil {
				return err
			}
		}
	}

	disposition := header("Content-Disposition")
	if !strings.Contains(strings.ToLower(disposition), "attachment") {
		return nil
	}
	if _, dparams, err := mime.ParseMediaType(disposition); err == nil {
		name := dparams["filename"]
		if decoded, err := (&mime.WordDecoder{}).DecodeHeader(name); err == nil {
			name = decoded
		}
		if name != "" {
			counts[name]++
		}
	}
	return nil
}

func (e *Extractor) isAllowedType(filename string) bool {
	if e.allowed == nil {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := e.allowed[ext]
	return ok
}

// ParseMessage parses a raw RFC 822 message into a part tree. It returns
// nil with no error for bodies enmime rejects outright; the extractor
// falls back to parsemail in that case.
func ParseMessage(raw []byte, logger *slog.Logger) (*enmime.Envelope, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		if logger != nil {
			logger.Debug("primary MIME parse failed", "error", err)
		}
		return nil, err
	}
	return env, nil
}
