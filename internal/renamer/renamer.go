package renamer

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// Per-field length limits applied during sanitization.
const (
	maxFilenameLen = 50
	maxSenderLen   = 20
	maxSubjectLen  = 30
)

// placeholders recognized inside a pattern
var placeholders = map[string]struct{}{
	"date":     {},
	"sender":   {},
	"subject":  {},
	"filename": {},
	"counter":  {},
}

// Options control how name components are normalized.
type Options struct {
	ReplaceSpaces    bool
	Lowercase        bool
	SpaceReplacement string
}

// DefaultOptions matches the behavior users expect out of the box:
// whitespace runs become underscores, case is preserved.
func DefaultOptions() Options {
	return Options{
		ReplaceSpaces:    true,
		SpaceReplacement: "_",
	}
}

// Renamer generates filenames from a placeholder pattern such as
// "{date}_{sender}_{filename}". Each instance owns a counter that
// increments once per Apply call; instances are safe for concurrent use.
type Renamer struct {
	pattern string
	opts    Options

	mu      sync.Mutex
	counter int
}

// New creates a renamer for the given pattern with default options.
func New(pattern string) *Renamer {
	if pattern == "" {
		pattern = "{filename}"
	}
	return &Renamer{
		pattern: pattern,
		opts:    DefaultOptions(),
	}
}

// SetOptions replaces the normalization options.
func (r *Renamer) SetOptions(opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = opts
}

// ResetCounter sets the {counter} value back to zero.
func (r *Renamer) ResetCounter() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter = 0
}

// Apply generates a new filename from the original name and the email
// metadata. The extension of the original filename is preserved and
// appended after the pattern is expanded. A pattern referencing an
// unknown placeholder is a configuration mistake and returns an error.
func (r *Renamer) Apply(filename, sender, subject, date string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	senderClean := r.sanitize(extractSenderName(sender), maxSenderLen)
	subjectClean := r.sanitize(subject, maxSubjectLen)
	stemClean := r.sanitize(stem, maxFilenameLen)

	// The counter advances on every call, whether or not the pattern
	// uses it, so numbering stays aligned with the attachment sequence.
	r.counter++

	if date == "" {
		date = "nodate"
	}
	if senderClean == "" {
		senderClean = "unknown"
	}
	if subjectClean == "" {
		subjectClean = "nosubject"
	}

	result, err := expand(r.pattern, map[string]string{
		"date":     date,
		"sender":   senderClean,
		"subject":  subjectClean,
		"filename": stemClean,
		"counter":  strconv.Itoa(r.counter),
	})
	if err != nil {
		return "", err
	}

	result = collapseSeparators(result)
	result = strings.Trim(result, "_.- ")

	if r.opts.Lowercase {
		result = strings.ToLower(result)
		ext = strings.ToLower(ext)
	}

	return result + ext, nil
}

// expand substitutes {name} tokens from values, rejecting unknown names.
func expand(pattern string, values map[string]string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		open := strings.IndexByte(pattern[i:], '{')
		if open == -1 {
			b.WriteString(pattern[i:])
			break
		}
		open += i
		b.WriteString(pattern[i:open])

		close := strings.IndexByte(pattern[open:], '}')
		if close == -1 {
			// Unterminated brace, keep it literally
			b.WriteString(pattern[open:])
			break
		}
		close += open

		name := pattern[open+1 : close]
		if _, ok := placeholders[name]; !ok {
			return "", fmt.Errorf("unknown placeholder {%s} in pattern %q", name, pattern)
		}
		b.WriteString(values[name])
		i = close + 1
	}
	return b.String(), nil
}

// extractSenderName pulls a short human-readable name out of a From value.
func extractSenderName(sender string) string {
	if sender == "" {
		return "unknown"
	}

	// "Name <email>" or Name <email>
	if lt := strings.IndexByte(sender, '<'); lt > 0 {
		name := strings.TrimSpace(sender[:lt])
		name = strings.Trim(name, `"`)
		name = strings.TrimSpace(name)
		if name != "" {
			return name
		}
	}

	// Bare address: take the local part
	if at := strings.IndexByte(sender, '@'); at > 0 {
		return strings.TrimSpace(sender[:at])
	}

	if runes := []rune(sender); len(runes) > maxSenderLen {
		return string(runes[:maxSenderLen])
	}
	return sender
}

// sanitize makes a name component safe for use in a filename.
func (r *Renamer) sanitize(text string, maxLen int) string {
	if text == "" {
		return ""
	}

	// Drop characters that are invalid in filenames
	var b strings.Builder
	for _, c := range text {
		if c < 0x20 || strings.ContainsRune(`<>:"/\|?*`, c) {
			continue
		}
		b.WriteRune(c)
	}
	text = b.String()

	if r.opts.ReplaceSpaces {
		text = replaceWhitespaceRuns(text, r.opts.SpaceReplacement)
	}

	text = collapseSeparators(text)

	if r.opts.Lowercase {
		text = strings.ToLower(text)
	}

	if runes := []rune(text); len(runes) > maxLen {
		text = string(runes[:maxLen])
	}
	return strings.Trim(text, "_.- ")
}

// replaceWhitespaceRuns collapses each run of whitespace into replacement.
func replaceWhitespaceRuns(s, replacement string) string {
	var b strings.Builder
	inRun := false
	for _, c := range s {
		if unicode.IsSpace(c) {
			if !inRun {
				b.WriteString(replacement)
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(c)
	}
	return b.String()
}

// collapseSeparators reduces runs of underscores and dashes to one "_".
func collapseSeparators(s string) string {
	var b strings.Builder
	inRun := false
	for _, c := range s {
		if c == '_' || c == '-' {
			if !inRun {
				b.WriteByte('_')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(c)
	}
	return b.String()
}
