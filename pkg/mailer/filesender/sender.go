// Package filesender provides a mailer.Sender for local development that
// writes every message to a directory instead of delivering it.
//
// Each message produces files sharing a timestamped base name:
//
//	2025_01_02_150405_000001_welcome.txt   plain text body
//	2025_01_02_150405_000001_welcome.html  HTML alternative, when present
//	2025_01_02_150405_000001_welcome.json  envelope metadata
//
// Attachments are written next to them as <base>_<filename>.
package filesender

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrymomot/missive/pkg/mailer"
)

// Sender saves messages as files.
type Sender struct {
	dir string
	now func() time.Time
}

// Option configures a Sender.
type Option func(*Sender)

// WithClock sets the time source used to name files. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sender) { s.now = now }
}

// New creates a sender writing into dir. The directory is created on first send.
func New(dir string, opts ...Option) *Sender {
	s := &Sender{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metadata is the content of the JSON file written for each message.
type Metadata struct {
	Timestamp   string            `json:"timestamp"`
	From        string            `json:"from,omitempty"`
	To          []string          `json:"to"`
	CC          []string          `json:"cc,omitempty"`
	BCC         []string          `json:"bcc,omitempty"`
	Subject     string            `json:"subject"`
	ContentType string            `json:"content_type"`
	Headers     map[string]string `json:"headers,omitempty"`
	Attachments []string          `json:"attachments,omitempty"`
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, msg *mailer.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("filesender: failed to create directory: %w", err)
	}

	now := s.now()
	base := fmt.Sprintf("%s_%06d_%s",
		now.Format("2006_01_02_150405"),
		now.Nanosecond()/int(time.Microsecond),
		sanitizeFilename(msg.Subject),
	)

	if err := s.write(base+".txt", []byte(msg.Text)); err != nil {
		return err
	}
	if msg.HasHTML() {
		if err := s.write(base+".html", []byte(msg.HTML)); err != nil {
			return err
		}
	}

	meta := Metadata{
		Timestamp:   now.Format(time.RFC3339),
		From:        msg.From,
		To:          msg.To,
		CC:          msg.CC,
		BCC:         msg.BCC,
		Subject:     msg.Subject,
		ContentType: string(msg.ContentType),
		Headers:     msg.Headers,
	}
	for _, a := range msg.Attachments {
		name := base + "_" + sanitizeFilename(a.Filename)
		if err := s.write(name, a.Content); err != nil {
			return err
		}
		meta.Attachments = append(meta.Attachments, name)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("filesender: failed to marshal metadata: %w", err)
	}
	return s.write(base+".json", data)
}

func (s *Sender) write(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("filesender: failed to write %s: %w", name, err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFilename keeps at most 100 filesystem-safe characters.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
	s = unsafeChars.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}

var _ mailer.Sender = (*Sender)(nil)
