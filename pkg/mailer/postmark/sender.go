package postmark

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/missive/pkg/mailer"
)

// ErrMissingToken is returned by New when no server token is configured.
var ErrMissingToken = errors.New("postmark: server token is required")

// Sender implements mailer.Sender using the Postmark transactional API.
type Sender struct {
	client *postmark.Client
	config Config
}

// Option configures a Sender.
type Option func(*postmark.Client)

// WithHTTPClient sets the HTTP client used to reach the API.
func WithHTTPClient(c *http.Client) Option {
	return func(pc *postmark.Client) { pc.HTTPClient = c }
}

// New creates a Postmark sender.
func New(cfg Config, opts ...Option) (*Sender, error) {
	if strings.TrimSpace(cfg.ServerToken) == "" {
		return nil, ErrMissingToken
	}

	client := postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	if cfg.BaseURL != "" {
		client.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	for _, opt := range opts {
		opt(client)
	}

	return &Sender{client: client, config: cfg}, nil
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, msg *mailer.Message) error {
	email := postmark.Email{
		From:          s.from(msg),
		To:            strings.Join(msg.To, ", "),
		Cc:            strings.Join(msg.CC, ", "),
		Bcc:           strings.Join(msg.BCC, ", "),
		Subject:       msg.Subject,
		TextBody:      msg.Text,
		Headers:       convertHeaders(msg.Headers),
		Attachments:   convertAttachments(msg.Attachments),
		TrackOpens:    s.config.TrackOpens,
		MessageStream: s.config.MessageStream,
	}
	if msg.HasHTML() {
		email.HTMLBody = msg.HTML
	}

	resp, err := s.client.SendEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("postmark: failed to send email: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark: error %d: %s", resp.ErrorCode, resp.Message)
	}
	return nil
}

func (s *Sender) from(msg *mailer.Message) string {
	if msg.From != "" {
		return msg.From
	}
	return s.config.SenderEmail
}

// convertHeaders returns headers sorted by name so requests are stable.
func convertHeaders(headers map[string]string) []postmark.Header {
	if len(headers) == 0 {
		return nil
	}
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]postmark.Header, len(names))
	for i, name := range names {
		out[i] = postmark.Header{Name: name, Value: headers[name]}
	}
	return out
}

func convertAttachments(attachments []mailer.Attachment) []postmark.Attachment {
	if len(attachments) == 0 {
		return nil
	}
	out := make([]postmark.Attachment, len(attachments))
	for i, a := range attachments {
		out[i] = postmark.Attachment{
			Name:        a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		}
	}
	return out
}

var _ mailer.Sender = (*Sender)(nil)
