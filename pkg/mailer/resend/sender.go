package resend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/missive/pkg/mailer"
)

// Sender implements mailer.Sender using the Resend API.
type Sender struct {
	client *resend.Client
	config Config
}

// Option configures a Sender.
type Option func(*senderOptions)

type senderOptions struct {
	httpClient *http.Client
}

// WithHTTPClient sets the HTTP client used to reach the API.
func WithHTTPClient(c *http.Client) Option {
	return func(o *senderOptions) { o.httpClient = c }
}

// New creates a new Resend sender.
func New(cfg Config, opts ...Option) (*Sender, error) {
	var o senderOptions
	for _, opt := range opts {
		opt(&o)
	}

	client := resend.NewCustomClient(o.httpClient, strings.TrimSpace(cfg.APIKey))
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("resend: invalid base url: %w", err)
		}
		client.BaseURL = u
	}

	return &Sender{client: client, config: cfg}, nil
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, msg *mailer.Message) error {
	req := &resend.SendEmailRequest{
		From:    s.from(msg),
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
		Cc:      msg.CC,
		Bcc:     msg.BCC,
		Headers: msg.Headers,
	}
	if msg.HasHTML() {
		req.Html = msg.HTML
	}
	if len(msg.Attachments) > 0 {
		req.Attachments = convertAttachments(msg.Attachments)
	}

	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}

	return nil
}

func (s *Sender) from(msg *mailer.Message) string {
	if msg.From != "" {
		return msg.From
	}
	return mailer.Recipient(s.config.SenderName, s.config.SenderEmail)
}

func convertAttachments(attachments []mailer.Attachment) []*resend.Attachment {
	result := make([]*resend.Attachment, len(attachments))
	for i, a := range attachments {
		result[i] = &resend.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
		}
	}
	return result
}

var _ mailer.Sender = (*Sender)(nil)
