package sendgrid

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/dmitrymomot/missive/pkg/mailer"
)

const sendEndpoint = "/v3/mail/send"

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("sendgrid: api key is required")

// Sender implements mailer.Sender using the SendGrid v3 mail API.
// A request is built per call, so a Sender is safe for concurrent use.
type Sender struct {
	config Config
}

// New creates a SendGrid sender.
func New(cfg Config) (*Sender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	cfg.Host = strings.TrimSuffix(cfg.Host, "/")
	return &Sender{config: cfg}, nil
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, msg *mailer.Message) error {
	req := sendgrid.GetRequest(s.config.APIKey, sendEndpoint, s.config.Host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.build(msg))

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid: failed to send email: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}

func (s *Sender) build(msg *mailer.Message) *sgmail.SGMailV3 {
	m := sgmail.NewV3Mail()

	from := msg.From
	if from == "" {
		from = mailer.Recipient(s.config.SenderName, s.config.SenderEmail)
	}
	m.SetFrom(toEmail(from))
	m.Subject = msg.Subject

	p := sgmail.NewPersonalization()
	p.AddTos(toEmails(msg.To)...)
	if len(msg.CC) > 0 {
		p.AddCCs(toEmails(msg.CC)...)
	}
	if len(msg.BCC) > 0 {
		p.AddBCCs(toEmails(msg.BCC)...)
	}
	m.AddPersonalizations(p)

	// SendGrid requires text/plain before text/html.
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HasHTML() {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	for name, value := range msg.Headers {
		m.SetHeader(name, value)
	}

	for _, a := range msg.Attachments {
		m.AddAttachment(sgmail.NewAttachment().
			SetFilename(a.Filename).
			SetType(a.ContentType).
			SetDisposition("attachment").
			SetContent(base64.StdEncoding.EncodeToString(a.Content)))
	}

	return m
}

func toEmails(list []string) []*sgmail.Email {
	out := make([]*sgmail.Email, len(list))
	for i, addr := range list {
		out[i] = toEmail(addr)
	}
	return out
}

// toEmail splits a display-name address. Unparseable input is passed through as the address.
func toEmail(addr string) *sgmail.Email {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return sgmail.NewEmail("", addr)
	}
	return sgmail.NewEmail(parsed.Name, parsed.Address)
}

var _ mailer.Sender = (*Sender)(nil)
