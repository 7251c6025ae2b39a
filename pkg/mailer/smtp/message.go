package smtp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/dmitrymomot/missive/pkg/mailer"
)

// ErrNoFrom is returned when neither the message nor the transport has a sender address.
var ErrNoFrom = errors.New("smtp: message has no sender address")

// Headers owned by the message structure. Template headers cannot override them.
var reservedHeaders = map[string]struct{}{
	"From":                      {},
	"To":                        {},
	"Cc":                        {},
	"Bcc":                       {},
	"Subject":                   {},
	"Mime-Version":              {},
	"Content-Type":              {},
	"Content-Transfer-Encoding": {},
}

// NewMessage converts msg into a MIME message.
//
// The text body is the first part, the HTML alternative follows when the
// message has one, and attachments wrap both in multipart/mixed. Bcc
// recipients are kept for the envelope but never written to the headers.
func NewMessage(msg *mailer.Message, fallbackFrom string) (*gomail.Message, error) {
	from := msg.From
	if from == "" {
		from = fallbackFrom
	}
	if from == "" {
		return nil, ErrNoFrom
	}

	m := gomail.NewMessage()
	for name, value := range msg.Headers {
		name = textproto.CanonicalMIMEHeaderKey(name)
		if _, ok := reservedHeaders[name]; ok {
			continue
		}
		m.SetHeader(name, value)
	}
	if len(m.GetHeader("Message-Id")) == 0 {
		m.SetHeader("Message-Id", messageID(from))
	}

	m.SetHeader("From", formatAddresses(m, []string{from})...)
	m.SetHeader("To", formatAddresses(m, msg.To)...)
	if len(msg.CC) > 0 {
		m.SetHeader("Cc", formatAddresses(m, msg.CC)...)
	}
	if len(msg.BCC) > 0 {
		m.SetHeader("Bcc", formatAddresses(m, msg.BCC)...)
	}
	m.SetHeader("Subject", msg.Subject)

	m.SetBody("text/plain", msg.Text)
	if msg.HasHTML() {
		m.AddAlternative("text/html", msg.HTML)
	}

	for _, a := range msg.Attachments {
		settings := []gomail.FileSetting{
			gomail.Rename(a.Filename),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(a.Content)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType + `; name="` + a.Filename + `"`},
			}))
		}
		m.Attach(a.Filename, settings...)
	}

	return m, nil
}

// Encode renders msg as a raw RFC 5322 message.
func Encode(msg *mailer.Message, fallbackFrom string) ([]byte, error) {
	m, err := NewMessage(msg, fallbackFrom)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("smtp: encode message: %w", err)
	}
	return buf.Bytes(), nil
}

// formatAddresses encodes display names so non-ASCII names survive transport.
// Entries that do not parse are passed through unchanged.
func formatAddresses(m *gomail.Message, list []string) []string {
	out := make([]string, len(list))
	for i, entry := range list {
		addr, err := mail.ParseAddress(entry)
		if err != nil {
			out[i] = entry
			continue
		}
		out[i] = m.FormatAddress(addr.Address, addr.Name)
	}
	return out
}

func messageID(from string) string {
	domain := "localhost"
	if addr, err := mail.ParseAddress(from); err == nil {
		if at := strings.LastIndexByte(addr.Address, '@'); at >= 0 && at < len(addr.Address)-1 {
			domain = addr.Address[at+1:]
		}
	}
	return "<" + uuid.NewString() + "@" + domain + ">"
}
