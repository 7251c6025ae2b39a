package smtp

import (
	"context"
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/dmitrymomot/missive/pkg/mailer"
)

// Sender implements mailer.Sender over SMTP.
// Every Send opens its own connection.
type Sender struct {
	dial func() (gomail.SendCloser, error)
	cfg  Config
}

// Option configures a Sender.
type Option func(*Sender)

// WithTransport delivers through s instead of dialing the configured server.
func WithTransport(s gomail.Sender) Option {
	return func(x *Sender) {
		x.dial = func() (gomail.SendCloser, error) { return nopCloser{s}, nil }
	}
}

// New creates an SMTP sender.
func New(cfg Config, opts ...Option) *Sender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.LocalName != "" {
		d.LocalName = cfg.LocalName
	}
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: true} //nolint:gosec // opt-in for local relays
	}

	s := &Sender{dial: d.Dial, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, msg *mailer.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := NewMessage(msg, s.cfg.From)
	if err != nil {
		return err
	}

	conn, err := s.dial()
	if err != nil {
		return fmt.Errorf("smtp: dial %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	defer conn.Close()

	if err := gomail.Send(conn, m); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

type nopCloser struct{ gomail.Sender }

func (nopCloser) Close() error { return nil }

var _ mailer.Sender = (*Sender)(nil)
