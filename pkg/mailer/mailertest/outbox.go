// Package mailertest provides an in-memory mailer.Sender for tests.
package mailertest

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrymomot/missive/pkg/mailer"
)

// Outbox records every message it is asked to send.
// It is safe for concurrent use.
type Outbox struct {
	mu       sync.Mutex
	messages []mailer.Message
	err      error
}

// NewOutbox returns an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Send implements mailer.Sender. Messages are copied so later mutation by
// the caller does not affect what was recorded.
func (o *Outbox) Send(ctx context.Context, msg *mailer.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return o.err
	}
	o.messages = append(o.messages, clone(msg))
	return nil
}

// FailWith makes subsequent sends return err. A nil err restores delivery.
func (o *Outbox) FailWith(err error) {
	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
}

// Messages returns the recorded messages in send order.
func (o *Outbox) Messages() []mailer.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.messages)
}

// Len returns the number of recorded messages.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.messages)
}

// Last returns the most recent message.
func (o *Outbox) Last() (mailer.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return mailer.Message{}, false
	}
	return o.messages[len(o.messages)-1], true
}

// SentTo returns the messages that list addr as a to, cc or bcc recipient.
func (o *Outbox) SentTo(addr string) []mailer.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []mailer.Message
	for _, m := range o.messages {
		if slices.Contains(m.Recipients(), addr) {
			out = append(out, m)
		}
	}
	return out
}

// Reset drops all recorded messages and clears any failure.
func (o *Outbox) Reset() {
	o.mu.Lock()
	o.messages = nil
	o.err = nil
	o.mu.Unlock()
}

func clone(msg *mailer.Message) mailer.Message {
	c := *msg
	c.To = slices.Clone(msg.To)
	c.CC = slices.Clone(msg.CC)
	c.BCC = slices.Clone(msg.BCC)
	c.Attachments = slices.Clone(msg.Attachments)
	if msg.Headers != nil {
		c.Headers = make(map[string]string, len(msg.Headers))
		for k, v := range msg.Headers {
			c.Headers[k] = v
		}
	}
	return c
}

var _ mailer.Sender = (*Outbox)(nil)
