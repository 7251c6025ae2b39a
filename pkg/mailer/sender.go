package mailer

import "context"

// Sender defines the minimal interface that email providers must implement.
// It accepts a fully composed Message and handles the actual delivery.
type Sender interface {
	// Send delivers an email message.
	// Returns an error if delivery fails.
	Send(ctx context.Context, msg *Message) error
}

// SenderFunc adapts an ordinary function to the Sender interface.
type SenderFunc func(ctx context.Context, msg *Message) error

// Send calls f(ctx, msg).
func (f SenderFunc) Send(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// SourceResolver loads the raw source of a template.
//
// With an empty backend the resolver may consult every source it knows;
// otherwise only the named one. A missing template is reported with an
// error wrapping ErrTemplateNotFound.
type SourceResolver interface {
	Resolve(ctx context.Context, id, backend string) (string, error)
}

// SourceFunc adapts an ordinary function to the SourceResolver interface.
type SourceFunc func(ctx context.Context, id, backend string) (string, error)

// Resolve calls f(ctx, id, backend).
func (f SourceFunc) Resolve(ctx context.Context, id, backend string) (string, error) {
	return f(ctx, id, backend)
}
