package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/dmitrymomot/missive/pkg/logger"
)

// Observer is notified after every composition attempt.
type Observer interface {
	ObserveCompose(template string, duration time.Duration, err error)
}

// Mailer composes messages from template documents and hands them to a Sender.
// It is safe for concurrent use.
type Mailer struct {
	resolver SourceResolver
	sender   Sender
	renderer Renderer
	pipeline *Pipeline
	readFile FileReader
	observer Observer
	logger   *slog.Logger
	config   Config
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithRenderer replaces the expression renderer. Default: TextRenderer.
func WithRenderer(r Renderer) Option {
	return func(m *Mailer) { m.renderer = r }
}

// WithPipeline replaces the content pipeline.
func WithPipeline(p *Pipeline) Option {
	return func(m *Mailer) { m.pipeline = p }
}

// WithFileReader replaces the function used to read attachment files. Default: os.ReadFile.
func WithFileReader(fn FileReader) Option {
	return func(m *Mailer) { m.readFile = fn }
}

// WithObserver registers an observer for composition outcomes.
func WithObserver(o Observer) Option {
	return func(m *Mailer) { m.observer = o }
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mailer) { m.logger = l }
}

// New creates a Mailer. sender may be nil when only Compose is used.
func New(resolver SourceResolver, sender Sender, cfg Config, opts ...Option) *Mailer {
	m := &Mailer{
		resolver: resolver,
		sender:   sender,
		readFile: os.ReadFile,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.renderer == nil {
		var ropts []TextRendererOption
		if cfg.StrictTemplates {
			ropts = append(ropts, WithStrictKeys())
		}
		m.renderer = NewTextRenderer(ropts...)
	}
	if m.pipeline == nil {
		var popts []PipelineOption
		if cfg.SanitizeHTML {
			popts = append(popts, WithSanitizer(bluemonday.UGCPolicy()))
		}
		m.pipeline = NewPipeline(popts...)
	}
	if m.logger == nil {
		m.logger = logger.NewNope()
	}

	return m
}

// Params identifies the template to compose and the data to render it with.
type Params struct {
	Template    string           // Template identifier (e.g., "welcome.md")
	Backend     string           // Optional source backend; empty scans all
	Data        any              // Rendering context
	Attachments []AttachmentSpec // Appended after attachments declared by the template
	FileReader  FileReader       // Overrides the mailer's file reader for this call
}

// Send composes the template and delivers the result.
func (m *Mailer) Send(ctx context.Context, p Params) error {
	msg, err := m.Compose(ctx, p)
	if err != nil {
		return err
	}
	return m.SendMessage(logger.WithTemplate(ctx, p.Template), msg)
}

// SendMessage delivers an already composed message.
func (m *Mailer) SendMessage(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if m.sender == nil {
		return errors.Join(ErrSendFailed, errors.New("no sender configured"))
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		m.logger.ErrorContext(ctx, "email delivery failed",
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()),
		)
		return errors.Join(ErrSendFailed, err)
	}

	m.logger.InfoContext(ctx, "email sent",
		slog.String("subject", msg.Subject),
		slog.Int("recipients", len(msg.Recipients())),
		slog.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

// Compose builds the message for p without delivering it.
//
// Steps run in a fixed order and the first failure aborts:
// resolve source, parse front matter, validate caller attachments,
// render recipients, render the remaining fields, convert the body,
// load attachments.
func (m *Mailer) Compose(ctx context.Context, p Params) (*Message, error) {
	ctx = logger.WithTemplate(ctx, p.Template)
	start := time.Now()

	msg, err := m.compose(ctx, p)

	if m.observer != nil {
		m.observer.ObserveCompose(p.Template, time.Since(start), err)
	}
	if err != nil {
		m.logger.DebugContext(ctx, "email composition failed", slog.String("error", err.Error()))
		return nil, err
	}

	m.logger.DebugContext(ctx, "email composed",
		slog.String("content_type", string(msg.ContentType)),
		slog.Int("recipients", len(msg.Recipients())),
	)
	return msg, nil
}

func (m *Mailer) compose(ctx context.Context, p Params) (*Message, error) {
	source, err := m.resolver.Resolve(ctx, p.Template, p.Backend)
	if err != nil {
		return nil, err
	}

	doc, err := ParseDocument(source)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", p.Template, err)
	}

	if err := ValidateAttachments(p.Attachments); err != nil {
		return nil, err
	}

	c := &composition{id: p.Template, doc: doc, data: p.Data, renderer: m.renderer}
	fm := doc.FrontMatter

	to, err := c.recipients(KeyTo, fm.To, m.config.StrictAddresses)
	if err != nil {
		return nil, err
	}
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}

	msg := &Message{
		To:          to,
		ContentType: fm.ContentType,
	}

	if msg.Subject, err = c.render(KeySubject, fm.Subject); err != nil {
		return nil, err
	}

	from := m.config.DefaultFrom
	if fm.Has(KeyFrom) {
		from = fm.From
	}
	if msg.From, err = c.render(KeyFrom, from); err != nil {
		return nil, err
	}
	msg.From = strings.TrimSpace(msg.From)

	if fm.Has(KeyCC) {
		if msg.CC, err = c.recipients(KeyCC, fm.CC, m.config.StrictAddresses); err != nil {
			return nil, err
		}
	}
	if fm.Has(KeyBCC) {
		if msg.BCC, err = c.recipients(KeyBCC, fm.BCC, m.config.StrictAddresses); err != nil {
			return nil, err
		}
	}
	if fm.Has(KeyHeaders) {
		msg.Headers = make(map[string]string, len(fm.Headers))
		for name, value := range fm.Headers {
			if msg.Headers[name], err = c.render("header "+name, value); err != nil {
				return nil, err
			}
		}
	}

	body, err := doc.RequireBody()
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", p.Template, err)
	}
	rendered, err := c.render("body", body)
	if err != nil {
		return nil, err
	}
	if msg.Text, msg.HTML, err = m.pipeline.Convert(fm.ContentType, rendered); err != nil {
		return nil, err
	}

	declared, err := c.attachments()
	if err != nil {
		return nil, err
	}
	specs := append(declared, p.Attachments...)
	if len(specs) > 0 {
		readFile := m.readFile
		if p.FileReader != nil {
			readFile = p.FileReader
		}
		if msg.Attachments, err = loadAttachments(specs, readFile); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

// composition holds the parsed document for the duration of one Compose call.
type composition struct {
	renderer Renderer
	data     any
	doc      *Document
	id       string
}

func (c *composition) render(field, text string) (string, error) {
	out, err := c.renderer.Render(c.id+":"+field, text, c.data)
	if err != nil {
		return "", errors.Join(fmt.Errorf("%w: %s %s", ErrRenderFailed, c.id, field), err)
	}
	return out, nil
}

func (c *composition) recipients(field, text string, strict bool) ([]string, error) {
	rendered, err := c.render(field, text)
	if err != nil {
		return nil, err
	}
	list, err := ParseRecipients(rendered, strict)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return list, nil
}

// attachments renders and validates the attachments declared in front matter.
func (c *composition) attachments() ([]AttachmentSpec, error) {
	declared := c.doc.FrontMatter.Attachments
	if len(declared) == 0 {
		return nil, nil
	}

	specs := make([]AttachmentSpec, 0, len(declared))
	for i, at := range declared {
		field := fmt.Sprintf("attachment #%d", i)

		path, err := c.render(field+" path", at.Path)
		if err != nil {
			return nil, err
		}
		path = strings.TrimSpace(path)

		if at.Bare {
			specs = append(specs, Attach(path))
			continue
		}

		name, err := c.render(field+" name", at.Name)
		if err != nil {
			return nil, err
		}
		typ, err := c.render(field+" type", at.Type)
		if err != nil {
			return nil, err
		}
		specs = append(specs, AttachFile(path, strings.TrimSpace(name), strings.TrimSpace(typ)))
	}

	if err := ValidateAttachments(specs); err != nil {
		return nil, fmt.Errorf("template %s: declared attachments: %w", c.id, err)
	}
	return specs, nil
}
