package mailer

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/dmitrymomot/missive/pkg/htmltext"
)

// Pipeline turns a rendered body into its plain text and HTML representations.
type Pipeline struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithMarkdown replaces the markdown converter.
func WithMarkdown(md goldmark.Markdown) PipelineOption {
	return func(p *Pipeline) {
		p.md = md
	}
}

// WithSanitizer runs every HTML body through policy before the plain text is derived.
func WithSanitizer(policy *bluemonday.Policy) PipelineOption {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// NewPipeline creates a pipeline with GitHub flavored markdown and button links.
// Raw HTML inside markdown bodies is passed through.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, NewButtonExtension()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Convert dispatches on the content type:
//
//   - plain: text is the rendered body, no HTML
//   - markdown: HTML is converted from the rendered body, text is derived from the HTML
//   - html: HTML is the rendered body, text is derived from it
func (p *Pipeline) Convert(ct ContentType, rendered string) (text, htmlBody string, err error) {
	switch ct {
	case ContentTypePlain:
		return rendered, "", nil

	case ContentTypeMarkdown:
		var buf bytes.Buffer
		if err := p.md.Convert([]byte(rendered), &buf); err != nil {
			return "", "", fmt.Errorf("%w: failed to convert markdown: %v", ErrRenderFailed, err)
		}
		htmlBody = buf.String()

	case ContentTypeHTML:
		htmlBody = rendered

	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidContentType, ct)
	}

	if p.policy != nil {
		htmlBody = p.policy.Sanitize(htmlBody)
	}

	text, err = htmltext.Convert(htmlBody)
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to convert html to text: %v", ErrRenderFailed, err)
	}

	return text, htmlBody, nil
}
