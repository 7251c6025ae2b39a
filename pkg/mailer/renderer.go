package mailer

import (
	"bytes"
	texttemplate "text/template"
)

// Renderer evaluates the template expressions embedded in a string.
// name identifies the field being rendered and only shows up in errors.
type Renderer interface {
	Render(name, text string, data any) (string, error)
}

// RendererFunc adapts an ordinary function to the Renderer interface.
type RendererFunc func(name, text string, data any) (string, error)

// Render calls f(name, text, data).
func (f RendererFunc) Render(name, text string, data any) (string, error) {
	return f(name, text, data)
}

// TextRenderer renders strings with text/template.
// It keeps no state between calls, so a single value can be shared.
type TextRenderer struct {
	funcs      texttemplate.FuncMap
	missingKey string
}

// TextRendererOption configures a TextRenderer.
type TextRendererOption func(*TextRenderer)

// WithFuncs registers additional template functions.
func WithFuncs(funcs texttemplate.FuncMap) TextRendererOption {
	return func(r *TextRenderer) {
		if r.funcs == nil {
			r.funcs = texttemplate.FuncMap{}
		}
		for k, v := range funcs {
			r.funcs[k] = v
		}
	}
}

// WithStrictKeys makes references to missing map keys fail instead of rendering "<no value>".
func WithStrictKeys() TextRendererOption {
	return func(r *TextRenderer) {
		r.missingKey = "missingkey=error"
	}
}

// NewTextRenderer creates a text/template based renderer.
func NewTextRenderer(opts ...TextRendererOption) *TextRenderer {
	r := &TextRenderer{missingKey: "missingkey=default"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render implements Renderer.
func (r *TextRenderer) Render(name, text string, data any) (string, error) {
	tmpl := texttemplate.New(name).Option(r.missingKey)
	if len(r.funcs) > 0 {
		tmpl = tmpl.Funcs(r.funcs)
	}

	tmpl, err := tmpl.Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

var _ Renderer = (*TextRenderer)(nil)
