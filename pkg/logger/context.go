package logger

import (
	"context"
	"log/slog"
)

type templateKey struct{}

// WithTemplate stores the template identifier in ctx.
func WithTemplate(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, templateKey{}, id)
}

// TemplateFromContext returns the template identifier stored by WithTemplate.
func TemplateFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(templateKey{}).(string)
	return id, ok && id != ""
}

// TemplateExtractor adds a "template" attribute to records logged with a context
// carrying a template identifier.
func TemplateExtractor(ctx context.Context) (slog.Attr, bool) {
	if id, ok := TemplateFromContext(ctx); ok {
		return slog.String("template", id), true
	}
	return slog.Attr{}, false
}
