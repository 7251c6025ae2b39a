// Package logger builds the slog loggers used across missive.
//
// New writes JSON (or text) records to stderr, or stdout when configured, at
// the configured level.
// NewWithSentry additionally forwards warnings and errors to Sentry and falls
// back to the plain output when no DSN is configured. NewNope discards everything
// and is the default for library types that accept an optional logger.
//
// Context extractors add request-scoped attributes to every record:
//
//	log := logger.New(cfg, logger.TemplateExtractor)
//	ctx := logger.WithTemplate(ctx, "welcome.md")
//	log.InfoContext(ctx, "email sent") // {"msg":"email sent","template":"welcome.md"}
package logger
