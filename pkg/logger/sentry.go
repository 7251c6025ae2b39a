package logger

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `env:"SENTRY_DSN"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	Release     string `env:"SENTRY_RELEASE"`
	// MinLevel determines which log levels to send to Sentry (e.g., slog.LevelWarn for warnings+errors)
	MinLevel slog.Level `env:"SENTRY_MIN_LEVEL" envDefault:"warn"`
}

// NewWithSentry creates a logger that sends logs to both the base output and Sentry.
// If DSN is empty, only the base output is used.
// Delivery failures logged at error level become Sentry issues.
func NewWithSentry(base Config, cfg SentryConfig, extractors ...ContextExtractor) *slog.Logger {
	baseHandler := newHandler(base.writer(), base)

	if cfg.DSN == "" {
		return slog.New(NewContextHandler(baseHandler, extractors...))
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		EnableLogs:  true,
	}); err != nil {
		slog.New(baseHandler).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return slog.New(NewContextHandler(baseHandler, extractors...))
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   levelsFrom(cfg.MinLevel),
	}.NewSentryHandler(context.Background())

	return slog.New(NewContextHandler(fanoutHandler{baseHandler, sentryHandler}, extractors...))
}

// levelsFrom lists the standard levels at or above floor.
func levelsFrom(floor slog.Level) []slog.Level {
	var out []slog.Level
	for _, l := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l >= floor {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		out = []slog.Level{slog.LevelError}
	}
	return out
}
