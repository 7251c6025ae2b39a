package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/missive/pkg/logger"
	"github.com/dmitrymomot/missive/pkg/mailer"
	"github.com/dmitrymomot/missive/pkg/mailer/postmark"
	"github.com/dmitrymomot/missive/pkg/mailer/resend"
	"github.com/dmitrymomot/missive/pkg/mailer/sendgrid"
	"github.com/dmitrymomot/missive/pkg/mailer/ses"
	"github.com/dmitrymomot/missive/pkg/mailer/smtp"
	"github.com/dmitrymomot/missive/pkg/mailer/source"
)

// Config is the full command configuration.
type Config struct {
	Log    logger.Config
	Sentry logger.SentryConfig
	Mailer mailer.Config

	TemplatesDir string          `env:"MISSIVE_TEMPLATES_DIR" envDefault:"templates"`
	S3           source.S3Config `envPrefix:"MISSIVE_S3_"`

	Cache           string        `env:"MISSIVE_CACHE" envDefault:"none"` // none, memory or redis
	CacheTTL        time.Duration `env:"MISSIVE_CACHE_TTL" envDefault:"5m"`
	CacheMaxEntries int           `env:"MISSIVE_CACHE_MAX_ENTRIES" envDefault:"1000"` // memory cache only; 0 is unlimited
	RedisURL        string        `env:"MISSIVE_REDIS_URL"`

	Transport string `env:"MISSIVE_TRANSPORT" envDefault:"file"`
	OutboxDir string `env:"MISSIVE_OUTBOX_DIR" envDefault:"outbox"`
	SMTP      smtp.Config
	Resend    resend.Config
	Postmark  postmark.Config
	SES       ses.Config
	SendGrid  sendgrid.Config

	DatabaseURL  string `env:"MISSIVE_DATABASE_URL"`
	QueueWorkers int    `env:"MISSIVE_QUEUE_WORKERS" envDefault:"10"`

	HTTPAddr       string `env:"MISSIVE_HTTP_ADDR" envDefault:":8080"`
	AttachmentsDir string `env:"MISSIVE_PREVIEW_ATTACHMENTS_DIR"` // Root for template attachments in previews
	Metrics        bool   `env:"MISSIVE_METRICS" envDefault:"true"`
}

// loadConfig reads envFile when it exists, then parses the environment.
// A non-nil environ replaces the process environment.
func loadConfig(envFile string, environ map[string]string) (Config, error) {
	var cfg Config

	if environ == nil && envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
