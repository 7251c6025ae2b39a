package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/missive/pkg/cache"
	"github.com/dmitrymomot/missive/pkg/mailer"
	"github.com/dmitrymomot/missive/pkg/mailer/filesender"
	"github.com/dmitrymomot/missive/pkg/mailer/postmark"
	"github.com/dmitrymomot/missive/pkg/mailer/resend"
	"github.com/dmitrymomot/missive/pkg/mailer/sendgrid"
	"github.com/dmitrymomot/missive/pkg/mailer/ses"
	"github.com/dmitrymomot/missive/pkg/mailer/smtp"
	"github.com/dmitrymomot/missive/pkg/mailer/source"
)

// newResolver builds the template sources: the templates directory first,
// then S3 when a bucket is configured. Each backend is cached when store is set.
func newResolver(ctx context.Context, cfg Config, store cache.Cache[string], log *slog.Logger) (*source.Resolver, error) {
	var backends []source.Backend

	if cfg.TemplatesDir != "" {
		backends = append(backends, source.NewFS(os.DirFS(cfg.TemplatesDir)))
	}
	if cfg.S3.Bucket != "" {
		b, err := source.NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}

	if store != nil {
		for i, b := range backends {
			backends[i] = source.NewCached(b, store,
				source.WithCacheLogger(log),
				source.WithCacheTTL(cfg.CacheTTL),
			)
		}
	}

	return source.NewResolver(backends...), nil
}

// newCache returns the template cache selected by MISSIVE_CACHE, or nil for none.
func newCache(cfg Config, rdb redis.UniversalClient) (cache.Cache[string], error) {
	switch strings.ToLower(cfg.Cache) {
	case "", "none":
		return nil, nil
	case "memory":
		return cache.NewMemory[string](
			cache.WithDefaultTTL(cfg.CacheTTL),
			cache.WithMaxEntries(cfg.CacheMaxEntries),
		), nil
	case "redis":
		if rdb == nil {
			return nil, errNoRedis
		}
		return cache.NewRedis[string](rdb, cache.StringMarshaler{},
			cache.WithPrefix("missive:templates"),
			cache.WithRedisDefaultTTL(cfg.CacheTTL),
		), nil
	default:
		return nil, fmt.Errorf("unknown cache %q: want none, memory or redis", cfg.Cache)
	}
}

// newSender returns the transport selected by MISSIVE_TRANSPORT.
func newSender(ctx context.Context, cfg Config) (mailer.Sender, error) {
	switch strings.ToLower(cfg.Transport) {
	case "file":
		return filesender.New(cfg.OutboxDir), nil
	case "smtp":
		return smtp.New(cfg.SMTP), nil
	case "resend":
		s, err := resend.New(cfg.Resend)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postmark":
		s, err := postmark.New(cfg.Postmark)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "ses":
		s, err := ses.New(ctx, cfg.SES)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sendgrid":
		s, err := sendgrid.New(cfg.SendGrid)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown transport %q: want file, smtp, resend, postmark, ses or sendgrid", cfg.Transport)
	}
}
