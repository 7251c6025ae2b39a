package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/missive/pkg/logger"
	"github.com/dmitrymomot/missive/pkg/mailer"
	"github.com/dmitrymomot/missive/pkg/mailer/metrics"
	"github.com/dmitrymomot/missive/pkg/mailer/preview"
)

// app holds the state shared by subcommands for one invocation.
type app struct {
	environ  map[string]string
	envFile  string
	cfg      Config
	log      *slog.Logger
	redis    redis.UniversalClient
	registry *prometheus.Registry
	metrics  *metrics.Collector
	closers  []func()
}

func newRootCmd(environ map[string]string) *cobra.Command {
	a := &app{environ: environ}

	root := &cobra.Command{
		Use:           "missive",
		Short:         "Compose and deliver email from front matter templates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newComposeCmd(a),
		newSendCmd(a),
		newServeCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// setup loads configuration and opens shared connections. Callers must defer close.
func (a *app) setup(ctx context.Context) error {
	cfg, err := loadConfig(a.envFile, a.environ)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.NewWithSentry(cfg.Log, cfg.Sentry, logger.TemplateExtractor, preview.RequestIDExtractor)

	if cfg.Cache == "redis" || cfg.RedisURL != "" {
		rdb, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		a.redis = rdb
		a.onClose(func() { _ = rdb.Close() })
	}

	if cfg.Metrics {
		a.registry = prometheus.NewRegistry()
		a.metrics = metrics.NewCollector(a.registry)
	}
	return nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newMailer wires the configured sources and, when given, the sender.
func (a *app) newMailer(ctx context.Context, sender mailer.Sender) (*mailer.Mailer, error) {
	store, err := newCache(a.cfg, a.redis)
	if err != nil {
		return nil, err
	}
	if store != nil {
		a.onClose(func() { _ = store.Close() })
	}

	resolver, err := newResolver(ctx, a.cfg, store, a.log)
	if err != nil {
		return nil, err
	}

	opts := []mailer.Option{mailer.WithLogger(a.log)}
	if a.metrics != nil {
		opts = append(opts, mailer.WithObserver(a.metrics))
		if sender != nil {
			sender = a.metrics.Sender(sender)
		}
	}
	return mailer.New(resolver, sender, a.cfg.Mailer, opts...), nil
}

// readData decodes the JSON rendering context at path. "-" reads stdin.
func readData(path string, stdin io.Reader) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}

	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode data %s: %w", path, err)
	}
	return data, nil
}

// paramsFlags are the template selection flags shared by compose and send.
type paramsFlags struct {
	data    string
	backend string
	attach  []string
}

func (f *paramsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.data, "data", "", "JSON file with the rendering context (- for stdin)")
	cmd.Flags().StringVar(&f.backend, "backend", "", "template source to use (default: search all)")
	cmd.Flags().StringArrayVar(&f.attach, "attach", nil, "file to attach, repeatable")
}

func (f *paramsFlags) params(cmd *cobra.Command, template string) (mailer.Params, map[string]any, error) {
	data, err := readData(f.data, cmd.InOrStdin())
	if err != nil {
		return mailer.Params{}, nil, err
	}

	p := mailer.Params{Template: template, Backend: f.backend}
	if data != nil {
		p.Data = data
	}
	for _, path := range f.attach {
		p.Attachments = append(p.Attachments, mailer.Attach(path))
	}
	return p, data, nil
}
