package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/missive/pkg/mailer/preview"
	"github.com/dmitrymomot/missive/pkg/mailer/queue"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the preview server and, with a database, the delivery worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			defer a.close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	sender, err := newSender(ctx, a.cfg)
	if err != nil {
		return err
	}
	m, err := a.newMailer(ctx, sender)
	if err != nil {
		return err
	}

	opts := []preview.Option{preview.WithLogger(a.log)}
	if a.cfg.AttachmentsDir != "" {
		opts = append(opts, preview.WithAttachmentFS(os.DirFS(a.cfg.AttachmentsDir)))
	}
	if a.registry != nil {
		opts = append(opts, preview.WithMetrics(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	}
	if a.redis != nil {
		opts = append(opts, preview.WithCheck("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}))
	}

	var manager *queue.Manager
	if a.cfg.DatabaseURL != "" {
		pool, err := connectPostgres(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		a.onClose(pool.Close)

		if _, err := migrateQueue(ctx, pool); err != nil {
			return err
		}
		manager, err = queue.NewManager(pool, m,
			queue.WithLogger(a.log),
			queue.WithMaxWorkers(a.cfg.QueueWorkers),
		)
		if err != nil {
			return err
		}
		if err := manager.Start(ctx); err != nil {
			return err
		}
		opts = append(opts,
			preview.WithCheck("postgres", pool.Ping),
			preview.WithCheck("queue", queue.Healthcheck(manager)),
		)
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           preview.New(m, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("preview server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if manager != nil {
			err = errors.Join(err, manager.Stop(shutdownCtx))
		}
		return err
	})
	return g.Wait()
}
