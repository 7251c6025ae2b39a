package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/missive/pkg/mailer/queue"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		flags   paramsFlags
		enqueue bool
		delay   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send <template>",
		Short: "Compose a template and deliver it, or queue it for a worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			defer a.close()

			p, data, err := flags.params(cmd, args[0])
			if err != nil {
				return err
			}

			if enqueue {
				pool, err := connectPostgres(ctx, a.cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer pool.Close()

				enq, err := queue.NewEnqueuer(pool, queue.WithLogger(a.log))
				if err != nil {
					return err
				}

				sendArgs := queue.SendArgs{Template: p.Template, Backend: p.Backend, Data: data}
				for _, path := range flags.attach {
					sendArgs.Attachments = append(sendArgs.Attachments, queue.Attachment{Path: path})
				}

				var opts []queue.EnqueueOption
				if delay > 0 {
					opts = append(opts, queue.ScheduledIn(delay))
				}
				if err := enq.Enqueue(ctx, sendArgs, opts...); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", p.Template)
				return err
			}

			sender, err := newSender(ctx, a.cfg)
			if err != nil {
				return err
			}
			m, err := a.newMailer(ctx, sender)
			if err != nil {
				return err
			}
			if err := m.Send(ctx, p); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "sent %s via %s\n", p.Template, a.cfg.Transport)
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&enqueue, "queue", false, "insert a background job instead of sending now")
	cmd.Flags().DurationVar(&delay, "delay", 0, "with --queue, delay delivery by this duration")
	return cmd
}
