package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/missive/pkg/mailer"
	"github.com/dmitrymomot/missive/pkg/mailer/preview"
)

func newComposeCmd(a *app) *cobra.Command {
	var (
		flags  paramsFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "compose <template>",
		Short: "Render a template and print the message without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			defer a.close()

			p, _, err := flags.params(cmd, args[0])
			if err != nil {
				return err
			}
			m, err := a.newMailer(ctx, nil)
			if err != nil {
				return err
			}
			msg, err := m.Compose(ctx, p)
			if err != nil {
				return err
			}
			return printMessage(cmd.OutOrStdout(), msg, format)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "json", "output: json, text or html")
	return cmd
}

func printMessage(w io.Writer, msg *mailer.Message, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(preview.NewMessageResponse(msg))
	case "text":
		_, err := fmt.Fprintln(w, msg.Text)
		return err
	case "html":
		if !msg.HasHTML() {
			return fmt.Errorf("template has no HTML body (content-type %s)", msg.ContentType)
		}
		_, err := fmt.Fprintln(w, msg.HTML)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
