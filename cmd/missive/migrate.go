package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the job queue schema to MISSIVE_DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.setup(ctx); err != nil {
				return err
			}
			defer a.close()

			pool, err := connectPostgres(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			versions, err := migrateQueue(ctx, pool)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "queue schema is up to date")
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "applied queue migrations %v\n", versions)
			return err
		},
	}
}
