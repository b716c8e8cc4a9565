package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"crewauction/internal/ledger/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the ledger schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ledger, err := store.Open(ctx, a.cfg.Ledger, store.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer ledger.Close()

			if err := ledger.Migrate(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ledger schema applied (%s)\n", a.cfg.Ledger.Driver)
			return err
		},
	}
}
