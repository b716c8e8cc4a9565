package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"crewauction/internal/ledger/models"
	"crewauction/internal/ledger/store"
)

func newSeedCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Reset the ledger to a fixture",
		Long:  "seed wipes houses, crew members and purchases, then loads a fixture. Without --file the stock three-studio auction is loaded.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fixture := store.DefaultFixture()
			if file != "" {
				var err error
				if fixture, err = store.LoadFixture(file); err != nil {
					return err
				}
			}
			return runSeed(cmd, a, fixture)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "fixture file (.toml, .yaml or .yml)")
	return cmd
}

func runSeed(cmd *cobra.Command, a *app, fixture models.Fixture) error {
	ctx := cmd.Context()
	ledger, err := store.Open(ctx, a.cfg.Ledger, store.WithLogger(a.log))
	if err != nil {
		return err
	}
	defer ledger.Close()

	if err := ledger.Migrate(ctx); err != nil {
		return err
	}
	seeded, err := ledger.Seed(ctx, fixture)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d production houses and %d crew members\n", len(seeded.Houses), len(seeded.Lots))
	return err
}
