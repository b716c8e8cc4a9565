package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"crewauction/internal/platform/config"
	"crewauction/internal/platform/logger"
)

// app is what every subcommand needs after flags and config are resolved.
type app struct {
	configFile string
	cfg        config.Server
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "auctiond",
		Short:         "Live crew auction server",
		Long:          "auctiond runs the crew auction: a ledger of production houses and crew members, atomic sales, and live bid broadcasts over websockets.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// A missing .env is normal outside local development.
			_ = godotenv.Load()
			cfg, err := config.Load(a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.New(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "path to a config file (default: ./auctiond.toml if present)")

	rootCmd.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newSeedCmd(a),
		newHashCodeCmd(),
	)
	return rootCmd
}
