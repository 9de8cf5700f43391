package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/armoryhq/armory/internal/config"
	"github.com/armoryhq/armory/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the armory CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "armory",
		Short: "Armory - character roster and data lifecycle service",
		Long: `Armory tracks each user's active character and permanently deletes
characters together with every row that references them.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())
	cmd.AddCommand(NewCharacterCmd())
	cmd.AddCommand(NewProbeCmd())

	return cmd
}

// loadConfig reads configuration for cmd and installs the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags(), os.Getenv)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.SetDefault(logging.Options{
		Service: "armory",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
		Writer:  cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}
