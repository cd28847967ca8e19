// Package cli implements the godash command line.
package cli

import (
	"godash/internal/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with the serve, sync and list subcommands.
func NewRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "godash",
		Short:         "Humanitarian emergency dashboard backend",
		Long:          "godash serves paged, sorted and filtered list views over the GO platform API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example:       rootCmdExample,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	load := func(c *cobra.Command) (config.Cfg, error) {
		cfg, err := config.Read(envFile)
		if err != nil {
			return config.Cfg{}, err
		}
		config.SetupLogging(cfg.App)
		if debug, _ := c.Flags().GetBool("debug"); debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		return cfg, nil
	}

	cmd.AddCommand(newServeCmd(load), newSyncCmd(load), newListCmd(load))
	return cmd
}

type loader func(*cobra.Command) (config.Cfg, error)

const rootCmdExample = `  # Run the HTTP API
  godash serve

  # Mirror every view into Postgres once
  godash sync

  # Second page of floods, newest first
  godash list emergencies --page 2 --sort -disaster_start_date --filter dtype=12`
