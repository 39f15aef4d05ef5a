// Package commands implements the tcctl CLI's subcommands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/tc4client/internal/logger"
	"github.com/marmos91/tc4client/pkg/config"
)

var configPath string

// rootCmd is the base command when tcctl is invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "tcctl",
	Short: "Drive an NFSv4 server through the tc4 transactional-compound client",
}

// Execute adds all child commands to rootCmd and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to tc4 config file (defaults to the standard search path)")

	rootCmd.AddCommand(
		newReadCmd(),
		newWriteCmd(),
		newGetAttrCmd(),
		newLsCmd(),
		newRenameCmd(),
		newRemoveCmd(),
		newMkdirCmd(),
	)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
