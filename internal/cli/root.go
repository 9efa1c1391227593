// Package cli defines the cobra command tree for the beomusic backend.
package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"beomusic_backend/internal/config"
	"beomusic_backend/internal/logger"
)

var flagLogLevel string

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "beomusic",
		Short:         "Song comments backend",
		Long:          "HTTP API, notification worker and maintenance commands for beomusic song comments.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug|info|warn|error); overrides LOG_LEVEL")

	root.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newMigrateCmd(),
		newCleanupCmd(),
	)

	return root
}

// loadConfig reads the configuration and builds the logger it asks for.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, logger.New(cfg.LogLevel), nil
}
