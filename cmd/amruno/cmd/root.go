package cmd

import (
	"context"
	"os"

	"github.com/nfrund/amruno/internal/config"
	"github.com/nfrund/amruno/internal/logging"
	"github.com/spf13/cobra"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:   "amruno",
	Short: "Amruno chat backend",
	Long: `Amruno is a real-time chat backend: accounts, direct messages over
websockets, presence and media uploads.

Available commands:
  serve      Run the HTTP and websocket server
  migrate    Create the database schema
  users      Inspect registered users
  version    Print the version

Use "amruno [command] --help" for more information about a specific command.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "env files to load before reading the environment")
}

// loadConfig reads the configuration and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	logging.New(cfg.LogFormat, cfg.LogLevel)
	return cfg, nil
}
