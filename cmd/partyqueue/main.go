package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/party-queue-system/internal/config"
	"github.com/party-queue-system/pkg/logger"
)

var (
	cfg *config.Config

	statePath string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "partyqueue",
	Short:         "Party Queue lets a room of people vote on what plays next.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if statePath != "" {
			cfg.SQLitePath = statePath
		}
		switch {
		case logLevel != "":
			cfg.LogLevel = logLevel
		case os.Getenv("LOG_LEVEL") == "" && cmd != serveCmd:
			// Local commands print their own output; keep the log quiet.
			cfg.LogLevel = "warn"
		}
		return logger.Init(logger.Config{
			Level:      cfg.LogLevel,
			OutputPath: cfg.LogFile,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
			Console:    !cfg.Production(),
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "local state database (default $SQLITE_PATH or ~/.partyqueue/state.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default $LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
