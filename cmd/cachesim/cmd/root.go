// Package cmd provides the command-line interface of cachesim.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cachesim",
		Short: "cachesim replays memory traces through a two-level cache.",
		Long: `cachesim replays memory reference traces through a two-level ` +
			`hierarchy of set-associative caches and reports the reads, ` +
			`writes and misses of each level.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := godotenv.Load()
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}

			level, _ := cmd.Flags().GetString("log-level")
			file, _ := cmd.Flags().GetString("log-file")
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), level, file))

			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "",
		"YAML config file with the same keys as the CACHESIM_* variables")
	rootCmd.PersistentFlags().String("log-level", "",
		"Log level: debug, info, warn or error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-file", "",
		"Also write logs to this file, rotating it when it grows")

	rootCmd.AddCommand(newRunCmd(), newDescribeCmd())

	return rootCmd
}

// Execute runs the command line and exits the process, running the exit
// handlers first.
func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
