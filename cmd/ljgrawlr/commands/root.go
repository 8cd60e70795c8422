package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/HRemonen/ljgrawlr/internal/config"
	"github.com/HRemonen/ljgrawlr/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "ljgrawlr",
	Short:         "ljgrawlr crawls a LiveJournal journal and writes one file per entry.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "The configuration file to read.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Overrides log_level from the configuration (debug, info, warn, error).")
}

// ExecuteContext runs the command line and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the process logger, preferring --log-level over the
// configured level.
func newLogger(configured string) (*slog.Logger, error) {
	name := configured
	if logLevel != "" {
		name = logLevel
	}

	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, err
	}

	logger := logging.New(os.Stderr, level)
	slog.SetDefault(logger)

	return logger, nil
}
