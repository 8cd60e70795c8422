package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HRemonen/ljgrawlr/internal/config"
	"github.com/HRemonen/ljgrawlr/internal/records"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate [--config <path>]",
	Short: "Checks the configuration without touching the network.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		window, err := cfg.Window()
		if err != nil {
			return err
		}

		dir, err := records.JournalDir(cfg.OutputDir, cfg.BlogURL)
		if err != nil {
			return &config.Error{Field: "blog_url", Reason: err.Error()}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %s %s -> %s\n", configPath, cfg.BlogURL, window, dir)

		return nil
	},
}
