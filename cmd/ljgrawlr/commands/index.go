package commands

import (
	"github.com/spf13/cobra"

	"github.com/HRemonen/ljgrawlr/internal/config"
	"github.com/HRemonen/ljgrawlr/internal/records"
)

var indexDir string

func init() {
	indexCmd.Flags().StringVar(&indexDir, "dir", "", "The record directory to index. Defaults to the configured journal directory.")
	rootCmd.AddCommand(indexCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index [--dir <path>]",
	Short: "Reads saved records and prints them grouped by year and by tag.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := indexDir
		if dir == "" {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			dir, err = records.JournalDir(cfg.OutputDir, cfg.BlogURL)
			if err != nil {
				return err
			}
		}

		list, err := records.List(dir)
		if err != nil {
			return err
		}

		renderIndex(cmd.OutOrStdout(), records.BuildIndex(list), list)

		return nil
	},
}
