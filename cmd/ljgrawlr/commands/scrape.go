package commands

import (
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	grawlr "github.com/HRemonen/ljgrawlr"
	"github.com/HRemonen/ljgrawlr/internal/auth"
	"github.com/HRemonen/ljgrawlr/internal/config"
	"github.com/HRemonen/ljgrawlr/internal/crawler"
	"github.com/HRemonen/ljgrawlr/internal/logging"
	"github.com/HRemonen/ljgrawlr/internal/parser"
	"github.com/HRemonen/ljgrawlr/internal/records"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--config <path>] [--log-level <level>]",
	Short: "Crawls the configured journal and writes one file per entry in the date window.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}

		blog, err := url.Parse(cfg.BlogURL)
		if err != nil {
			return &config.Error{Field: "blog_url", Reason: err.Error()}
		}

		window, err := cfg.Window()
		if err != nil {
			return err
		}

		tags, err := cfg.TagFilter()
		if err != nil {
			return err
		}

		haltMode, err := crawler.ParseHaltMode(cfg.ScrapingSettings.HaltMode)
		if err != nil {
			return &config.Error{Field: "scraping_settings.halt_mode", Reason: err.Error()}
		}

		dir, err := records.JournalDir(cfg.OutputDir, cfg.BlogURL)
		if err != nil {
			return &config.Error{Field: "blog_url", Reason: err.Error()}
		}

		writer, err := records.NewWriter(dir)
		if err != nil {
			return err
		}

		s := cfg.ScrapingSettings

		var cookies []*http.Cookie
		if cfg.Login {
			username, password, err := credentials(os.Stdin, cmd.ErrOrStderr(), os.Getenv)
			if err != nil {
				return err
			}

			client, err := auth.NewClient(auth.Options{
				BaseURL:   cfg.AuthURL,
				UserAgent: s.UserAgent,
				Timeout:   s.Timeout(),
			})
			if err != nil {
				return err
			}

			session, err := client.Authenticate(ctx, username, password)
			if err != nil {
				return err
			}

			logger.Info("logged in", "username", session.Username)
			cookies = session.Cookies()
		}

		harvester := grawlr.NewHarvester(
			grawlr.WithContext(ctx),
			grawlr.WithUserAgent(s.UserAgent),
			grawlr.WithCookies(cookies),
			grawlr.WithMaxRetries(s.MaxRetries),
			grawlr.WithBackoff(s.Backoff()),
			grawlr.WithDelay(s.Delay()),
			grawlr.WithTimeout(s.Timeout()),
			grawlr.WithIgnoreRobots(*s.IgnoreRobots),
			grawlr.WithLogger(logger),
		)

		controller := crawler.NewController(harvester, writer, blog, window, tags,
			crawler.WithMaxPages(s.MaxPages),
			crawler.WithPageSize(s.PageSize),
			crawler.WithHaltMode(haltMode),
			crawler.WithBodyFormat(parser.BodyFormat(s.BodyFormat)),
			crawler.WithStopAfterSavedYear(*s.StopAfterSavedYear),
			crawler.WithObserver(logging.NewObserver(logger)),
			crawler.WithFileCounter(func() (int, error) {
				return records.Count(writer.Dir())
			}),
		)

		logger.Info("starting crawl", "blog", blog.String(), "window", window.String(), "output", writer.Dir())

		summary := controller.Run(ctx)
		renderSummary(cmd.OutOrStdout(), summary, writer.Dir())

		return nil
	},
}
