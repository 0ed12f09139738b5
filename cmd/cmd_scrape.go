// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nulfrost/hotwheels-api/utils/httputils"
	"github.com/nulfrost/hotwheels-api/wiki"
)

// addWikiFlags registers the flags every command talking to the wiki takes.
func addWikiFlags(cmd *cobra.Command) {
	defaults := wiki.DefaultOptions()

	cmd.PersistentFlags().String("base-url", defaults.BaseURL, "Wiki origin")
	cmd.PersistentFlags().StringSlice(
		"exclude",
		defaults.ExcludedDesigners,
		"Drop designer names containing this word (repeatable)",
	)
	cmd.PersistentFlags().Int("retries", httputils.DefaultAttempts, "Attempts per page before giving up")
	cmd.PersistentFlags().Duration("retry-delay", httputils.DefaultDelay, "Pause between attempts")
	cmd.PersistentFlags().Duration("timeout", 30*time.Second, "Timeout of a single attempt")
	cmd.PersistentFlags().Int("concurrency", defaults.Concurrency, "Detail pages fetched at once")
	cmd.PersistentFlags().Float64("rps", 0, "Maximum requests per second, 0 disables throttling")
	cmd.PersistentFlags().String("user-agent", "", "User-Agent header (default hotwheels-api/<version>)")
	cmd.PersistentFlags().Bool("trace-http", false, "Log HTTP requests and responses to stderr")
	cmd.PersistentFlags().Bool("trace-http-body", false, "Include bodies when tracing HTTP")
}

// scrapeOptions resolves the wiki flags into client options.
func scrapeOptions() *wiki.Options {
	opts := wiki.DefaultOptions()
	opts.BaseURL = viper.GetString("base-url")
	opts.ExcludedDesigners = viper.GetStringSlice("exclude")
	opts.Attempts = viper.GetInt("retries")
	opts.RetryDelay = viper.GetDuration("retry-delay")
	opts.Timeout = viper.GetDuration("timeout")
	opts.Concurrency = viper.GetInt("concurrency")
	opts.RequestsPerSecond = viper.GetFloat64("rps")
	opts.EnableHTTPTrace = viper.GetBool("trace-http")
	opts.EnableHTTPBodyTrace = viper.GetBool("trace-http-body")

	opts.UserAgent = viper.GetString("user-agent")
	if opts.UserAgent == "" {
		opts.UserAgent = fmt.Sprintf("hotwheels-api/%s (+https://github.com/nulfrost/hotwheels-api)", Version)
	}

	return opts
}

func logMetrics(m *wiki.RunMetrics, designers, hotwheels bool) {
	if designers {
		log.Infof(
			"Total designer metrics - %d saved, %d failed from %d links",
			m.DesignersSaved,
			m.DesignersFailed,
			m.DesignerLinks,
		)
	}

	if hotwheels {
		log.Infof(
			"Total hotwheel metrics - %d saved, %d not saved, %d failed from %d links across %d years (%d unreachable)",
			m.HotwheelsSaved,
			m.HotwheelsNotSaved,
			m.HotwheelsFailed,
			m.HotwheelLinks,
			m.Years,
			m.YearsFailed,
		)
		log.Infof(
			"Total linking metrics - %d links created, %d designers not found",
			m.LinksCreated,
			m.DesignersNotFound,
		)
	}
}

// scrape runs the requested stages, designers first.
func scrape(ctx context.Context, designers, hotwheels bool) error {
	client, err := wiki.NewClient(scrapeOptions(), log)
	if err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	runner := wiki.NewRunner(client, repo, log)

	if designers {
		err = runner.RunDesigners(ctx)
	}

	if err == nil && hotwheels {
		err = runner.RunHotwheels(ctx)
	}

	logMetrics(&runner.Metrics, designers, hotwheels)

	return err
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the wiki into the database",
	Long: `Every stage replaces what a previous run stored: designers must be
scraped before hotwheels so releases can be linked to them by name.`,
}

var scrapeDesignersCmd = &cobra.Command{
	Use:   "designers",
	Short: "Replace the stored designers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return scrape(cmd.Context(), true, false)
	},
}

var scrapeHotwheelsCmd = &cobra.Command{
	Use:   "hotwheels",
	Short: "Replace the stored hotwheels and their designer links",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return scrape(cmd.Context(), false, true)
	},
}

var scrapeAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Scrape designers, then hotwheels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return scrape(cmd.Context(), true, true)
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.AddCommand(scrapeDesignersCmd)
	scrapeCmd.AddCommand(scrapeHotwheelsCmd)
	scrapeCmd.AddCommand(scrapeAllCmd)
	addWikiFlags(scrapeCmd)
}
