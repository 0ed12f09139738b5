// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nulfrost/hotwheels-api/wiki"
)

// stdin may be a pipe, a file or a terminal; for anything we can't stat
// we say that it isn't.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

// eachURL calls fn with every argument, or with every non-blank line of
// input when there are none.
func eachURL(args []string, input io.Reader, fn func(string)) error {
	if len(args) > 0 {
		for _, arg := range args {
			fn(arg)
		}

		return nil
	}

	if f, ok := input.(*os.File); ok && isTerminal(f) {
		fmt.Fprintln(os.Stderr, "Enter the pages to scrape, one per line…")
	}

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fn(line)
		}
	}

	return scanner.Err()
}

// printResult writes url followed by v as JSON, or by the error.
func printResult(w io.Writer, url string, v any, err error) {
	if err != nil {
		fmt.Fprintf(w, "%s\t%q\n", url, err)

		return
	}

	s, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(w, "%s\t%q\n", url, err)

		return
	}

	fmt.Fprintf(w, "%s\t\t%s\n", url, s)
}

func debugClient() (*wiki.Client, error) {
	return wiki.NewClient(scrapeOptions(), log)
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugDesignerCmd = &cobra.Command{
	Use:   "designer [url...]",
	Short: "Extract designer pages without storing them",
	Long: `Reads one designer page URL per argument, or per line of stdin, and prints
the URL followed by the extracted designer.

$ hotwheels debug designer https://hotwheels.fandom.com/wiki/Larry_Wood
https://hotwheels.fandom.com/wiki/Larry_Wood		{"id":0,"name":"Larry Wood",…}
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := debugClient()
		if err != nil {
			return err
		}

		return eachURL(args, cmd.InOrStdin(), func(url string) {
			d, err := c.ScrapeDesigner(cmd.Context(), url)
			printResult(cmd.OutOrStdout(), url, d, err)
		})
	},
}

var debugHotwheelCmd = &cobra.Command{
	Use:   "hotwheel [url...]",
	Short: "Extract hotwheel pages without storing them",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := debugClient()
		if err != nil {
			return err
		}

		return eachURL(args, cmd.InOrStdin(), func(url string) {
			h, err := c.ScrapeHotwheel(cmd.Context(), url)
			printResult(cmd.OutOrStdout(), url, h, err)
		})
	},
}

var debugYearsCmd = &cobra.Command{
	Use:   "years",
	Short: "List the yearly index pages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := debugClient()
		if err != nil {
			return err
		}

		years, err := c.YearLinks(cmd.Context())
		if err != nil {
			return err
		}

		return printJSONLines(cmd.OutOrStdout(), years)
	},
}

var debugLinksCmd = &cobra.Command{
	Use:   "links <year-url>",
	Short: "List the hotwheel pages of a yearly index page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := debugClient()
		if err != nil {
			return err
		}

		return printYearLinks(cmd.Context(), cmd.OutOrStdout(), c, args[0])
	},
}

// printYearLinks writes the hotwheel pages of a yearly index, one per line.
func printYearLinks(ctx context.Context, w io.Writer, c *wiki.Client, rawURL string) error {
	year, err := c.YearLink(rawURL)
	if err != nil {
		return err
	}

	links, err := c.HotwheelLinks(ctx, year)
	if err != nil {
		return err
	}

	for _, link := range links {
		if _, err := fmt.Fprintln(w, link); err != nil {
			return err
		}
	}

	return nil
}

func printJSONLines[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}

	return nil
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugDesignerCmd)
	debugCmd.AddCommand(debugHotwheelCmd)
	debugCmd.AddCommand(debugYearsCmd)
	debugCmd.AddCommand(debugLinksCmd)
	addWikiFlags(debugCmd)
}
