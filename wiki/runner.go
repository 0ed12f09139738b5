// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Names at least this similar to an unresolved designer are suggested in the
// warning.
const suggestionThreshold = 0.9

// DesignerMetrics tracks statistics about a designer run.
type DesignerMetrics struct {
	DesignerLinks   int
	DesignersSaved  int
	DesignersFailed int
}

// Merge combines two DesignerMetrics.
func (m *DesignerMetrics) Merge(o *DesignerMetrics) *DesignerMetrics {
	m.DesignerLinks += o.DesignerLinks
	m.DesignersSaved += o.DesignersSaved
	m.DesignersFailed += o.DesignersFailed

	return m
}

// HotwheelMetrics tracks statistics about a hotwheel run.
type HotwheelMetrics struct {
	Years             int
	YearsFailed       int
	HotwheelLinks     int
	HotwheelsScraped  int
	HotwheelsFailed   int
	HotwheelsSaved    int
	HotwheelsNotSaved int
	LinksCreated      int
	DesignersNotFound int
}

// Merge combines two HotwheelMetrics.
func (m *HotwheelMetrics) Merge(o *HotwheelMetrics) *HotwheelMetrics {
	m.Years += o.Years
	m.YearsFailed += o.YearsFailed
	m.HotwheelLinks += o.HotwheelLinks
	m.HotwheelsScraped += o.HotwheelsScraped
	m.HotwheelsFailed += o.HotwheelsFailed
	m.HotwheelsSaved += o.HotwheelsSaved
	m.HotwheelsNotSaved += o.HotwheelsNotSaved
	m.LinksCreated += o.LinksCreated
	m.DesignersNotFound += o.DesignersNotFound

	return m
}

// RunMetrics tracks various metrics collected during runs.
type RunMetrics struct {
	DesignerMetrics
	HotwheelMetrics
}

// Merge combines the metrics from another RunMetrics instance into this one.
func (m *RunMetrics) Merge(other *RunMetrics) *RunMetrics {
	if other == nil {
		return m
	}

	m.DesignerMetrics.Merge(&other.DesignerMetrics)
	m.HotwheelMetrics.Merge(&other.HotwheelMetrics)

	return m
}

// Runner clears the repository and fills it again from the wiki.
type Runner struct {
	client  *Client
	repo    Repository
	log     logrus.FieldLogger
	Metrics RunMetrics
}

// NewRunner creates a runner scraping with client into repo.
func NewRunner(client *Client, repo Repository, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Runner{client: client, repo: repo, log: log}
}

func newProgressBar(n int, description string) *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}

	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// scrapeAll calls scrape for every link and handle with each outcome, in
// link order. Up to procs links are scraped at once; handle always runs on
// the calling goroutine. Once ctx is done no further outcome is handled.
func scrapeAll[T any](
	ctx context.Context,
	links []string,
	procs int,
	scrape func(context.Context, string) (T, error),
	handle func(link string, item T, err error),
) error {
	if procs <= 1 {
		for _, link := range links {
			if err := ctx.Err(); err != nil {
				return err
			}

			item, err := scrape(ctx, link)
			handle(link, item, err)
		}

		return ctx.Err()
	}

	type outcome struct {
		item T
		err  error
	}

	outcomes := make([]outcome, len(links))
	ready := make([]chan struct{}, len(links))

	for i := range ready {
		ready[i] = make(chan struct{})
	}

	var g errgroup.Group
	g.SetLimit(procs)

	fed := make(chan struct{})

	go func() {
		defer close(fed)

		for i, link := range links {
			if ctx.Err() != nil {
				return
			}

			g.Go(func() error {
				defer close(ready[i])

				outcomes[i].item, outcomes[i].err = scrape(ctx, link)

				return nil
			})
		}
	}()

	for i, link := range links {
		select {
		case <-ready[i]:
		case <-ctx.Done():
		}

		if ctx.Err() != nil {
			break
		}

		handle(link, outcomes[i].item, outcomes[i].err)
	}

	<-fed
	_ = g.Wait()

	return ctx.Err()
}

// RunDesigners replaces every stored designer with the ones listed on the
// wiki. A page that fails is logged and skipped.
func (r *Runner) RunDesigners(ctx context.Context) error {
	if err := r.repo.ClearDesigners(ctx); err != nil {
		return &RunError{Stage: StageClear, Err: err}
	}

	links, err := r.client.DesignerLinks(ctx)
	if err != nil {
		return &RunError{Stage: StageDiscover, Err: err}
	}

	metrics := DesignerMetrics{DesignerLinks: len(links)}
	bar := newProgressBar(len(links), "Scraping designers")

	err = scrapeAll(ctx, links, r.client.options.Concurrency,
		func(ctx context.Context, link string) (*Designer, error) {
			if bar == nil {
				r.log.Infof("Scraping designer: %s", link)
			}

			return r.client.ScrapeDesigner(ctx, link)
		},
		func(link string, d *Designer, err error) {
			if bar != nil {
				_ = bar.Add(1)
			}

			if err == nil {
				_, err = r.repo.SaveDesigner(ctx, d)
			}

			if err != nil {
				var itemErr *ItemError
				if errors.As(err, &itemErr) {
					err = itemErr.Err
				}

				metrics.DesignersFailed++
				r.log.Warnf("Failed to fetch designer from %s: %v", link, err)

				return
			}

			metrics.DesignersSaved++
			if bar == nil {
				r.log.Infof("Inserted designer: %s", d.Name)
			}
		},
	)

	r.Metrics.DesignerMetrics.Merge(&metrics)

	if err != nil {
		return &RunError{Stage: StageScrape, Err: err}
	}

	r.log.Infof("Scraped a total of %d designers.", metrics.DesignersSaved)

	return nil
}

// closest returns the known name most similar to name, if similar enough.
func closest(name string, known []string) (string, bool) {
	best, score := "", 0.0
	lower := strings.ToLower(name)

	for _, k := range known {
		if s := matchr.JaroWinkler(lower, strings.ToLower(k), false); s > score {
			best, score = k, s
		}
	}

	return best, score >= suggestionThreshold
}

// scrapeYears extracts every hotwheel of every year, ascending by year.
func (r *Runner) scrapeYears(ctx context.Context, years []YearLink, metrics *HotwheelMetrics) ([]*Hotwheel, error) {
	var hotwheels []*Hotwheel

	for _, year := range years {
		r.log.Infof("Scraping %d from %s", year.Year, year.URL)

		links, err := r.client.HotwheelLinks(ctx, year)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			metrics.YearsFailed++
			r.log.Warnf("Failed to fetch year index %d from %s: %v", year.Year, year.URL, err)

			continue
		}

		metrics.HotwheelLinks += len(links)
		bar := newProgressBar(len(links), fmt.Sprintf("Scraping %d", year.Year))

		err = scrapeAll(ctx, links, r.client.options.Concurrency,
			func(ctx context.Context, link string) (*Hotwheel, error) {
				if bar == nil {
					r.log.Infof("Fetching hotwheel details from %s", link)
				}

				return r.client.ScrapeHotwheel(ctx, link)
			},
			func(link string, h *Hotwheel, err error) {
				if bar != nil {
					_ = bar.Add(1)
				}

				if err != nil {
					var itemErr *ItemError
					if errors.As(err, &itemErr) {
						err = itemErr.Err
					}

					metrics.HotwheelsFailed++
					r.log.Warnf("Failed to fetch hotwheel from %s: %v", link, err)

					return
				}

				hotwheels = append(hotwheels, h)
			},
		)
		if err != nil {
			return nil, err
		}
	}

	metrics.HotwheelsScraped = len(hotwheels)

	return hotwheels, nil
}

// saveHotwheel stores h and links it to every designer that resolves. A
// designer that doesn't resolve is skipped without undoing the insert.
func (r *Runner) saveHotwheel(ctx context.Context, h *Hotwheel, known []string, metrics *HotwheelMetrics) error {
	id, err := r.repo.SaveHotwheel(ctx, h)
	if err != nil {
		return err
	}

	metrics.HotwheelsSaved++

	for _, name := range h.Designers {
		designerID, err := r.repo.FindDesignerID(ctx, name)
		if errors.Is(err, ErrDesignerNotFound) {
			metrics.DesignersNotFound++

			if match, ok := closest(name, known); ok {
				r.log.Warnf("Designer not found in DB: %s (closest match: %s)", name, match)
			} else {
				r.log.Warnf("Designer not found in DB: %s", name)
			}

			continue
		}

		if err != nil {
			return err
		}

		created, err := r.repo.LinkDesigner(ctx, id, designerID)
		if err != nil {
			return err
		}

		if created {
			metrics.LinksCreated++
		}
	}

	return nil
}

// RunHotwheels replaces every stored hotwheel with the ones listed on the
// yearly index pages and links them to the stored designers by name.
func (r *Runner) RunHotwheels(ctx context.Context) error {
	if err := r.repo.ClearHotwheels(ctx); err != nil {
		return &RunError{Stage: StageClear, Err: err}
	}

	known, err := r.repo.DesignerNames(ctx)
	if err != nil {
		return &RunError{Stage: StageDiscover, Err: err}
	}

	if len(known) == 0 {
		r.log.Warn("No designers stored, hotwheels won't be linked to any designer")
	}

	years, err := r.client.YearLinks(ctx)
	if err != nil {
		return &RunError{Stage: StageDiscover, Err: err}
	}

	metrics := HotwheelMetrics{Years: len(years)}
	defer r.Metrics.HotwheelMetrics.Merge(&metrics)

	hotwheels, err := r.scrapeYears(ctx, years, &metrics)
	if err != nil {
		return &RunError{Stage: StageScrape, Err: err}
	}

	for _, h := range hotwheels {
		if err := ctx.Err(); err != nil {
			return &RunError{Stage: StageScrape, Err: err}
		}

		if err := r.saveHotwheel(ctx, h, known, &metrics); err != nil {
			metrics.HotwheelsNotSaved++
			r.log.Errorf("Failed to insert %s: %v", h.Name, err)

			continue
		}

		r.log.Infof("Inserted and linked hotwheel: %s", h.Name)
	}

	r.log.Infof("Scraped a total of %d hotwheels across %d years.", len(hotwheels), len(years))

	return nil
}
