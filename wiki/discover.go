// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/nulfrost/hotwheels-api/utils/htmlutils"
)

const (
	designerLinkSelector = ".category-page__members a.category-page__member-link"
	yearLinkSelector     = `a[href*="List_of_"]`
	hotwheelRowSelector  = "table.wikitable tbody tr"
	hotwheelLinkSelector = "td:nth-child(2) a"
)

var yearLinkRegex = regexp.MustCompile(`List_of_(\d{4})_Hot_Wheels`)

// YearLink is the index page listing the releases of one year.
type YearLink struct {
	Year int    `json:"year"`
	URL  string `json:"url"`
}

// collects the resolved href of every anchor in sel, in document order.
func (c *Client) hrefs(sel *goquery.Selection) []string {
	var links []string

	sel.Each(func(_ int, a *goquery.Selection) {
		href, ok := htmlutils.Attr(a, "href")
		if !ok || href == "" {
			return
		}

		link, err := c.resolve(href)
		if err != nil {
			return
		}

		links = append(links, link)
	})

	return links
}

func (c *Client) parseDesignerLinks(doc *goquery.Document) []string {
	return c.hrefs(doc.Find(designerLinkSelector))
}

// DesignerLinks returns the absolute URL of every designer listed on the
// designers category page. Duplicates are kept.
func (c *Client) DesignerLinks(ctx context.Context) ([]string, error) {
	start, err := c.resolve(c.options.DesignersPath)
	if err != nil {
		return nil, err
	}

	doc, err := c.fetchDocument(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("fetching designers category: %w", err)
	}

	return c.parseDesignerLinks(doc), nil
}

// yearOf returns the year a yearly index link is about.
func yearOf(href string) (int, bool) {
	m := yearLinkRegex.FindStringSubmatch(href)
	if m == nil {
		return 0, false
	}

	year, err := strconv.Atoi(m[1])

	return year, err == nil
}

// YearLink turns the address of a yearly index page into a YearLink.
func (c *Client) YearLink(rawURL string) (YearLink, error) {
	year, ok := yearOf(rawURL)
	if !ok {
		return YearLink{}, fmt.Errorf("%q is not a yearly index page", rawURL)
	}

	link, err := c.resolve(rawURL)
	if err != nil {
		return YearLink{}, err
	}

	return YearLink{Year: year, URL: link}, nil
}

func (c *Client) parseYearLinks(doc *goquery.Document) []YearLink {
	var years []YearLink

	seen := map[int]bool{}

	doc.Find(yearLinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := htmlutils.Attr(a, "href")

		year, ok := yearOf(href)
		if !ok || seen[year] {
			return
		}

		link, err := c.resolve(href)
		if err != nil {
			return
		}

		seen[year] = true
		years = append(years, YearLink{Year: year, URL: link})
	})

	slices.SortFunc(years, func(a, b YearLink) int {
		return cmp.Compare(a.Year, b.Year)
	})

	return years
}

// YearLinks returns one index page per year, ascending by year. When a year
// is linked more than once the first link wins.
func (c *Client) YearLinks(ctx context.Context) ([]YearLink, error) {
	start, err := c.resolve(c.options.HotwheelsPath)
	if err != nil {
		return nil, err
	}

	doc, err := c.fetchDocument(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("fetching hotwheels index: %w", err)
	}

	return c.parseYearLinks(doc), nil
}

func (c *Client) parseHotwheelLinks(doc *goquery.Document) []string {
	var links []string

	doc.Find(hotwheelRowSelector).Each(func(_ int, tr *goquery.Selection) {
		if found := c.hrefs(tr.Find(hotwheelLinkSelector).First()); len(found) > 0 {
			links = append(links, found[0])
		}
	})

	return links
}

// HotwheelLinks returns the detail page of every release listed on a year
// index page, in row order.
func (c *Client) HotwheelLinks(ctx context.Context, year YearLink) ([]string, error) {
	doc, err := c.fetchDocument(ctx, year.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching %d index: %w", year.Year, err)
	}

	return c.parseHotwheelLinks(doc), nil
}
