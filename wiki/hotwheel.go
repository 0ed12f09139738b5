// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"

	"github.com/nulfrost/hotwheels-api/utils/htmlutils"
)

const (
	infoboxSelector      = ".portable-infobox"
	infoboxTitleSelector = "h2.pi-item"
	infoboxImageSelector = "figure img"
	infoboxYearSelector  = `.pi-item a[href*="/wiki/"]`
	infoboxItemSelector  = ".pi-item"
	infoboxLabelSelector = ".pi-data-label"
	infoboxValueSelector = ".pi-data-value"
	infoboxValueLinks    = ".pi-data-value a"
	labelSeries          = "series"
	labelDesigner        = "designer"
	labelNumber          = "number"
)

var yearRegex = regexp.MustCompile(`^\d{4}$`)

// Hotwheel is one release listed on a year index page. Designers holds the
// names credited on the page; it is resolved into links when stored.
type Hotwheel struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	ImageURL    string   `json:"image_url"`
	Year        string   `json:"year"`
	Series      string   `json:"series"`
	ModelNumber string   `json:"model_number"`
	Designers   []string `json:"designers"`
}

// optional turns an absent (empty) field into a JSON null.
func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// MarshalJSON renders the fields missing from the page as null.
func (h Hotwheel) MarshalJSON() ([]byte, error) {
	type hotwheel Hotwheel

	return json.Marshal(struct {
		hotwheel
		ImageURL    *string `json:"image_url"`
		Year        *string `json:"year"`
		Series      *string `json:"series"`
		ModelNumber *string `json:"model_number"`
	}{
		hotwheel:    hotwheel(h),
		ImageURL:    optional(h.ImageURL),
		Year:        optional(h.Year),
		Series:      optional(h.Series),
		ModelNumber: optional(h.ModelNumber),
	})
}

// excluded reports whether name contains one of words, ignoring case.
func excluded(name string, words []string) bool {
	fold := cases.Fold()
	folded := fold.String(name)

	for _, w := range words {
		if w == "" {
			continue
		}

		if strings.Contains(folded, fold.String(w)) {
			return true
		}
	}

	return false
}

func designerNames(value *goquery.Selection, exclude []string) []string {
	names := []string{}

	value.Each(func(_ int, a *goquery.Selection) {
		name := htmlutils.Text(a)
		if name == "" || excluded(name, exclude) {
			return
		}

		names = append(names, name)
	})

	return names
}

func parseHotwheel(doc *goquery.Document, exclude []string) (*Hotwheel, error) {
	infobox := doc.Find(infoboxSelector)

	h := &Hotwheel{
		Name:      htmlutils.Text(infobox.Find(infoboxTitleSelector).First()),
		Designers: []string{},
	}

	if h.Name == "" {
		h.Name = htmlutils.Text(doc.Find(headingSelector))
	}

	if h.Name == "" {
		return nil, errNoHeading
	}

	h.ImageURL, _ = htmlutils.Attr(infobox.Find(infoboxImageSelector), "src")

	year := htmlutils.First(infobox.Find(infoboxYearSelector), func(a *goquery.Selection) bool {
		return yearRegex.MatchString(htmlutils.Text(a))
	})
	h.Year = htmlutils.Text(year)

	infobox.Find(infoboxItemSelector).Each(func(_ int, item *goquery.Selection) {
		label := strings.ToLower(htmlutils.Text(item.Find(infoboxLabelSelector)))

		switch {
		case strings.Contains(label, labelSeries):
			h.Series = htmlutils.Text(item.Find(infoboxValueSelector))
		case strings.Contains(label, labelDesigner):
			h.Designers = designerNames(item.Find(infoboxValueLinks), exclude)
		case strings.Contains(label, labelNumber):
			h.ModelNumber = htmlutils.Text(item.Find(infoboxValueSelector))
		}
	})

	return h, nil
}

// ScrapeHotwheel fetches and extracts one hotwheel page. Failures are
// reported as an *ItemError.
func (c *Client) ScrapeHotwheel(ctx context.Context, rawURL string) (*Hotwheel, error) {
	doc, err := c.fetchDocument(ctx, rawURL)
	if err != nil {
		return nil, &ItemError{Kind: ItemHotwheel, URL: rawURL, Err: err}
	}

	h, err := parseHotwheel(doc, c.options.ExcludedDesigners)
	if err != nil {
		return nil, &ItemError{Kind: ItemHotwheel, URL: rawURL, Err: err}
	}

	return h, nil
}
