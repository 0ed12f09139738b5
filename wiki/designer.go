// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/PuerkitoBio/goquery"

	"github.com/nulfrost/hotwheels-api/utils/htmlutils"
)

const (
	headingSelector     = "h1.page-header__title"
	titleSelector       = `[data-source="title"] .pi-data-value`
	descriptionSelector = ".mw-content-ltr.mw-parser-output > p"
)

// Designer is a person credited on hotwheel pages.
type Designer struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Hotwheels   []string `json:"hotwheels,omitempty"`
}

// MarshalJSON renders a missing description as null.
func (d Designer) MarshalJSON() ([]byte, error) {
	type designer Designer

	return json.Marshal(struct {
		designer
		Description *string `json:"description"`
	}{
		designer:    designer(d),
		Description: optional(d.Description),
	})
}

var errNoHeading = errors.New("page has no heading")

func parseDesigner(doc *goquery.Document) (*Designer, error) {
	d := &Designer{
		Name:  htmlutils.Text(doc.Find(headingSelector)),
		Title: htmlutils.Text(doc.Find(titleSelector).First()),
	}

	if d.Name == "" {
		return nil, errNoHeading
	}

	if d.Title == "" {
		d.Title = DefaultTitle
	}

	d.Description = htmlutils.Text(htmlutils.First(doc.Find(descriptionSelector), htmlutils.NonEmpty))

	return d, nil
}

// ScrapeDesigner fetches and extracts one designer page. Failures are
// reported as an *ItemError.
func (c *Client) ScrapeDesigner(ctx context.Context, rawURL string) (*Designer, error) {
	doc, err := c.fetchDocument(ctx, rawURL)
	if err != nil {
		return nil, &ItemError{Kind: ItemDesigner, URL: rawURL, Err: err}
	}

	d, err := parseDesigner(doc)
	if err != nil {
		return nil, &ItemError{Kind: ItemDesigner, URL: rawURL, Err: err}
	}

	return d, nil
}
