// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

// Package wiki crawls the Hot Wheels fandom wiki: it discovers index pages,
// extracts designers and hotwheels from detail pages and reconciles both
// into a Repository.
package wiki

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/nulfrost/hotwheels-api/utils/htmlutils"
	"github.com/nulfrost/hotwheels-api/utils/httputils"
)

// Client fetches and extracts wiki pages.
type Client struct {
	fetcher *httputils.Fetcher
	base    *url.URL
	options *Options
}

// NewClient creates a new client with the provided options.
func NewClient(options *Options, log logrus.FieldLogger) (*Client, error) {
	if options == nil {
		options = DefaultOptions()
	}

	base, err := url.Parse(options.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	if !base.IsAbs() {
		return nil, fmt.Errorf("base url %q is not absolute", options.BaseURL)
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	userAgent := DefaultUserAgent
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	fetcher := httputils.NewFetcher(httputils.ClientOptions{
		Policy: httputils.RetryPolicy{
			Attempts: options.Attempts,
			Delay:    options.RetryDelay,
		},
		Timeout:           options.Timeout,
		UserAgent:         userAgent,
		RequestsPerSecond: options.RequestsPerSecond,
		TraceWriter:       httpLogWriter,
		TraceBody:         options.EnableHTTPBodyTrace,
		Logger:            log,
	})

	return &Client{
		fetcher: fetcher,
		base:    base,
		options: options,
	}, nil
}

// Options returns the options the client was built with.
func (c *Client) Options() *Options {
	return c.options
}

// resolve makes a wiki link absolute.
func (c *Client) resolve(href string) (string, error) {
	return htmlutils.Resolve(c.base, href)
}

func (c *Client) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	page, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := htmlutils.Parse(page.Body, page.ContentType)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}

	return doc, nil
}
