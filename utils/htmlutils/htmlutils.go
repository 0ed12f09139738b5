// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Validates that the media type seems to be an HTML one. An empty media type
// is accepted, wiki fixtures and some proxies don't send one.
func hasHTMLContentType(media string) bool {
	const expectedMedia = "text/html"

	if media == "" {
		return true
	}

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// AsReader wraps body in a reader that decodes the charset announced by
// contentType (or sniffed from the document) into UTF-8.
func AsReader(body []byte, contentType string) (io.Reader, error) {
	if !hasHTMLContentType(contentType) {
		return nil, fmt.Errorf("media type is %s", contentType)
	}

	rr, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding charset: %w", err)
	}

	return rr, nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}

// Parse decodes body and returns a queryable document.
func Parse(body []byte, contentType string) (*goquery.Document, error) {
	r, err := AsReader(body, contentType)
	if err != nil {
		return nil, err
	}

	n, err := AsNode(r)
	if err != nil {
		return nil, err
	}

	return goquery.NewDocumentFromNode(n), nil
}

// Text returns the trimmed text content of every node in sel.
func Text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

// Attr returns the value of attribute name on the first node of sel.
func Attr(sel *goquery.Selection, name string) (string, bool) {
	v, ok := sel.First().Attr(name)
	if !ok {
		return "", false
	}

	return strings.TrimSpace(v), true
}

// First returns the first node of sel satisfying pred, or an empty selection.
// Nodes after the match are never visited.
func First(sel *goquery.Selection, pred func(*goquery.Selection) bool) *goquery.Selection {
	var found *goquery.Selection

	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if pred(s) {
			found = s

			return false
		}

		return true
	})

	if found == nil {
		return sel.Slice(0, 0)
	}

	return found
}

// NonEmpty is a First predicate matching nodes with some trimmed text.
func NonEmpty(s *goquery.Selection) bool {
	return Text(s) != ""
}

// Resolve makes href absolute relative to base.
func Resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parsing link %q: %w", href, err)
	}

	return base.ResolveReference(ref).String(), nil
}
