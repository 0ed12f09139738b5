// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/nulfrost/hotwheels-api/store"
	"github.com/nulfrost/hotwheels-api/utils/htmlutils"
)

const testBaseURL = "https://hotwheels.fandom.com"

func page(body string) string {
	return "<!DOCTYPE html><html><head><title>Fandom</title></head><body>" + body + "</body></html>"
}

func designerPage(name, title, paragraphs string) string {
	infobox := ""
	if title != "" {
		infobox = fmt.Sprintf(`<aside class="portable-infobox">
			<div class="pi-item pi-data" data-source="title">
				<h3 class="pi-data-label">Title</h3>
				<div class="pi-data-value"> %s </div>
			</div>
		</aside>`, title)
	}

	return page(fmt.Sprintf(`<h1 class="page-header__title"> %s </h1>%s
		<div class="mw-content-ltr mw-parser-output">%s</div>`, name, infobox, paragraphs))
}

// infoItem renders one infobox data item.
func infoItem(label, value string) string {
	return fmt.Sprintf(`<div class="pi-item pi-data">
		<h3 class="pi-data-label"> %s </h3>
		<div class="pi-data-value">%s</div>
	</div>`, label, value)
}

func links(names ...string) string {
	var sb strings.Builder

	for i, n := range names {
		if i > 0 {
			sb.WriteString(", ")
		}

		fmt.Fprintf(&sb, `<a href="/wiki/%s">%s</a>`, strings.ReplaceAll(n, " ", "_"), n)
	}

	return sb.String()
}

func hotwheelPage(title string, items ...string) string {
	return page(fmt.Sprintf(`<h1 class="page-header__title">%s (page)</h1>
		<aside class="portable-infobox">
			<h2 class="pi-item pi-title">%s</h2>
			<figure class="pi-item pi-image"><a href="/wiki/File:%s.png"><img src="https://static.wikia.test/%s.png"></a></figure>
			%s
		</aside>`, title, title, title, title, strings.Join(items, "\n")))
}

func yearIndexPage(hrefs ...string) string {
	var sb strings.Builder

	sb.WriteString(`<table class="wikitable"><tbody><tr><th>#</th><th>Name</th></tr>`)

	for i, href := range hrefs {
		cell := "Unlisted"
		if href != "" {
			cell = fmt.Sprintf(`<a href="%s">Model %d</a>`, href, i)
		}

		fmt.Fprintf(&sb, "<tr><td>%d</td><td>%s</td></tr>", i, cell)
	}

	sb.WriteString("</tbody></table>")

	return page(sb.String())
}

func categoryPage(hrefs ...string) string {
	var sb strings.Builder

	sb.WriteString(`<div class="category-page__members"><ul>`)

	for _, href := range hrefs {
		fmt.Fprintf(&sb, `<li><a class="category-page__member-link" href="%s">x</a></li>`, href)
	}

	sb.WriteString("</ul></div>")

	return page(sb.String())
}

// fixtureWiki serves pages by path and answers 404 to anything else.
type fixtureWiki struct {
	mu    sync.Mutex
	pages map[string]string
	hits  map[string]int
}

func (f *fixtureWiki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hits[r.URL.Path]++

	body, ok := f.pages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func newFixtureWiki(t *testing.T, pages map[string]string) (*httptest.Server, *fixtureWiki) {
	t.Helper()

	f := &fixtureWiki{pages: pages, hits: map[string]int{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	return srv, f
}

func testOptions(baseURL string) *Options {
	opts := DefaultOptions()
	opts.BaseURL = baseURL
	opts.RetryDelay = time.Millisecond

	return opts
}

func newTestClient(t *testing.T, baseURL string, log logrus.FieldLogger) *Client {
	t.Helper()

	if log == nil {
		log, _ = test.NewNullLogger()
	}

	c, err := NewClient(testOptions(baseURL), log)
	require.NoError(t, err)

	return c
}

func newTestClientWithOptions(t *testing.T, opts *Options, log logrus.FieldLogger) *Client {
	t.Helper()

	c, err := NewClient(opts, log)
	require.NoError(t, err)

	return c
}

func mustParse(t *testing.T, body string) *goquery.Document {
	t.Helper()

	doc, err := htmlutils.Parse([]byte(body), "text/html; charset=utf-8")
	require.NoError(t, err)

	return doc
}

func newTestRepository(t *testing.T) Repository {
	t.Helper()

	conn, err := store.OpenSQLite(context.Background(), "")
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	repo := NewRepository(conn)
	require.NoError(t, repo.CreateSchema(context.Background()))

	return repo
}
