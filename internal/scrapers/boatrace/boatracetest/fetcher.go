// Package boatracetest provides an in-memory Fetcher and page fixtures
// shaped like the pages served by boatrace.jp.
package boatracetest

import (
	"context"
	"net/url"
	"path"
	"strings"
	"sync"

	"bvpscraper/internal/scrapers/boatrace"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher serves pages from memory keyed by the last path segment of the
// url (ex. "racelist") and records every call.
type Fetcher struct {
	mu    sync.Mutex
	pages map[string]string
	// failures is how many more times a page fails, a negative count fails
	// forever.
	failures map[string]int
	calls    []string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		pages:    map[string]string{},
		failures: map[string]int{},
	}
}

// Serve registers the html returned for a page.
func (f *Fetcher) Serve(page, html string) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page] = html
	return f
}

// Fail makes the next `times` fetches of a page fail with a 503, a negative
// count makes every fetch fail.
func (f *Fetcher) Fail(page string, times int) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[page] = times
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, rawUrl string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return nil, err
	}
	page := path.Base(parsed.Path)

	f.mu.Lock()
	f.calls = append(f.calls, rawUrl)
	remaining := f.failures[page]
	if remaining > 0 {
		f.failures[page] = remaining - 1
	}
	html, ok := f.pages[page]
	f.mu.Unlock()

	if remaining != 0 {
		return nil, &boatrace.TransportError{URL: rawUrl, StatusCode: 503}
	}
	if !ok {
		return nil, &boatrace.TransportError{URL: rawUrl, StatusCode: 404}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// Calls returns every url fetched so far.
func (f *Fetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times a page was fetched.
func (f *Fetcher) CallCount(page string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		parsed, err := url.Parse(call)
		if err == nil && path.Base(parsed.Path) == page {
			n++
		}
	}
	return n
}
