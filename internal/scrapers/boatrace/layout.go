package boatrace

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"bvpscraper/internal/components/chrono"
	"bvpscraper/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
)

// layoutProbe matches the list items of the informational panel some pages
// insert above the content blocks.
const layoutProbe = "body main div div div div:nth-child(2) div:nth-child(3) ul li"

// ResolveLayout returns 1 when the extra panel is present and 0 otherwise,
// the offset is added to the sibling position of every content block that
// comes after the panel.
func ResolveLayout(doc *goquery.Document) int {
	if doc.Find(layoutProbe).Length() > 0 {
		return 1
	}
	return 0
}

// content returns the selector of the n-th block (1-indexed, before any
// layout offset) of the main content column.
func content(n, offset int) string {
	return fmt.Sprintf("body main div div div div:nth-child(2) div:nth-child(%d)", n+offset)
}

func formatDate(date time.Time) string {
	return chrono.Date(date).Format(time.DateOnly)
}

func pageURL(baseURL, path string, date time.Time, stadium, race int) string {
	query := url.Values{}
	query.Set("hd", chrono.Date(date).Format("20060102"))
	if stadium > 0 {
		query.Set("jcd", fmt.Sprintf("%02d", stadium))
	}
	if race > 0 {
		query.Set("rno", strconv.Itoa(race))
	}
	return fmt.Sprintf("%s/owpc/pc/race/%s?%s", baseURL, path, query.Encode())
}

// page holds what every page scraper shares.
type page struct {
	fetcher Fetcher
	baseURL string
	tel     telemetry.API
}

func newPage(fetcher Fetcher, baseURL string, tel telemetry.API, namespace string) page {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return page{
		fetcher: fetcher,
		baseURL: baseURL,
		tel:     telemetry.NewScopedAPI(namespace, tel),
	}
}

// load fetches a race page and resolves its layout offset.
func (p page) load(ctx context.Context, path string, date time.Time, stadium, race int) (*goquery.Document, int, error) {
	target := pageURL(p.baseURL, path, date, stadium, race)
	doc, err := p.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, 0, err
	}
	offset := ResolveLayout(doc)
	p.tel.ReportDebug("loaded page", target, offset)
	return doc, offset, nil
}
