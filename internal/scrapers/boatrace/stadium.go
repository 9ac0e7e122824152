package boatrace

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"bvpscraper/internal/components/telemetry"
	"bvpscraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_stadium_scrape = "stadium.scrape"
)

// stadiumContainers matches the block of every stadium on the daily index.
const stadiumContainers = "body main table tbody"

type StadiumScraper struct {
	page
}

func NewStadiumScraper(fetcher Fetcher, baseURL string, tel telemetry.API) *StadiumScraper {
	return &StadiumScraper{page: newPage(fetcher, baseURL, tel, "stadium_scraper")}
}

// Scrape retrieves every stadium holding races on the given date, keyed by
// stadium number.
func (s *StadiumScraper) Scrape(ctx context.Context, date time.Time) (map[int]Stadium, error) {
	ctx, span := tracer.Start(ctx, "StadiumScraper.Scrape")
	defer span.End()

	doc, _, err := s.load(ctx, "index", date, 0, 0)
	if err != nil {
		s.tel.ReportWarning(report_stadium_scrape, err)
		return nil, fmt.Errorf("scrape stadiums: %w", err)
	}

	stadiums := ParseStadiums(doc.Selection)
	if len(stadiums) == 0 {
		s.tel.ReportWarning(report_stadium_scrape, "no stadiums found", formatDate(date))
	}
	return stadiums, nil
}

// StadiumNumber reads the jcd query parameter of a link.
func StadiumNumber(href string) (int, bool) {
	parsed, err := url.Parse(href)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(parsed.Query().Get("jcd"))
	if err != nil || n < 1 || n > 24 {
		return 0, false
	}
	return n, true
}

// ParseStadiums reads every stadium container of the daily index page, the
// first container of a stadium wins.
func ParseStadiums(doc *goquery.Selection) map[int]Stadium {
	stadiums := map[int]Stadium{}
	doc.Find(stadiumContainers).Each(func(_ int, container *goquery.Selection) {
		stadium, ok := parseStadium(container)
		if !ok {
			return
		}
		if _, exists := stadiums[stadium.Number]; exists {
			return
		}
		stadiums[stadium.Number] = stadium
	})
	return stadiums
}

func parseStadium(container *goquery.Selection) (Stadium, bool) {
	var number int
	found := false
	container.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		number, found = StadiumNumber(a.AttrOr("href", ""))
		return !found
	})
	if !found {
		return Stadium{}, false
	}

	stadium := Stadium{
		Number: number,
		Name:   htmlutil.Text(container, "h3"),
		Grade:  htmlutil.Text(container, ".grade"),
	}
	if stadium.Name == nil {
		stadium.Name = htmlutil.Attr(container, "a[href] img[alt]", "alt")
	}

	container.Find("[class*='is-']").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		stadium.GradeNumber = htmlutil.GradeCodeIn(el.AttrOr("class", ""))
		return stadium.GradeNumber == nil
	})
	return stadium, true
}
