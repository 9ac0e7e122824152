package boatrace

import (
	"context"
	"fmt"
	"time"

	"bvpscraper/internal/components/telemetry"
	"bvpscraper/lib/htmlutil"
	"bvpscraper/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_odds_scrape = "odds.scrape"
)

// BetType is one of the seven wager categories.
//
// Combination keys are formatted as:
//   - exacta "1-2", quinella and quinella-place "1=2"
//   - trifecta "1-2-3", trio "1=2=3"
//
// win and place are keyed by boat number instead.
type BetType int

const (
	BetWin BetType = iota
	BetPlace
	BetExacta
	BetQuinella
	BetQuinellaPlace
	BetTrifecta
	BetTrio
)

// AllBetTypes lists every bet type in page order.
var AllBetTypes = []BetType{
	BetWin,
	BetPlace,
	BetExacta,
	BetQuinella,
	BetQuinellaPlace,
	BetTrifecta,
	BetTrio,
}

func (b BetType) String() string {
	switch b {
	case BetWin:
		return "win"
	case BetPlace:
		return "place"
	case BetExacta:
		return "exacta"
	case BetQuinella:
		return "quinella"
	case BetQuinellaPlace:
		return "quinella-place"
	case BetTrifecta:
		return "trifecta"
	case BetTrio:
		return "trio"
	}
	return fmt.Sprintf("BetType(%d)", int(b))
}

// oddsPage returns the page path of the bet type and the index of its table
// on that page.
func (b BetType) oddsPage() (string, int) {
	switch b {
	case BetWin:
		return "oddstf", 0
	case BetPlace:
		return "oddstf", 1
	case BetExacta:
		return "odds2tf", 0
	case BetQuinella:
		return "odds2tf", 1
	case BetQuinellaPlace:
		return "oddsk", 0
	case BetTrifecta:
		return "odds3t", 0
	case BetTrio:
		return "odds3f", 0
	}
	panic(fmt.Sprintf("unknown bet type %d", int(b)))
}

// combinations enumerates the combinations listed under each first-boat
// column of a bet type's odds table, in row order.
func (b BetType) combinations() [6][]string {
	var columns [6][]string
	for first := 1; first <= 6; first++ {
		var out []string
		for second := 1; second <= 6; second++ {
			if second == first {
				continue
			}
			switch b {
			case BetExacta:
				out = append(out, fmt.Sprintf("%d-%d", first, second))
			case BetQuinella, BetQuinellaPlace:
				if second > first {
					out = append(out, fmt.Sprintf("%d=%d", first, second))
				}
			case BetTrifecta, BetTrio:
				for third := 1; third <= 6; third++ {
					if third == first || third == second {
						continue
					}
					if b == BetTrifecta {
						out = append(out, fmt.Sprintf("%d-%d-%d", first, second, third))
					} else if second > first && third > second {
						out = append(out, fmt.Sprintf("%d=%d=%d", first, second, third))
					}
				}
			}
		}
		columns[first-1] = out
	}
	return columns
}

type OddsScraper struct {
	page
}

func NewOddsScraper(fetcher Fetcher, baseURL string, tel telemetry.API) *OddsScraper {
	return &OddsScraper{page: newPage(fetcher, baseURL, tel, "odds_scraper")}
}

// Scrape retrieves every bet type's odds, each distinct page is fetched once.
func (s *OddsScraper) Scrape(ctx context.Context, date time.Time, stadium, race int) (*Odds, error) {
	return s.ScrapeBetTypes(ctx, AllBetTypes, date, stadium, race)
}

func (s *OddsScraper) ScrapeWin(ctx context.Context, date time.Time, stadium, race int) (*Odds, error) {
	return s.ScrapeBetTypes(ctx, []BetType{BetWin}, date, stadium, race)
}

func (s *OddsScraper) ScrapePlace(ctx context.Context, date time.Time, stadium, race int) (*Odds, error) {
	return s.ScrapeBetTypes(ctx, []BetType{BetPlace}, date, stadium, race)
}

func (s *OddsScraper) ScrapeExacta(ctx context.Context, date time.Time, stadium, race int) (*Odds, error) {
	return s.ScrapeBetTypes(ctx, []BetType{BetExacta}, date, stadium, race)
}

func (s *OddsScraper) ScrapeQuinella(ctx context.Context, date time.Time, stadium, race int) (*Odds, error) {
	return s.ScrapeBetTypes(ctx, []BetType{BetQuinella}, date, stadium, race)
}

func (s *OddsScraper) ScrapeQuinellaPlace(ctx context.Context, date time.Time, stadium, race int) (*Odds, error) {
	return s.ScrapeBetTypes(ctx, []BetType{BetQuinellaPlace}, date, stadium, race)
}

func (s *OddsScraper) ScrapeTrifecta(ctx context.Context, date time.Time, stadium, race int) (*Odds, error) {
	return s.ScrapeBetTypes(ctx, []BetType{BetTrifecta}, date, stadium, race)
}

func (s *OddsScraper) ScrapeTrio(ctx context.Context, date time.Time, stadium, race int) (*Odds, error) {
	return s.ScrapeBetTypes(ctx, []BetType{BetTrio}, date, stadium, race)
}

type loadedPage struct {
	doc    *goquery.Document
	offset int
}

// ScrapeBetTypes retrieves the odds of the given bet types into one record.
func (s *OddsScraper) ScrapeBetTypes(ctx context.Context, bets []BetType, date time.Time, stadium, race int) (*Odds, error) {
	ctx, span := tracer.Start(ctx, "OddsScraper.Scrape")
	defer span.End()

	odds := &Odds{Race: newRace(date, stadium, race)}
	var iss issues

	pages := map[string]loadedPage{}
	for _, bet := range bets {
		path, _ := bet.oddsPage()
		loaded, ok := pages[path]
		if !ok {
			doc, offset, err := s.load(ctx, path, date, stadium, race)
			if err != nil {
				s.tel.ReportWarning(report_odds_scrape, err, bet.String(), stadium, race)
				return nil, fmt.Errorf("scrape %s odds: %w", bet, err)
			}
			loaded = loadedPage{doc: doc, offset: offset}
			pages[path] = loaded
		}
		fillOdds(loaded.doc.Selection, loaded.offset, bet, odds, &iss)
	}

	odds.Issues = iss
	return odds, nil
}

// ParseOdds builds an Odds record out of a single already fetched odds page.
func ParseOdds(doc *goquery.Selection, offset int, bets []BetType, date time.Time, stadium, race int) *Odds {
	odds := &Odds{Race: newRace(date, stadium, race)}
	var iss issues
	for _, bet := range bets {
		fillOdds(doc, offset, bet, odds, &iss)
	}
	odds.Issues = iss
	return odds
}

func fillOdds(doc *goquery.Selection, offset int, bet BetType, odds *Odds, iss *issues) {
	switch bet {
	case BetWin:
		odds.WinOdds = map[int]*float64{}
		eachBoatOdds(doc, offset, 1, bet, iss, func(boat int, cell *goquery.Selection) {
			odds.WinOdds[boat] = htmlutil.Odds(cell, "")
		})
	case BetPlace:
		odds.PlaceOdds = map[int]OddsRange{}
		eachBoatOdds(doc, offset, 2, bet, iss, func(boat int, cell *goquery.Selection) {
			odds.PlaceOdds[boat] = htmlutil.GetOddsRange(cell, "")
		})
	case BetExacta:
		odds.ExactaOdds = map[string]*float64{}
		eachCombinationOdds(doc, offset, bet, iss, func(key string, cell *goquery.Selection) {
			odds.ExactaOdds[key] = htmlutil.Odds(cell, "")
		})
	case BetQuinella:
		odds.QuinellaOdds = map[string]*float64{}
		eachCombinationOdds(doc, offset, bet, iss, func(key string, cell *goquery.Selection) {
			odds.QuinellaOdds[key] = htmlutil.Odds(cell, "")
		})
	case BetQuinellaPlace:
		odds.QuinellaPlaceOdds = map[string]OddsRange{}
		eachCombinationOdds(doc, offset, bet, iss, func(key string, cell *goquery.Selection) {
			odds.QuinellaPlaceOdds[key] = htmlutil.GetOddsRange(cell, "")
		})
	case BetTrifecta:
		odds.TrifectaOdds = map[string]*float64{}
		eachCombinationOdds(doc, offset, bet, iss, func(key string, cell *goquery.Selection) {
			odds.TrifectaOdds[key] = htmlutil.Odds(cell, "")
		})
	case BetTrio:
		odds.TrioOdds = map[string]*float64{}
		eachCombinationOdds(doc, offset, bet, iss, func(key string, cell *goquery.Selection) {
			odds.TrioOdds[key] = htmlutil.Odds(cell, "")
		})
	}
}

// eachBoatOdds walks the win (unit 1) or place (unit 2) table of the oddstf
// page, every boat has its own tbody with the odds in the third cell.
func eachBoatOdds(doc *goquery.Selection, offset, unit int, bet BetType, iss *issues, fn func(boat int, cell *goquery.Selection)) {
	table := doc.Find(fmt.Sprintf(
		"%s div:nth-child(%d) div:nth-child(2) table",
		content(6, offset), unit,
	)).First()
	if table.Length() == 0 {
		iss.add(bet.String()+"_odds", 0, "odds table not found")
		return
	}

	rows := table.ChildrenFiltered("tbody")
	if rows.Length() < 6 {
		iss.add(bet.String()+"_odds", 0, "found %d of 6 boat rows", rows.Length())
	}
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i >= 6 {
			return false
		}
		numberText := htmlutil.Text(row, "tr td:nth-child(1)")
		if numberText == nil {
			iss.add(bet.String()+"_odds", i+1, "missing boat number")
			return true
		}
		boat, ok := textutil.ParseInt(*numberText)
		if !ok || boat < 1 || boat > 6 {
			iss.add(bet.String()+"_odds", i+1, "malformed boat number %q", *numberText)
			return true
		}
		fn(boat, htmlutil.Find(row, "tr td:nth-child(3)"))
		return true
	})
}

// eachCombinationOdds walks a combination table: the c-th odds cell of body
// row r belongs to the first-boat column c and is the r-th combination of
// that column.
func eachCombinationOdds(doc *goquery.Selection, offset int, bet BetType, iss *issues, fn func(key string, cell *goquery.Selection)) {
	_, index := bet.oddsPage()
	tables := doc.Find(content(6, offset) + " table").FilterFunction(func(_ int, table *goquery.Selection) bool {
		return table.Find("td.oddsPoint").Length() > 0
	})
	if tables.Length() <= index {
		iss.add(bet.String()+"_odds", 0, "odds table not found")
		return
	}

	columns := bet.combinations()
	tables.Eq(index).Find("tbody tr").Each(func(r int, row *goquery.Selection) {
		row.Find("td.oddsPoint").Each(func(c int, cell *goquery.Selection) {
			if c >= len(columns) || r >= len(columns[c]) {
				iss.add(bet.String()+"_odds", 0, "unexpected odds cell at row %d column %d", r+1, c+1)
				return
			}
			fn(columns[c][r], cell)
		})
	})
}
