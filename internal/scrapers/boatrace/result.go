package boatrace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bvpscraper/internal/components/telemetry"
	"bvpscraper/lib/htmlutil"
	"bvpscraper/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
)

const (
	report_result_scrape = "result.scrape"
)

// betTypeLabels maps the bet type labels of the payout table.
var betTypeLabels = map[string]BetType{
	"単勝":  BetWin,
	"複勝":  BetPlace,
	"2連単": BetExacta,
	"2連複": BetQuinella,
	"拡連複": BetQuinellaPlace,
	"3連単": BetTrifecta,
	"3連複": BetTrio,
}

var (
	finishHeader = []string{"着", "ボートレーサー", "レースタイム"}
	payoutHeader = []string{"勝式", "払戻金"}
)

type ResultScraper struct {
	page
}

func NewResultScraper(fetcher Fetcher, baseURL string, tel telemetry.API) *ResultScraper {
	return &ResultScraper{page: newPage(fetcher, baseURL, tel, "result_scraper")}
}

// Scrape retrieves the result (結果) of a single race.
func (s *ResultScraper) Scrape(ctx context.Context, date time.Time, stadium, race int) (*Result, error) {
	ctx, span := tracer.Start(ctx, "ResultScraper.Scrape")
	defer span.End()

	doc, _, err := s.load(ctx, "raceresult", date, stadium, race)
	if err != nil {
		s.tel.ReportWarning(report_result_scrape, err, stadium, race)
		return nil, fmt.Errorf("scrape result: %w", err)
	}
	return ParseResult(doc.Selection, date, stadium, race), nil
}

// ParseResult builds a Result out of an already fetched result page. The
// tables are located by their header rows so the layout offset is not
// needed.
func ParseResult(doc *goquery.Selection, date time.Time, stadium, race int) *Result {
	var iss issues
	result := &Result{
		Race:                 newRace(date, stadium, race),
		Results:              map[int]Finisher{},
		WinPayouts:           map[string]Payout{},
		PlacePayouts:         map[string]Payout{},
		ExactaPayouts:        map[string]Payout{},
		QuinellaPayouts:      map[string]Payout{},
		QuinellaPlacePayouts: map[string]Payout{},
		TrifectaPayouts:      map[string]Payout{},
		TrioPayouts:          map[string]Payout{},
	}

	tables := doc.Find("table")

	finishes := findTable(tables, finishHeader)
	if finishes == nil {
		iss.add("results", 0, "result table not found")
	} else {
		parseFinishes(finishes, result, &iss)
	}

	payouts := findTable(tables, payoutHeader)
	if payouts == nil {
		iss.add("payouts", 0, "payout table not found")
	} else {
		parsePayouts(payouts, result, &iss)
	}

	if technique := findTitledTable(tables, "決まり手"); technique != nil {
		result.WinningTechnique = htmlutil.Text(bodyRows(technique).First(), "td")
	}

	if start := findTitledTable(tables, "スタート情報"); start != nil {
		result.StartInfo = parseStartRows(bodyRows(start), "start_info", &iss)
	}

	result.Issues = iss
	return result
}

func headerTokens(table *goquery.Selection) []string {
	var tokens []string
	table.Find("tr").First().ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
		tokens = append(tokens, textutil.Normalize(cell.Text()))
	})
	return tokens
}

// findTable returns the first table whose header row contains every token
// as a cell.
func findTable(tables *goquery.Selection, tokens []string) *goquery.Selection {
	var found *goquery.Selection
	tables.EachWithBreak(func(_ int, table *goquery.Selection) bool {
		header := headerTokens(table)
		for _, token := range tokens {
			if !lo.Contains(header, token) {
				return true
			}
		}
		found = table
		return false
	})
	return found
}

// findTitledTable returns the first table whose header row text contains
// title.
func findTitledTable(tables *goquery.Selection, title string) *goquery.Selection {
	var found *goquery.Selection
	tables.EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if strings.Contains(textutil.Normalize(table.Find("tr").First().Text()), title) {
			found = table
			return false
		}
		return true
	})
	return found
}

func bodyRows(table *goquery.Selection) *goquery.Selection {
	return table.Find("tr").Slice(1, goquery.ToEnd)
}

func cells(row *goquery.Selection) []string {
	var out []string
	row.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
		out = append(out, textutil.Normalize(cell.Text()))
	})
	return out
}

func parseFinishes(table *goquery.Selection, result *Result, iss *issues) {
	bodyRows(table).Each(func(_ int, row *goquery.Selection) {
		texts := cells(row)
		if len(texts) < 4 {
			return
		}
		position, ok := parsePosition(texts[0])
		if !ok {
			// disqualifications and retirements have no position
			return
		}

		finisher := Finisher{Position: position}
		if n, ok := textutil.ParseInt(texts[1]); ok {
			finisher.BoatNumber = &n
		} else {
			iss.add("results", 0, "position %d: malformed boat number %q", position, texts[1])
		}
		finisher.RacerNumber, finisher.RacerName = parseRacer(texts[2])
		if texts[3] != "" {
			raceTime := texts[3]
			finisher.RaceTime = &raceTime
			finisher.RaceTimeSeconds = parseRaceTime(raceTime)
		}
		result.Results[position] = finisher
	})
}

func (r *Result) payoutBucket(bet BetType) map[string]Payout {
	switch bet {
	case BetWin:
		return r.WinPayouts
	case BetPlace:
		return r.PlacePayouts
	case BetExacta:
		return r.ExactaPayouts
	case BetQuinella:
		return r.QuinellaPayouts
	case BetQuinellaPlace:
		return r.QuinellaPlacePayouts
	case BetTrifecta:
		return r.TrifectaPayouts
	case BetTrio:
		return r.TrioPayouts
	}
	return nil
}

// parsePayouts reads the payout table, a row with 4 or more cells starts a
// bet type and rows with 3 cells continue the previous one.
func parsePayouts(table *goquery.Selection, result *Result, iss *issues) {
	var current *BetType
	bodyRows(table).Each(func(_ int, row *goquery.Selection) {
		texts := cells(row)
		var combination, amount, popularity string
		switch {
		case len(texts) >= 4:
			current = nil
			if bet, ok := betTypeLabels[textutil.Compact(texts[0])]; ok {
				current = &bet
			}
			combination, amount, popularity = texts[1], texts[2], texts[3]
		case len(texts) == 3:
			combination, amount, popularity = texts[0], texts[1], texts[2]
		default:
			return
		}
		if current == nil {
			return
		}

		combination = textutil.Compact(combination)
		if combination == "" {
			return
		}
		payout, ok := parsePayoutAmount(amount)
		if !ok {
			if amount != "" {
				iss.add("payouts", 0, "%s %s: malformed payout %q", *current, combination, amount)
			}
			return
		}

		entry := Payout{Combination: combination, Payout: payout}
		if n, ok := textutil.ParseInt(popularity); ok && n > 0 {
			entry.Popularity = &n
		}
		result.payoutBucket(*current)[combination] = entry
	})
}
