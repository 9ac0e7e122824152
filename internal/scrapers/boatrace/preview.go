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
	report_preview_scrape = "preview.scrape"
)

type PreviewScraper struct {
	page
}

func NewPreviewScraper(fetcher Fetcher, baseURL string, tel telemetry.API) *PreviewScraper {
	return &PreviewScraper{page: newPage(fetcher, baseURL, tel, "preview_scraper")}
}

// Scrape retrieves the pre-race information (直前情報) of a single race.
func (s *PreviewScraper) Scrape(ctx context.Context, date time.Time, stadium, race int) (*Preview, error) {
	ctx, span := tracer.Start(ctx, "PreviewScraper.Scrape")
	defer span.End()

	doc, offset, err := s.load(ctx, "beforeinfo", date, stadium, race)
	if err != nil {
		s.tel.ReportWarning(report_preview_scrape, err, stadium, race)
		return nil, fmt.Errorf("scrape preview: %w", err)
	}
	return ParsePreview(doc.Selection, offset, date, stadium, race), nil
}

// ParsePreview builds a Preview out of an already fetched pre-race page.
func ParsePreview(doc *goquery.Selection, offset int, date time.Time, stadium, race int) *Preview {
	var iss issues
	preview := &Preview{
		Race:  newRace(date, stadium, race),
		Boats: map[int]PreviewBoat{},
	}

	parseWeather(doc, preview, &iss)

	rows := doc.Find(content(5, offset) + " table").First().ChildrenFiltered("tbody")
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i >= 6 {
			return false
		}
		boat, ok := parsePreviewBoat(row, i, &iss)
		if ok {
			preview.Boats[boat.BoatNumber] = boat
		}
		return true
	})

	preview.StartExhibition = parseStartRows(
		doc.Find(content(6, offset)+" table").First().Find("tbody tr"),
		"start_exhibition",
		&iss,
	)

	preview.Issues = iss
	return preview
}

func weatherData(unit *goquery.Selection) *float64 {
	text := htmlutil.Text(unit, ".weather1_bodyUnitLabelData")
	if text == nil {
		return nil
	}
	f, ok := textutil.FirstFloat(*text)
	if !ok {
		return nil
	}
	return &f
}

func parseWeather(doc *goquery.Selection, preview *Preview, iss *issues) {
	units := doc.Find("div.weather1_bodyUnit")
	if units.Length() == 0 {
		iss.add("weather", 0, "weather block not found")
		return
	}

	units.Each(func(_ int, unit *goquery.Selection) {
		switch {
		case unit.HasClass("is-direction"):
			preview.AirTemperature = weatherData(unit)
		case unit.HasClass("is-weather"):
			preview.Weather = htmlutil.Text(unit, ".weather1_bodyUnitLabelTitle")
		case unit.HasClass("is-windDirection"):
			class := htmlutil.Attr(unit, ".weather1_bodyUnitImage", "class")
			if class != nil {
				preview.WindDirection = parseWindDirection(*class)
			}
		case unit.HasClass("is-wind"):
			preview.WindSpeed = weatherData(unit)
		case unit.HasClass("is-waterTemperature"):
			preview.WaterTemperature = weatherData(unit)
		case unit.HasClass("is-wave"):
			preview.WaveHeight = weatherData(unit)
		}
	})
}

func parsePreviewBoat(row *goquery.Selection, index int, iss *issues) (PreviewBoat, bool) {
	if row.Find("tr").First().ChildrenFiltered("td").Length() < 8 {
		iss.add("boats", index+1, "malformed row")
		return PreviewBoat{}, false
	}

	numberText := htmlutil.Text(row, programCell(1))
	if numberText == nil {
		iss.add("boat_number", index+1, "missing boat number")
		return PreviewBoat{}, false
	}
	boatNumber, ok := textutil.ParseInt(*numberText)
	if !ok || boatNumber < 1 || boatNumber > 6 {
		iss.add("boat_number", index+1, "malformed boat number %q", *numberText)
		return PreviewBoat{}, false
	}

	boat := PreviewBoat{
		BoatNumber:     boatNumber,
		RacerName:      htmlutil.Text(row, programCell(3)+" a"),
		ExhibitionTime: htmlutil.Odds(row, programCell(5)),
		Tilt:           htmlutil.Odds(row, programCell(6)),
		Propeller:      htmlutil.Text(row, programCell(7)),
		PartsExchanged: htmlutil.Lines(row, programCell(8)),
	}
	if weight := htmlutil.Text(row, programCell(4)); weight != nil {
		if f, ok := textutil.FirstFloat(*weight); ok {
			boat.RacerWeight = &f
		} else {
			iss.add("racer_weight", boatNumber, "malformed weight %q", *weight)
		}
	}
	return boat, true
}

// parseStartRows reads a start table where every row is one course.
func parseStartRows(rows *goquery.Selection, field string, iss *issues) map[int]StartEntry {
	entries := map[int]StartEntry{}
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i >= 6 {
			return false
		}
		entry := StartEntry{Course: i + 1}

		if text := htmlutil.Text(row, ".table1_boatImage1Number"); text != nil {
			if n, ok := textutil.ParseInt(*text); ok {
				entry.BoatNumber = &n
			}
		}

		timing := htmlutil.Text(row, ".table1_boatImage1Time")
		if timing == nil {
			timing = htmlutil.Text(row, "td")
		}
		if timing == nil {
			iss.add(field, 0, "course %d is empty", i+1)
			return true
		}
		entry.Timing, entry.Flying, entry.Late, entry.Note = parseStartTiming(*timing)
		if entry.Timing == nil {
			iss.add(field, 0, "course %d: malformed timing %q", i+1, *timing)
		}
		entries[entry.Course] = entry
		return true
	})
	return entries
}
