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
	report_program_scrape = "program.scrape"
)

const (
	programGradeSelector = "body main div div div div:nth-child(1) div div:nth-child(2)"
	programTitleSelector = programGradeSelector + " h2"
)

type ProgramScraper struct {
	page
}

func NewProgramScraper(fetcher Fetcher, baseURL string, tel telemetry.API) *ProgramScraper {
	return &ProgramScraper{page: newPage(fetcher, baseURL, tel, "program_scraper")}
}

// Scrape retrieves the race program (出走表) of a single race.
func (s *ProgramScraper) Scrape(ctx context.Context, date time.Time, stadium, race int) (*Program, error) {
	ctx, span := tracer.Start(ctx, "ProgramScraper.Scrape")
	defer span.End()

	doc, offset, err := s.load(ctx, "racelist", date, stadium, race)
	if err != nil {
		s.tel.ReportWarning(report_program_scrape, err, stadium, race)
		return nil, fmt.Errorf("scrape program: %w", err)
	}

	program := ParseProgram(doc.Selection, offset, date, stadium, race)
	if len(program.Issues) > 0 {
		s.tel.ReportDebug("program parse issues", stadium, race, len(program.Issues))
	}
	return program, nil
}

// ParseProgram builds a Program out of an already fetched race program page.
func ParseProgram(doc *goquery.Selection, offset int, date time.Time, stadium, race int) *Program {
	var iss issues
	program := &Program{
		Race:            newRace(date, stadium, race),
		RaceGradeNumber: htmlutil.GradeCode(doc, programGradeSelector),
		RaceTitle:       htmlutil.Text(doc, programTitleSelector),
		Boats:           map[int]Boat{},
	}

	deadline := htmlutil.Text(
		doc,
		fmt.Sprintf("%s table tbody tr:nth-child(1) td:nth-child(%d)", content(2, 0), race+1),
	)
	program.RaceClosedAt = parseClosedAt(deadline, date)
	if deadline != nil && program.RaceClosedAt == nil {
		iss.add("race_closed_at", 0, "malformed deadline %q", *deadline)
	}

	program.RaceSubtitle, program.RaceDistance = parseSubtitleDistance(
		htmlutil.Text(doc, content(3, offset)+" h3"),
	)

	rows := doc.Find(content(5, offset) + " table").First().ChildrenFiltered("tbody")
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i >= 6 {
			return false
		}
		boat, ok := parseProgramBoat(row, i, &iss)
		if ok {
			program.Boats[boat.BoatNumber] = boat
		}
		return true
	})
	if rows.Length() < 6 {
		iss.add("boats", 0, "found %d of 6 boat rows", rows.Length())
	}

	if len(program.Boats) > 0 {
		iss.add("racer_branch_number", 0, "prefecture codes are not resolved")
		iss.add("racer_birthplace_number", 0, "prefecture codes are not resolved")
	}

	program.Issues = iss
	return program
}

func programCell(n int) string {
	return fmt.Sprintf("tr:nth-child(1) td:nth-child(%d)", n)
}

func parseProgramBoat(row *goquery.Selection, index int, iss *issues) (Boat, bool) {
	if row.Find("tr").First().ChildrenFiltered("td").Length() < 8 {
		iss.add("boats", index+1, "malformed row")
		return Boat{}, false
	}

	numberText := htmlutil.Text(row, programCell(1))
	if numberText == nil {
		iss.add("racer_boat_number", index+1, "missing boat number")
		return Boat{}, false
	}
	boatNumber, ok := textutil.ParseInt(*numberText)
	if !ok || boatNumber < 1 || boatNumber > 6 {
		iss.add("racer_boat_number", index+1, "malformed boat number %q", *numberText)
		return Boat{}, false
	}

	boat := Boat{
		BoatNumber: boatNumber,
		RacerName:  htmlutil.Text(row, programCell(3)+" div:nth-child(2) a"),
	}

	numberClass := htmlutil.Text(row, programCell(3)+" div:nth-child(1)")
	boat.RacerNumber, boat.RacerClass = parseRacerNumberClass(numberClass)
	if numberClass != nil && boat.RacerNumber == nil {
		iss.add("racer_number", boatNumber, "malformed racer number %q", *numberClass)
	}

	boat.RacerAge, boat.RacerWeight = parsePersonal(
		htmlutil.Lines(row, programCell(3)+" div:nth-child(3)"),
	)

	boat.RacerFlyingCount, boat.RacerLateCount, boat.RacerAverageStartTiming = parseFlyingLateStart(
		htmlutil.Lines(row, programCell(4)),
	)

	national := parsePercentages(htmlutil.Lines(row, programCell(5)))
	boat.RacerNationalTop1Percent = national[0]
	boat.RacerNationalTop2Percent = national[1]
	boat.RacerNationalTop3Percent = national[2]

	local := parsePercentages(htmlutil.Lines(row, programCell(6)))
	boat.RacerLocalTop1Percent = local[0]
	boat.RacerLocalTop2Percent = local[1]
	boat.RacerLocalTop3Percent = local[2]

	boat.MotorNumber, boat.MotorTop2Percent, boat.MotorTop3Percent = parseAssignment(
		htmlutil.Lines(row, programCell(7)),
	)
	boat.BoatAssigned, boat.BoatTop2Percent, boat.BoatTop3Percent = parseAssignment(
		htmlutil.Lines(row, programCell(8)),
	)

	return boat, true
}
