package boatrace

import (
	"fmt"
	"time"

	"bvpscraper/lib/htmlutil"
)

// Race identifies a single race, it is embedded in every race record.
type Race struct {
	// RaceDate is formatted as YYYY-MM-DD.
	RaceDate      string `json:"race_date"`
	StadiumNumber int    `json:"race_stadium_number"`
	RaceNumber    int    `json:"race_number"`
}

func newRace(date time.Time, stadium, race int) Race {
	return Race{
		RaceDate:      formatDate(date),
		StadiumNumber: stadium,
		RaceNumber:    race,
	}
}

func (r Race) RaceKey() Race {
	return r
}

// Issue is a non-fatal problem found while parsing a page, the affected
// field is left nil.
type Issue struct {
	Field string
	// Boat is 0 when the issue is not about a single boat.
	Boat    int
	Message string
}

func (i Issue) String() string {
	if i.Boat == 0 {
		return fmt.Sprintf("%s: %s", i.Field, i.Message)
	}
	return fmt.Sprintf("boat %d: %s: %s", i.Boat, i.Field, i.Message)
}

type issues []Issue

func (i *issues) add(field string, boat int, format string, args ...any) {
	*i = append(*i, Issue{
		Field:   field,
		Boat:    boat,
		Message: fmt.Sprintf(format, args...),
	})
}

// RaceRecord is one of *Program, *Odds, *Preview or *Result.
type RaceRecord interface {
	RaceKey() Race
	// Diagnostics returns every parse issue found while building the record.
	Diagnostics() []Issue
	raceRecord()
}

// OddsRange is a lower and upper odds bound, both are either set or nil.
type OddsRange = htmlutil.OddsRange

type Program struct {
	Race
	RaceClosedAt    *time.Time   `json:"race_closed_at"`
	RaceGradeNumber *int         `json:"race_grade_number"`
	RaceTitle       *string      `json:"race_title"`
	RaceSubtitle    *string      `json:"race_subtitle"`
	RaceDistance    *int         `json:"race_distance"`
	Boats           map[int]Boat `json:"boats"`

	Issues []Issue `json:"-"`
}

type Boat struct {
	BoatNumber            int      `json:"racer_boat_number"`
	RacerName             *string  `json:"racer_name"`
	RacerNumber           *int     `json:"racer_number"`
	RacerClass            *string  `json:"racer_class_number"`
	RacerBranchNumber     *int     `json:"racer_branch_number"`
	RacerBirthplaceNumber *int     `json:"racer_birthplace_number"`
	RacerAge              *int     `json:"racer_age"`
	RacerWeight           *float64 `json:"racer_weight"`

	RacerFlyingCount         *int     `json:"racer_flying_count"`
	RacerLateCount           *int     `json:"racer_late_count"`
	RacerAverageStartTiming  *float64 `json:"racer_average_start_timing"`
	RacerNationalTop1Percent *float64 `json:"racer_national_top_1_percent"`
	RacerNationalTop2Percent *float64 `json:"racer_national_top_2_percent"`
	RacerNationalTop3Percent *float64 `json:"racer_national_top_3_percent"`
	RacerLocalTop1Percent    *float64 `json:"racer_local_top_1_percent"`
	RacerLocalTop2Percent    *float64 `json:"racer_local_top_2_percent"`
	RacerLocalTop3Percent    *float64 `json:"racer_local_top_3_percent"`

	MotorNumber      *int     `json:"racer_assigned_motor_number"`
	MotorTop2Percent *float64 `json:"racer_assigned_motor_top_2_percent"`
	MotorTop3Percent *float64 `json:"racer_assigned_motor_top_3_percent"`
	BoatAssigned     *int     `json:"racer_assigned_boat_number"`
	BoatTop2Percent  *float64 `json:"racer_assigned_boat_top_2_percent"`
	BoatTop3Percent  *float64 `json:"racer_assigned_boat_top_3_percent"`
}

// Odds holds every odds table of a race, a map is nil when its table was
// not scraped.
type Odds struct {
	Race
	// WinOdds and PlaceOdds are keyed by boat number.
	WinOdds   map[int]*float64  `json:"win_odds"`
	PlaceOdds map[int]OddsRange `json:"place_odds"`
	// the rest are keyed by combination, see the BetType docs for the format.
	ExactaOdds        map[string]*float64  `json:"exacta_odds"`
	QuinellaOdds      map[string]*float64  `json:"quinella_odds"`
	QuinellaPlaceOdds map[string]OddsRange `json:"quinella_place_odds"`
	TrifectaOdds      map[string]*float64  `json:"trifecta_odds"`
	TrioOdds          map[string]*float64  `json:"trio_odds"`

	Issues []Issue `json:"-"`
}

type Preview struct {
	Race
	Weather          *string  `json:"weather"`
	WindDirection    *int     `json:"wind_direction"`
	WindSpeed        *float64 `json:"wind_speed"`
	WaveHeight       *float64 `json:"wave_height"`
	AirTemperature   *float64 `json:"air_temperature"`
	WaterTemperature *float64 `json:"water_temperature"`
	// StartExhibition is keyed by course.
	StartExhibition map[int]StartEntry  `json:"start_exhibition"`
	Boats           map[int]PreviewBoat `json:"boats"`

	Issues []Issue `json:"-"`
}

type PreviewBoat struct {
	BoatNumber     int      `json:"boat_number"`
	RacerName      *string  `json:"racer_name"`
	RacerWeight    *float64 `json:"racer_weight"`
	ExhibitionTime *float64 `json:"exhibition_time"`
	Tilt           *float64 `json:"tilt"`
	// Propeller is the propeller note, "新" for a new propeller.
	Propeller      *string  `json:"propeller"`
	PartsExchanged []string `json:"parts_exchanged"`
}

// StartEntry is one course of a start exhibition or of a race start.
type StartEntry struct {
	Course     int      `json:"course"`
	BoatNumber *int     `json:"boat_number"`
	Timing     *float64 `json:"timing"`
	Flying     bool     `json:"flying"`
	Late       bool     `json:"late"`
	// Note is any trailing text after the timing (ex. the winning technique
	// of the first boat).
	Note *string `json:"special_info"`
}

type Result struct {
	Race
	// Results is keyed by finishing position.
	Results map[int]Finisher `json:"results"`

	WinPayouts           map[string]Payout `json:"win_payouts"`
	PlacePayouts         map[string]Payout `json:"place_payouts"`
	ExactaPayouts        map[string]Payout `json:"exacta_payouts"`
	QuinellaPayouts      map[string]Payout `json:"quinella_payouts"`
	QuinellaPlacePayouts map[string]Payout `json:"quinella_place_payouts"`
	TrifectaPayouts      map[string]Payout `json:"trifecta_payouts"`
	TrioPayouts          map[string]Payout `json:"trio_payouts"`

	WinningTechnique *string            `json:"winning_technique"`
	StartInfo        map[int]StartEntry `json:"start_info"`

	Issues []Issue `json:"-"`
}

type Finisher struct {
	Position    int     `json:"position"`
	BoatNumber  *int    `json:"boat_number"`
	RacerNumber *int    `json:"racer_number"`
	RacerName   *string `json:"racer_name"`
	// RaceTime is the text as shown on the page, ex. 1'49"8.
	RaceTime        *string  `json:"race_time"`
	RaceTimeSeconds *float64 `json:"race_time_seconds"`
}

type Payout struct {
	Combination string `json:"combination"`
	Payout      int    `json:"payout"`
	Popularity  *int   `json:"popularity"`
}

// Stadium is one venue holding races on the queried day.
type Stadium struct {
	Number      int     `json:"stadium_number"`
	Name        *string `json:"stadium_name"`
	Grade       *string `json:"grade"`
	GradeNumber *int    `json:"grade_number"`
}

func (p *Program) Diagnostics() []Issue { return p.Issues }
func (o *Odds) Diagnostics() []Issue    { return o.Issues }
func (p *Preview) Diagnostics() []Issue { return p.Issues }
func (r *Result) Diagnostics() []Issue  { return r.Issues }

func (*Program) raceRecord() {}
func (*Odds) raceRecord()    {}
func (*Preview) raceRecord() {}
func (*Result) raceRecord()  {}
