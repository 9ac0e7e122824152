package cmd

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"bvpscraper/cmd/bvp/utils"
	"bvpscraper/internal/scrapers/boatrace"
	"bvpscraper/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
)

type slotJSON struct {
	Record   boatrace.RaceRecord `json:"record,omitempty"`
	Error    string              `json:"error,omitempty"`
	Attempts int                 `json:"attempts"`
	Issues   []string            `json:"issues,omitempty"`
}

type responseJSON struct {
	Stadiums map[int]boatrace.Stadium  `json:"stadiums,omitempty"`
	Races    map[int]map[int]slotJSON `json:"races"`
}

func toJSON(res service.Response) responseJSON {
	out := responseJSON{
		Stadiums: res.Stadiums,
		Races:    make(map[int]map[int]slotJSON, len(res.Races)),
	}
	for stadium, races := range res.Races {
		out.Races[stadium] = lo.MapValues(races, func(slot service.Slot, _ int) slotJSON {
			converted := slotJSON{Attempts: slot.Attempts}
			if slot.Err != nil {
				converted.Error = slot.Err.Error()
				return converted
			}
			converted.Record = slot.Record
			converted.Issues = lo.Map(slot.Record.Diagnostics(), func(issue boatrace.Issue, _ int) string {
				return issue.String()
			})
			return converted
		})
	}
	return out
}

// failures joins the error of every failed slot, nil when none failed.
func failures(tree service.Tree) error {
	var errs []error
	for _, stadium := range sortedKeys(tree) {
		for _, race := range sortedKeys(tree[stadium]) {
			slot := tree[stadium][race]
			if slot.Err != nil {
				errs = append(errs, fmt.Errorf("stadium %02d race %02d: %w", stadium, race, slot.Err))
			}
		}
	}
	return errors.Join(errs...)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

func countSet[K comparable, V any](m map[K]*V) int {
	return lo.CountBy(lo.Values(m), func(v *V) bool { return v != nil })
}

func countRanges[K comparable](m map[K]boatrace.OddsRange) int {
	return lo.CountBy(lo.Values(m), func(v boatrace.OddsRange) bool { return v.Lower != nil })
}

// summarize describes a record in a single line for the table output.
func summarize(record boatrace.RaceRecord) string {
	switch r := record.(type) {
	case *boatrace.Program:
		title := lo.FromPtrOr(r.RaceTitle, "?")
		closedAt := "?"
		if r.RaceClosedAt != nil {
			closedAt = r.RaceClosedAt.Format("15:04")
		}
		return fmt.Sprintf("%s, closes %s, %d boats", title, closedAt, len(r.Boats))
	case *boatrace.Odds:
		var parts []string
		if r.WinOdds != nil {
			parts = append(parts, fmt.Sprintf("win %d", countSet(r.WinOdds)))
		}
		if r.PlaceOdds != nil {
			parts = append(parts, fmt.Sprintf("place %d", countRanges(r.PlaceOdds)))
		}
		if r.ExactaOdds != nil {
			parts = append(parts, fmt.Sprintf("exacta %d", countSet(r.ExactaOdds)))
		}
		if r.QuinellaOdds != nil {
			parts = append(parts, fmt.Sprintf("quinella %d", countSet(r.QuinellaOdds)))
		}
		if r.QuinellaPlaceOdds != nil {
			parts = append(parts, fmt.Sprintf("quinella place %d", countRanges(r.QuinellaPlaceOdds)))
		}
		if r.TrifectaOdds != nil {
			parts = append(parts, fmt.Sprintf("trifecta %d", countSet(r.TrifectaOdds)))
		}
		if r.TrioOdds != nil {
			parts = append(parts, fmt.Sprintf("trio %d", countSet(r.TrioOdds)))
		}
		return strings.Join(parts, ", ")
	case *boatrace.Preview:
		weather := lo.FromPtrOr(r.Weather, "?")
		wind := "?"
		if r.WindSpeed != nil {
			wind = fmt.Sprintf("%gm", *r.WindSpeed)
		}
		return fmt.Sprintf("%s, wind %s, %d boats", weather, wind, len(r.Boats))
	case *boatrace.Result:
		winner := "?"
		if first, ok := r.Results[1]; ok && first.BoatNumber != nil {
			winner = fmt.Sprint(*first.BoatNumber)
		}
		technique := lo.FromPtrOr(r.WinningTechnique, "?")
		return fmt.Sprintf("winner %s (%s), %d trifecta payouts", winner, technique, len(r.TrifectaPayouts))
	}
	return ""
}

func renderTree(w io.Writer, tree service.Tree) {
	t := utils.NewTable()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Stadium", "Race", "Attempts", "Issues", "Summary"})

	for _, stadium := range sortedKeys(tree) {
		for _, race := range sortedKeys(tree[stadium]) {
			slot := tree[stadium][race]
			if slot.Err != nil {
				t.AppendRow(table.Row{stadium, race, slot.Attempts, "", "error: " + slot.Err.Error()})
				continue
			}
			t.AppendRow(table.Row{
				stadium,
				race,
				slot.Attempts,
				len(slot.Record.Diagnostics()),
				summarize(slot.Record),
			})
		}
	}
	t.Render()
}

func renderStadiums(w io.Writer, stadiums map[int]boatrace.Stadium) {
	t := utils.NewTable()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Number", "Name", "Grade"})
	for _, number := range sortedKeys(stadiums) {
		stadium := stadiums[number]
		t.AppendRow(table.Row{
			number,
			lo.FromPtrOr(stadium.Name, ""),
			lo.FromPtrOr(stadium.Grade, ""),
		})
	}
	t.Render()
}
