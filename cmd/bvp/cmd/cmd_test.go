package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bvpscraper/internal/components/chrono"
	"bvpscraper/internal/scrapers/boatrace"
	"bvpscraper/internal/service"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissing(t *testing.T) {
	config, err := loadConfig(filepath.Join(t.TempDir(), "bvp.json5"))
	require.NoError(t, err)
	require.Equal(t, Config{}, config)
}

func TestLoadConfigWithOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bvp.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// comment
		delay: "2s",
		retry_attempts: 5,
		concurrency: 2,
	}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bvp.local.json5"), []byte(`{concurrency: 8}`), 0600))

	config, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "2s", config.Delay)
	require.Equal(t, 5, config.RetryAttempts)
	require.Equal(t, 8, config.Concurrency)

	clientOpts, err := config.clientOptions()
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, clientOpts.Delay)
	require.Zero(t, clientOpts.PageCacheTTL)

	serviceOpts, err := config.serviceOptions()
	require.NoError(t, err)
	require.Equal(t, 5, serviceOpts.RetryAttempts)
	require.Equal(t, 8, serviceOpts.Concurrency)
}

func TestConfigInvalidDuration(t *testing.T) {
	_, err := Config{RetryWait: "soon"}.serviceOptions()
	require.ErrorContains(t, err, "retry_wait")
}

func testTree() service.Tree {
	return service.Tree{
		4: {
			1: {Err: errors.New("status 503"), Attempts: 3},
			2: {
				Record: &boatrace.Program{
					RaceTitle: lo.ToPtr("Test Race"),
					Boats:     map[int]boatrace.Boat{1: {BoatNumber: 1}},
					Issues:    []boatrace.Issue{{Field: "racer_age", Boat: 1, Message: "missing"}},
				},
				Attempts: 1,
			},
		},
		1: {
			1: {Err: errors.New("timeout"), Attempts: 3},
		},
	}
}

func TestFailures(t *testing.T) {
	err := failures(testTree())
	require.EqualError(t, err, "stadium 01 race 01: timeout\nstadium 04 race 01: status 503")
	require.NoError(t, failures(service.Tree{}))
}

func TestToJSON(t *testing.T) {
	out, err := json.Marshal(toJSON(service.Response{Races: testTree()}))
	require.NoError(t, err)

	var decoded struct {
		Races map[string]map[string]struct {
			Record   map[string]any `json:"record"`
			Error    string         `json:"error"`
			Attempts int            `json:"attempts"`
			Issues   []string       `json:"issues"`
		} `json:"races"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))

	failed := decoded.Races["4"]["1"]
	require.Equal(t, "status 503", failed.Error)
	require.Nil(t, failed.Record)
	require.Equal(t, 3, failed.Attempts)

	ok := decoded.Races["4"]["2"]
	require.Empty(t, ok.Error)
	require.Equal(t, "Test Race", ok.Record["race_title"])
	require.Equal(t, []string{"boat 1: racer_age: missing"}, ok.Issues)
}

func TestSummarize(t *testing.T) {
	closedAt := time.Date(2024, 1, 15, 10, 45, 0, 0, time.UTC)
	require.Equal(t, "Test Race, closes 10:45, 0 boats", summarize(&boatrace.Program{
		RaceTitle:    lo.ToPtr("Test Race"),
		RaceClosedAt: &closedAt,
	}))

	require.Equal(t, "win 1, trifecta 0", summarize(&boatrace.Odds{
		WinOdds:      map[int]*float64{1: lo.ToPtr(1.5), 2: nil},
		TrifectaOdds: map[string]*float64{},
	}))

	require.Equal(t, "winner 3 (逃げ), 1 trifecta payouts", summarize(&boatrace.Result{
		Results:          map[int]boatrace.Finisher{1: {Position: 1, BoatNumber: lo.ToPtr(3)}},
		WinningTechnique: lo.ToPtr("逃げ"),
		TrifectaPayouts:  map[string]boatrace.Payout{"3-1-2": {Combination: "3-1-2", Payout: 1230}},
	}))

	require.Equal(t, "?, wind ?, 0 boats", summarize(&boatrace.Preview{}))
}

func TestRenderStadiums(t *testing.T) {
	var buf bytes.Buffer
	renderStadiums(&buf, map[int]boatrace.Stadium{
		12: {Number: 12, Name: lo.ToPtr("住之江")},
		1:  {Number: 1, Name: lo.ToPtr("桐生"), Grade: lo.ToPtr("一般")},
	})
	out := buf.String()
	require.Contains(t, out, "桐生")
	require.Contains(t, out, "住之江")
	require.Less(t, bytes.Index(buf.Bytes(), []byte("桐生")), bytes.Index(buf.Bytes(), []byte("住之江")))
}

func TestResolveDateDefaultsToTodayInJapan(t *testing.T) {
	// 16:30 UTC on the 14th is 01:30 on the 15th in Japan
	clock := chrono.FixedImpl{At: time.Date(2024, 1, 14, 16, 30, 0, 0, time.UTC)}

	date, err := resolveDate(clock, "")
	require.NoError(t, err)
	require.True(t, date.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, chrono.JST())), "got %v", date)

	date, err = resolveDate(clock, "20240301")
	require.NoError(t, err)
	require.Equal(t, "2024-03-01", date.Format(time.DateOnly))

	_, err = resolveDate(clock, "someday")
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestBuildQuery(t *testing.T) {
	t.Cleanup(func() {
		scrapeDate, scrapeStadium, scrapeRace = "", 0, 0
	})
	clock := chrono.FixedImpl{At: time.Date(2024, 1, 15, 9, 0, 0, 0, chrono.JST())}

	query, err := buildQuery(clock)
	require.NoError(t, err)
	require.Equal(t, "2024-01-15", query.Date.Format(time.DateOnly))
	require.Nil(t, query.Stadium)
	require.Nil(t, query.Race)

	scrapeDate, scrapeStadium, scrapeRace = "2024-02-01", 4, 12
	query, err = buildQuery(clock)
	require.NoError(t, err)
	require.Equal(t, "2024-02-01", query.Date.Format(time.DateOnly))
	require.Equal(t, 4, *query.Stadium)
	require.Equal(t, 12, *query.Race)
}
