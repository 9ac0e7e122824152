package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"bvpscraper/cmd/bvp/globals"
	"bvpscraper/cmd/bvp/utils"
	"bvpscraper/internal/components/chrono"
	"bvpscraper/internal/service"

	"github.com/spf13/cobra"
)

var (
	scrapeDate    string
	scrapeStadium int
	scrapeRace    int
	scrapeMethod  string
)

func init() {
	flags := scrapeCmd.Flags()
	flags.StringVarP(&scrapeDate, "date", "d", "", "race day as YYYY-MM-DD or YYYYMMDD, today in Japan when empty")
	flags.IntVarP(&scrapeStadium, "stadium", "s", 0, "stadium number [1, 24], every stadium holding races when 0")
	flags.IntVarP(&scrapeRace, "race", "r", 0, "race number [1, 12], every race when 0")
	flags.StringVarP(&scrapeMethod, "method", "m", "programs", fmt.Sprintf(
		"one of %s", strings.Join(service.MethodNames(), ", "),
	))
	rootCmd.AddCommand(scrapeCmd)
}

// resolveDate parses text as a race day, an empty text is today in Japan.
func resolveDate(clock chrono.API, text string) (time.Time, error) {
	if text == "" {
		return chrono.Date(clock.Now()), nil
	}
	return service.ParseDate(text)
}

func buildQuery(clock chrono.API) (service.Query, error) {
	var query service.Query
	date, err := resolveDate(clock, scrapeDate)
	if err != nil {
		return query, err
	}
	query.Date = date
	if scrapeStadium != 0 {
		query.Stadium = &scrapeStadium
	}
	if scrapeRace != 0 {
		query.Race = &scrapeRace
	}
	return query, nil
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrapes one method over every race matching the given date, stadium and race.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())

		method, err := service.ParseMethod(scrapeMethod)
		if err != nil {
			return err
		}
		query, err := buildQuery(g.Clock)
		if err != nil {
			return err
		}

		res, err := g.Service.Run(cmd.Context(), method, query)
		if err != nil {
			return err
		}

		if method == service.MethodStadiums {
			if g.Format == "json" {
				return utils.WriteJSON(os.Stdout, res.Stadiums)
			}
			renderStadiums(os.Stdout, res.Stadiums)
			return nil
		}

		if g.Format == "json" {
			err = utils.WriteJSON(os.Stdout, toJSON(res))
			if err != nil {
				return err
			}
		} else {
			renderTree(os.Stdout, res.Races)
		}

		if err := failures(res.Races); err != nil {
			slog.Warn("some races could not be scraped", "err", err)
		}
		return nil
	},
}
