package cmd

import (
	"os"

	"bvpscraper/cmd/bvp/globals"
	"bvpscraper/cmd/bvp/utils"

	"github.com/spf13/cobra"
)

var stadiumsDate string

func init() {
	stadiumsCmd.Flags().StringVarP(&stadiumsDate, "date", "d", "", "race day, today in Japan when empty")
	rootCmd.AddCommand(stadiumsCmd)
}

var stadiumsCmd = &cobra.Command{
	Use:   "stadiums",
	Short: "Lists the stadiums holding races on a day.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())

		date, err := resolveDate(g.Clock, stadiumsDate)
		if err != nil {
			return err
		}

		stadiums, err := g.Service.ScrapeStadiums(cmd.Context(), date)
		if err != nil {
			return err
		}
		if g.Format == "json" {
			return utils.WriteJSON(os.Stdout, stadiums)
		}
		renderStadiums(os.Stdout, stadiums)
		return nil
	},
}
