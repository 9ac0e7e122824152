package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"bvpscraper/cmd/bvp/globals"
	"bvpscraper/internal/components/chrono"
	apitelemetry "bvpscraper/internal/components/telemetry"
	"bvpscraper/internal/scrapers/boatrace"
	"bvpscraper/internal/service"
	"bvpscraper/lib/serviceutil"
	"bvpscraper/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpDir    string
	format     string
)

var otel telemetry.Telemetry

var rootCmd = &cobra.Command{
	Use:           "bvp",
	Short:         "bvp scrapes race programs, odds, previews and results from boatrace.jp.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		if format != "table" && format != "json" {
			return fmt.Errorf("unknown format %q, expected table or json", format)
		}

		config, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if dumpDir != "" {
			config.DumpDir = dumpDir
		}

		otel, err = telemetry.SetupFromEnv(cmd.Context(), "bvp")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		interval, err := parseDuration("perf_stats_interval", config.PerfStatsInterval)
		if err != nil {
			return err
		}
		if interval > 0 {
			telemetry.InstrumentPerfStats(cmd.Context(), interval)
		}

		clientOpts, err := config.clientOptions()
		if err != nil {
			return err
		}
		serviceOpts, err := config.serviceOptions()
		if err != nil {
			return err
		}

		tel := apitelemetry.SlogAPI{}
		client, err := boatrace.NewClient(clientOpts, tel)
		if err != nil {
			return fmt.Errorf("create client: %w", err)
		}

		cmd.SetContext(globals.Set(cmd.Context(), &globals.Value{
			Service: service.NewService(client, serviceOpts, service.WithCustomTelemetryAPI(tel)),
			Clock:   chrono.NewStandardImpl(),
			Format:  format,
		}))
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "bvp.json5", "path to the json5 config, <name>.local.json5 overrides it")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug messages")
	flags.StringVar(&dumpDir, "dump-dir", "", "write every retrieved page into this directory")
	flags.StringVarP(&format, "format", "f", "table", "output format, table or json")
}

// Execute runs the command line and flushes telemetry before returning.
func Execute() error {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if shutdownErr := otel.Shutdown(context.Background()); shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}
	return err
}
