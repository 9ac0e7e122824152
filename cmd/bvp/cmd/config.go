package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"bvpscraper/internal/scrapers/boatrace"
	"bvpscraper/internal/service"
	"bvpscraper/lib/configutil"

	"github.com/spf13/cast"
)

// Config is read from bvp.json5, durations are written as strings like
// "1s" or "500ms".
type Config struct {
	BaseURL           string  `json:"base_url"`
	Delay             string  `json:"delay"`
	Timeout           string  `json:"timeout"`
	RetryAttempts     int     `json:"retry_attempts"`
	RetryWait         string  `json:"retry_wait"`
	Concurrency       int     `json:"concurrency"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	PageCacheTTL      string  `json:"page_cache_ttl"`
	AllOrNothing      bool    `json:"all_or_nothing"`
	DumpDir           string  `json:"dump_dir"`
	// PerfStatsInterval enables process gauges when telemetry is exported.
	PerfStatsInterval string `json:"perf_stats_interval"`
}

// loadConfig reads the config at path, a missing file leaves every value on
// its default.
func loadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("config not found, using defaults", "path", path)
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return config, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := cast.ToDurationE(value)
	if err != nil {
		return 0, fmt.Errorf("config %s: %w", field, err)
	}
	return d, nil
}

func (c Config) clientOptions() (boatrace.ClientOptions, error) {
	delay, err := parseDuration("delay", c.Delay)
	if err != nil {
		return boatrace.ClientOptions{}, err
	}
	timeout, err := parseDuration("timeout", c.Timeout)
	if err != nil {
		return boatrace.ClientOptions{}, err
	}
	ttl, err := parseDuration("page_cache_ttl", c.PageCacheTTL)
	if err != nil {
		return boatrace.ClientOptions{}, err
	}
	return boatrace.ClientOptions{
		Delay:             delay,
		Timeout:           timeout,
		RequestsPerSecond: c.RequestsPerSecond,
		PageCacheTTL:      ttl,
		DumpDir:           c.DumpDir,
	}, nil
}

func (c Config) serviceOptions() (service.Options, error) {
	wait, err := parseDuration("retry_wait", c.RetryWait)
	if err != nil {
		return service.Options{}, err
	}
	return service.Options{
		BaseURL:       c.BaseURL,
		RetryAttempts: c.RetryAttempts,
		RetryWait:     wait,
		Concurrency:   c.Concurrency,
		AllOrNothing:  c.AllOrNothing,
	}, nil
}
