package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"bvpscraper/internal/components/assert"
	"bvpscraper/internal/components/chrono"
	"bvpscraper/internal/components/telemetry"
	"bvpscraper/internal/scrapers/boatrace"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("bvpscraper.internal.service")
var meter = otel.Meter("bvpscraper.internal.service")

var slotCounter, _ = meter.Int64Counter("service.slots")
var retryCounter, _ = meter.Int64Counter("service.retries")
var issueCounter, _ = meter.Int64Counter("service.parse_issues")

const (
	report_service_run      = "service.run"
	report_service_stadiums = "service.resolve-stadiums"
	report_service_slot     = "service.scrape-slot"
	report_service_retry    = "service.retry"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryWait     = 3 * time.Second
)

type Options struct {
	// BaseURL is the origin pages are fetched from, boatrace.DefaultBaseURL
	// when empty.
	BaseURL string
	// RetryAttempts is how many times a page is tried before its slot fails.
	RetryAttempts int
	// RetryWait is the fixed wait between attempts, 0 means DefaultRetryWait
	// and a negative value retries immediately.
	RetryWait time.Duration
	// Concurrency is how many slots are scraped at once, 1 when unset.
	Concurrency int
	// AllOrNothing makes the first failed slot cancel the rest of the fan-out
	// and fail Run.
	AllOrNothing bool
}

func (o Options) withDefaults() Options {
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = DefaultRetryAttempts
	}
	if o.RetryWait == 0 {
		o.RetryWait = DefaultRetryWait
	}
	if o.RetryWait < 0 {
		o.RetryWait = 0
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	return o
}

// Slot is the outcome of scraping a single race.
type Slot struct {
	// Record is nil when Err is set.
	Record   boatrace.RaceRecord
	Err      error
	Attempts int
}

// Tree holds a slot for every queried race, keyed by stadium then race.
type Tree map[int]map[int]Slot

// Response is what every scrape method returns. Races is nil for stadium
// queries and Stadiums is only set when the stadiums had to be looked up.
type Response struct {
	Stadiums map[int]boatrace.Stadium
	Races    Tree
}

type serviceConfig struct {
	tel telemetry.API
}

type ServiceOption func(cfg *serviceConfig)

func WithCustomTelemetryAPI(tel telemetry.API) ServiceOption {
	return func(cfg *serviceConfig) {
		cfg.tel = tel
	}
}

// Service runs scrape methods over every race of a query. The page scrapers
// are created on first use and shared by every call afterwards.
type Service struct {
	fetcher boatrace.Fetcher
	opts    Options
	tel     telemetry.API

	mu       sync.Mutex
	programs *boatrace.ProgramScraper
	odds     *boatrace.OddsScraper
	previews *boatrace.PreviewScraper
	results  *boatrace.ResultScraper
	stadiums *boatrace.StadiumScraper
}

func NewService(fetcher boatrace.Fetcher, opts Options, options ...ServiceOption) *Service {
	assert.NotNil(fetcher)

	cfg := serviceConfig{tel: telemetry.SlogAPI{}}
	for _, opt := range options {
		opt(&cfg)
	}

	return &Service{
		fetcher: fetcher,
		opts:    opts.withDefaults(),
		tel:     telemetry.NewScopedAPI("service", cfg.tel),
	}
}

func (s *Service) programScraper() *boatrace.ProgramScraper {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.programs == nil {
		s.programs = boatrace.NewProgramScraper(s.fetcher, s.opts.BaseURL, s.tel)
	}
	return s.programs
}

func (s *Service) oddsScraper() *boatrace.OddsScraper {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.odds == nil {
		s.odds = boatrace.NewOddsScraper(s.fetcher, s.opts.BaseURL, s.tel)
	}
	return s.odds
}

func (s *Service) previewScraper() *boatrace.PreviewScraper {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.previews == nil {
		s.previews = boatrace.NewPreviewScraper(s.fetcher, s.opts.BaseURL, s.tel)
	}
	return s.previews
}

func (s *Service) resultScraper() *boatrace.ResultScraper {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.results == nil {
		s.results = boatrace.NewResultScraper(s.fetcher, s.opts.BaseURL, s.tel)
	}
	return s.results
}

func (s *Service) stadiumScraper() *boatrace.StadiumScraper {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stadiums == nil {
		s.stadiums = boatrace.NewStadiumScraper(s.fetcher, s.opts.BaseURL, s.tel)
	}
	return s.stadiums
}

type scrapeFunc func(ctx context.Context, date time.Time, stadium, race int) (boatrace.RaceRecord, error)

// record keeps a failed scrape from turning into a non-nil RaceRecord
// holding a nil pointer.
func record[T boatrace.RaceRecord](fn func(ctx context.Context, date time.Time, stadium, race int) (T, error)) scrapeFunc {
	return func(ctx context.Context, date time.Time, stadium, race int) (boatrace.RaceRecord, error) {
		r, err := fn(ctx, date, stadium, race)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

// resolve returns the scrape of a single race for a method.
func (s *Service) resolve(method Method) (scrapeFunc, error) {
	switch method {
	case MethodPrograms:
		return record(s.programScraper().Scrape), nil
	case MethodPreviews:
		return record(s.previewScraper().Scrape), nil
	case MethodResults:
		return record(s.resultScraper().Scrape), nil
	case MethodOdds:
		return record(s.oddsScraper().Scrape), nil
	case MethodWinOdds:
		return record(s.oddsScraper().ScrapeWin), nil
	case MethodPlaceOdds:
		return record(s.oddsScraper().ScrapePlace), nil
	case MethodExactaOdds:
		return record(s.oddsScraper().ScrapeExacta), nil
	case MethodQuinellaOdds:
		return record(s.oddsScraper().ScrapeQuinella), nil
	case MethodQuinellaPlaceOdds:
		return record(s.oddsScraper().ScrapeQuinellaPlace), nil
	case MethodTrifectaOdds:
		return record(s.oddsScraper().ScrapeTrifecta), nil
	case MethodTrioOdds:
		return record(s.oddsScraper().ScrapeTrio), nil
	case MethodStadiums:
		return nil, fmt.Errorf("%w: %s does not scrape races", ErrConfiguration, method)
	}
	return nil, fmt.Errorf("%w: no scraper for %s", ErrConfiguration, method)
}

// Run scrapes every race selected by the query with the given method. A
// race that still fails after every retry is recorded in its slot, Run only
// fails for invalid input, when the stadiums cannot be looked up or, with
// AllOrNothing, on the first failed slot.
func (s *Service) Run(ctx context.Context, method Method, query Query) (Response, error) {
	ctx, span := tracer.Start(ctx, "Service.Run", trace.WithAttributes(
		attribute.String("method", method.String()),
	))
	defer span.End()

	err := query.validate()
	if err != nil {
		return Response{}, err
	}
	date := chrono.Date(query.Date)

	if method == MethodStadiums {
		stadiums, err := s.scrapeStadiums(ctx, date)
		if err != nil {
			return Response{}, err
		}
		return Response{Stadiums: stadiums}, nil
	}

	scrape, err := s.resolve(method)
	if err != nil {
		s.tel.ReportBroken(report_service_run, err, method.String())
		return Response{}, err
	}

	var response Response
	var stadiums []int
	if query.Stadium != nil {
		stadiums = []int{*query.Stadium}
	} else {
		response.Stadiums, err = s.scrapeStadiums(ctx, date)
		if err != nil {
			return Response{}, fmt.Errorf("resolve stadiums: %w", err)
		}
		stadiums = lo.Keys(response.Stadiums)
		slices.Sort(stadiums)
	}

	races := lo.RangeFrom(1, 12)
	if query.Race != nil {
		races = []int{*query.Race}
	}

	response.Races, err = s.fanOut(ctx, scrape, date, stadiums, races)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fan-out failed")
		return response, err
	}
	return response, nil
}

func (s *Service) scrapeStadiums(ctx context.Context, date time.Time) (map[int]boatrace.Stadium, error) {
	scraper := s.stadiumScraper()
	stadiums, attempts, err := retry(ctx, s.opts, s.onRetry, func(ctx context.Context) (map[int]boatrace.Stadium, error) {
		return scraper.Scrape(ctx, date)
	})
	if err != nil {
		s.tel.ReportWarning(report_service_stadiums, err, attempts)
		return nil, err
	}
	return stadiums, nil
}

func (s *Service) onRetry(err error, wait time.Duration) {
	retryCounter.Add(context.Background(), 1)
	s.tel.ReportWarning(report_service_retry, err, wait.String())
}

// fanOut fills a slot for every (stadium, race) pair, every pair is present
// in the returned tree even when its scrape failed.
func (s *Service) fanOut(ctx context.Context, scrape scrapeFunc, date time.Time, stadiums, races []int) (Tree, error) {
	tree := make(Tree, len(stadiums))
	for _, stadium := range stadiums {
		tree[stadium] = make(map[int]Slot, len(races))
		for _, race := range races {
			tree[stadium][race] = Slot{}
		}
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.opts.Concurrency)

	for _, stadium := range stadiums {
		for _, race := range races {
			group.Go(func() error {
				slot := s.scrapeSlot(groupCtx, scrape, date, stadium, race)

				mu.Lock()
				tree[stadium][race] = slot
				mu.Unlock()

				if slot.Err != nil && s.opts.AllOrNothing {
					return fmt.Errorf("stadium %d race %d: %w", stadium, race, slot.Err)
				}
				return nil
			})
		}
	}

	err := group.Wait()
	return tree, err
}

func (s *Service) scrapeSlot(ctx context.Context, scrape scrapeFunc, date time.Time, stadium, race int) Slot {
	ctx, span := tracer.Start(ctx, "Service.scrapeSlot", trace.WithAttributes(
		attribute.Int("stadium", stadium),
		attribute.Int("race", race),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return Slot{Err: err}
	}

	rec, attempts, err := retry(ctx, s.opts, s.onRetry, func(ctx context.Context) (boatrace.RaceRecord, error) {
		return scrape(ctx, date, stadium, race)
	})
	span.SetAttributes(attribute.Int("attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slot failed")
		slotCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		s.tel.ReportWarning(report_service_slot, err, stadium, race, attempts)
		return Slot{Err: err, Attempts: attempts}
	}

	slotCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	if issues := rec.Diagnostics(); len(issues) > 0 {
		issueCounter.Add(ctx, int64(len(issues)))
	}
	return Slot{Record: rec, Attempts: attempts}
}

func (s *Service) ScrapePrograms(ctx context.Context, query Query) (Response, error) {
	return s.Run(ctx, MethodPrograms, query)
}

func (s *Service) ScrapePreviews(ctx context.Context, query Query) (Response, error) {
	return s.Run(ctx, MethodPreviews, query)
}

func (s *Service) ScrapeResults(ctx context.Context, query Query) (Response, error) {
	return s.Run(ctx, MethodResults, query)
}

// ScrapeOdds scrapes every bet type of every selected race.
func (s *Service) ScrapeOdds(ctx context.Context, query Query) (Response, error) {
	return s.Run(ctx, MethodOdds, query)
}

func (s *Service) ScrapeWinOdds(ctx context.Context, query Query) (Response, error) {
	return s.Run(ctx, MethodWinOdds, query)
}

func (s *Service) ScrapePlaceOdds(ctx context.Context, query Query) (Response, error) {
	return s.Run(ctx, MethodPlaceOdds, query)
}

func (s *Service) ScrapeExactaOdds(ctx context.Context, query Query) (Response, error) {
	return s.Run(ctx, MethodExactaOdds, query)
}

func (s *Service) ScrapeQuinellaOdds(ctx context.Context, query Query) (Response, error) {
	return s.Run(ctx, MethodQuinellaOdds, query)
}

func (s *Service) ScrapeQuinellaPlaceOdds(ctx context.Context, query Query) (Response, error) {
	return s.Run(ctx, MethodQuinellaPlaceOdds, query)
}

func (s *Service) ScrapeTrifectaOdds(ctx context.Context, query Query) (Response, error) {
	return s.Run(ctx, MethodTrifectaOdds, query)
}

func (s *Service) ScrapeTrioOdds(ctx context.Context, query Query) (Response, error) {
	return s.Run(ctx, MethodTrioOdds, query)
}

// ScrapeStadiums returns every stadium holding races on the date.
func (s *Service) ScrapeStadiums(ctx context.Context, date time.Time) (map[int]boatrace.Stadium, error) {
	response, err := s.Run(ctx, MethodStadiums, Query{Date: date})
	if err != nil {
		return nil, err
	}
	return response.Stadiums, nil
}
