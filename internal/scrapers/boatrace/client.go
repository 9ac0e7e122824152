package boatrace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"bvpscraper/internal/components/assert"
	"bvpscraper/internal/components/telemetry"
	"bvpscraper/lib/restyutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/purell"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("bvpscraper.internal.scrapers.boatrace")
var meter = otel.Meter("bvpscraper.internal.scrapers.boatrace")

var fetchCounter, _ = meter.Int64Counter("boatrace.fetches")

const (
	report_client_fetch = "client.fetch"
)

const (
	DefaultBaseURL = "https://www.boatrace.jp"
	DefaultDelay   = time.Second
	DefaultTimeout = 30 * time.Second

	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	defaultAcceptLanguage = "ja,en-US;q=0.7,en;q=0.3"
	defaultPageCacheSize  = 256
)

// Fetcher retrieves a page and parses it into a document.
//
// note: fault injection point
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// TransportError is returned when a page could not be retrieved, either
// because of a network failure (StatusCode is 0) or a non-2xx status.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type ClientOptions struct {
	// Delay is how long every successful fetch blocks for after the page has
	// been retrieved. 0 means DefaultDelay, a negative value disables it.
	Delay   time.Duration
	Timeout time.Duration
	// RequestsPerSecond limits how often requests are sent across every
	// concurrent caller, 0 disables the limit.
	RequestsPerSecond float64
	// PageCacheTTL keeps retrieved pages in memory for the given duration,
	// 0 disables the cache.
	PageCacheTTL  time.Duration
	PageCacheSize int
	UserAgent     string
	// DumpDir, when set, receives a copy of every retrieved page.
	DumpDir string
}

// Client is the Fetcher used against the live site.
type Client struct {
	http  *resty.Client
	delay time.Duration
	cache *expirable.LRU[string, []byte]
	tel   telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("boatrace_client", tel)

	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	httpClient := resty.New()
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetHeader("accept-language", defaultAcceptLanguage)
	httpClient.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		// burst of 1 so that concurrent fetches are spread out evenly
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel)

	var output restyutil.Output
	if opts.DumpDir != "" {
		dir, err := restyutil.NewDirectoryOutput(opts.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("create dump directory: %w", err)
		}
		output = dir
	}
	restyutil.InstrumentClient(httpClient, tracer, output)

	c := &Client{
		http:  httpClient,
		delay: opts.Delay,
		tel:   tel,
	}
	if opts.PageCacheTTL > 0 {
		size := opts.PageCacheSize
		if size <= 0 {
			size = defaultPageCacheSize
		}
		c.cache = expirable.NewLRU[string, []byte](size, nil, opts.PageCacheTTL)
	}
	return c, nil
}

func cacheKey(url string) string {
	normalized, err := purell.NormalizeURLString(url, purell.FlagsSafe|purell.FlagSortQuery)
	if err != nil {
		return url
	}
	return normalized
}

func (c *Client) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	key := cacheKey(url)
	if c.cache != nil {
		if body, ok := c.cache.Get(key); ok {
			span.AddEvent("cache hit")
			return goquery.NewDocumentFromReader(bytes.NewReader(body))
		}
	}

	fetchCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("url", url)))

	res, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, ctx.Err())
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.tel.ReportWarning(report_client_fetch, err, url)
		return nil, &TransportError{URL: url, Err: err}
	}
	if !res.IsSuccess() {
		err := &TransportError{
			URL:        url,
			StatusCode: res.StatusCode(),
			Err:        fmt.Errorf("unexpected status %s", res.Status()),
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-2xx status")
		c.tel.ReportWarning(report_client_fetch, err, url)
		return nil, err
	}

	// every successful retrieval is followed by the delay, parsing failures included
	err = sleep(ctx, c.delay)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	reader, err := charset.NewReader(bytes.NewReader(res.Body()), res.Header().Get("content-type"))
	if err != nil {
		c.tel.ReportBroken(report_client_fetch, fmt.Errorf("transcode: %w", err), url)
		return nil, fmt.Errorf("fetch %s: transcode: %w", url, err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch, fmt.Errorf("transcode: %w", err), url)
		return nil, fmt.Errorf("fetch %s: transcode: %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		c.tel.ReportBroken(report_client_fetch, fmt.Errorf("parse html: %w", err), url)
		return nil, fmt.Errorf("fetch %s: parse html: %w", url, err)
	}
	if c.cache != nil {
		c.cache.Add(key, body)
	}
	return doc, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
