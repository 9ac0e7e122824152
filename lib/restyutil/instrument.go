package restyutil

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

type instrumentCtx struct {
	output    Output
	tracer    trace.Tracer
	idcounter *uint64
}

// InstrumentClient starts a span for every request of the client and, when
// output is not nil, dumps every response body along with the request line
// and status so that selectors can be checked against real pages.
//
// `tracer` can be nil, it will default to a library name of "resty"
func InstrumentClient(client *resty.Client, tracer trace.Tracer, output Output) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}

	var idcounter uint64
	i := instrumentCtx{output: output, tracer: tracer, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type messageIdKeyType int

var messageIdKey messageIdKeyType

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))
	ctx = context.WithValue(ctx, messageIdKey, atomic.AddUint64(i.idcounter, 1))
	req.SetContext(ctx)
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_=-]+`)

// dumpName turns a request url into a file name, ex.
// 0001_racelist_hd=20240115_jcd=01_rno=1.html
func dumpName(id uint64, rawUrl string) string {
	name := rawUrl
	parsed, err := url.Parse(rawUrl)
	if err == nil {
		name = path.Base(parsed.Path)
		if parsed.RawQuery != "" {
			name += "_" + parsed.Query().Encode()
		}
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	return fmt.Sprintf("%04d_%s.html", id, name)
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}

	if i.output == nil {
		return nil
	}
	id, _ := ctx.Value(messageIdKey).(uint64)

	var dump bytes.Buffer
	fmt.Fprintf(&dump, "<!-- %s %s\n%s -->\n", res.Request.Method, res.Request.URL, res.Status())
	dump.Write(res.Body())
	i.output.Write(dumpName(id, res.Request.URL), dump.Bytes())

	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	if req.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	}
}
