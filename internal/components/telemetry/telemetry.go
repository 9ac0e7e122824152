package telemetry

import (
	"fmt"
)

// API is what components report through instead of logging directly, tests
// swap it for a MemoryAPI to assert on what was reported.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that failed and needs attention.
	//
	// `id` names the component and the operation, not the step that failed.
	// ex. a failed fetch while scraping a program is `program.scrape`, the
	// fetch itself belongs in the params or the wrapped error. ids are
	// lowercase, dots separate a component from its operation and dashes
	// join words.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unexpected that the component
	// recovered from (a retried fetch, a field that could not be parsed).
	ReportWarning(id string, params ...any)

	// ReportDebug is only shown with verbose logging.
	ReportDebug(msg string, params ...any)

	// ReportCount reports a gauge like value, counts are points in time and
	// should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, ex. "boatrace_client: fetch".
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
