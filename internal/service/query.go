package service

import (
	"fmt"
	"regexp"
	"time"

	"bvpscraper/internal/components/chrono"

	"github.com/spf13/cast"
)

// Query selects the races to scrape, a nil Stadium or Race means all of them.
type Query struct {
	Date    time.Time
	Stadium *int
	Race    *int
}

var compactDate = regexp.MustCompile(`^\d{8}$`)

// ParseDate accepts a time.Time, a unix timestamp or a date string
// ("2024-01-15", "20240115", RFC 3339...) and returns midnight of that day in
// Asia/Tokyo. Times and strings with an offset keep the day they are written
// in.
func ParseDate(value any) (time.Time, error) {
	if s, ok := value.(string); ok && compactDate.MatchString(s) {
		t, err := time.ParseInLocation("20060102", s, chrono.JST())
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: invalid date %q: %v", ErrValidation, s, err)
		}
		return t, nil
	}

	t, err := cast.ToTimeInDefaultLocationE(value, chrono.JST())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %v: %v", ErrValidation, value, err)
	}
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrValidation)
	}
	if isTimestamp(value) {
		// a unix timestamp is an instant, its day is the one in Japan
		t = t.In(chrono.JST())
	}
	return chrono.Date(t), nil
}

func isTimestamp(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func (q Query) validate() error {
	if q.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if q.Stadium != nil && (*q.Stadium < 1 || *q.Stadium > 24) {
		return fmt.Errorf("%w: stadium %d is not within [1, 24]", ErrValidation, *q.Stadium)
	}
	if q.Race != nil && (*q.Race < 1 || *q.Race > 12) {
		return fmt.Errorf("%w: race %d is not within [1, 12]", ErrValidation, *q.Race)
	}
	return nil
}
