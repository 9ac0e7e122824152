package chrono

import (
	"time"
	_ "time/tzdata"
)

var jst *time.Location

func init() {
	var err error
	jst, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		panic(err)
	}
}

// JST returns a [*time.Location] for Asia/Tokyo, every date and time on the
// race pages is written in it.
func JST() *time.Location {
	return jst
}

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in Asia/Tokyo.
	Now() time.Time
}

// StandardImpl is the standard implementation of API using the standard library.
type StandardImpl struct{}

func NewStandardImpl() StandardImpl {
	return StandardImpl{}
}

func (StandardImpl) Now() time.Time {
	return time.Now().In(jst)
}

// Date keeps the calendar day of t as written in its own location and
// returns midnight of that day in Asia/Tokyo.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, jst)
}

// FixedImpl always returns the same instant.
type FixedImpl struct {
	At time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.At.In(jst)
}
