package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDateKeepsCalendarDay(t *testing.T) {
	sydney, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	expected := time.Date(2024, 1, 15, 0, 0, 0, 0, JST())
	for _, value := range []time.Time{
		time.Date(2024, 1, 15, 0, 0, 0, 0, sydney),
		time.Date(2024, 1, 15, 23, 59, 0, 0, newYork),
		time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 18, 0, 0, 0, JST()),
	} {
		date := Date(value)
		require.True(t, date.Equal(expected), "%v became %v", value, date)
		require.Equal(t, JST(), date.Location())
	}
}

func TestFixedImpl(t *testing.T) {
	var clock API = FixedImpl{At: time.Date(2024, 1, 14, 16, 0, 0, 0, time.UTC)}
	now := clock.Now()
	require.Equal(t, JST(), now.Location())
	require.Equal(t, 15, now.Day())
	require.Equal(t, 1, now.Hour())
}
