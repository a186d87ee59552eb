package date

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	d, err := Parse("2025-06-02")
	require.NoError(t, err)
	require.Equal(t, 2025, d.Year())
	require.Equal(t, time.June, d.Month())
	require.Equal(t, 2, d.Day())
	require.Equal(t, "2025-06-02", d.String())

	_, err = Parse("2025/06/02")
	require.Error(t, err)
	_, err = Parse("2025-13-01")
	require.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	d := MustParse("2025-06-02")
	b, err := json.Marshal(d)
	require.NoError(t, err)
	require.Equal(t, `"2025-06-02"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, d, back)
}

func TestAddAndSub(t *testing.T) {
	d := MustParse("2025-02-27")
	require.Equal(t, MustParse("2025-03-01"), d.Add(2))
	require.Equal(t, MustParse("2025-02-25"), d.Add(-2))
	require.Equal(t, 2, MustParse("2025-03-01").Sub(d))
	require.Equal(t, -2, d.Sub(MustParse("2025-03-01")))
}

func TestWeekdayMondayBased(t *testing.T) {
	require.Equal(t, 0, MustParse("2025-06-02").Weekday()) // Monday
	require.Equal(t, 6, MustParse("2025-06-08").Weekday()) // Sunday
}

func TestClamped(t *testing.T) {
	require.Equal(t, MustParse("2025-02-28"), Clamped(2025, time.February, 31))
	require.Equal(t, MustParse("2024-02-29"), Clamped(2024, time.February, 31))
	require.Equal(t, MustParse("2025-04-30"), Clamped(2025, time.April, 31))
	require.Equal(t, MustParse("2025-01-31"), Clamped(2025, time.January, 31))
}

func TestAddMonthsClampsDay(t *testing.T) {
	d := MustParse("2025-01-31")
	require.Equal(t, MustParse("2025-02-28"), d.AddMonths(1))
	require.Equal(t, MustParse("2025-04-30"), d.AddMonths(3))
	require.Equal(t, MustParse("2024-12-31"), d.AddMonths(-1))
	require.Equal(t, MustParse("2026-01-31"), d.AddMonths(12))
}

func TestCompare(t *testing.T) {
	a, b := MustParse("2025-06-02"), MustParse("2025-06-03")
	require.True(t, a.Before(b))
	require.True(t, b.After(a))
	require.False(t, a.After(a))
	require.True(t, Date{}.IsZero())
	require.False(t, a.IsZero())
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30:15")
	require.NoError(t, err)
	require.Equal(t, TimeOfDay(9*3600+30*60+15), tod)
	require.Equal(t, "09:30:15", tod.String())

	tod, err = ParseTimeOfDay("14:05")
	require.NoError(t, err)
	require.Equal(t, TimeOfDay(14*3600+5*60), tod)

	_, err = ParseTimeOfDay("25:00")
	require.Error(t, err)
}

func TestSecondsApart(t *testing.T) {
	a := TimeOfDay(9 * 3600)
	b := TimeOfDay(9*3600 + 59)
	require.Equal(t, 59, SecondsApart(a, b))
	require.Equal(t, 59, SecondsApart(b, a))
	require.Equal(t, 0, SecondsApart(a, a))
}
