package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	loc := DefaultLocation()
	ref := time.Date(2026, time.January, 28, 10, 30, 0, 0, loc)

	cases := []struct {
		in      string
		want    time.Time
		hasTime bool
	}{
		{"28/01/2026", time.Date(2026, 1, 28, 0, 0, 0, 0, loc), false},
		{"28.01.2026 09:00", time.Date(2026, 1, 28, 9, 0, 0, 0, loc), true},
		{"27.01", time.Date(2026, 1, 27, 0, 0, 0, 0, loc), false},
		{"28 ian 2026", time.Date(2026, 1, 28, 0, 0, 0, 0, loc), false},
		{"5-feb", time.Date(2026, 2, 5, 0, 0, 0, 0, loc), false},
		{"Miercuri, 28 ianuarie 2026, ora 07:45", time.Date(2026, 1, 28, 7, 45, 0, 0, loc), true},
		{"3 noi 25", time.Date(2025, 11, 3, 0, 0, 0, 0, loc), false},
		{"31.12", time.Date(2025, 12, 31, 0, 0, 0, 0, loc), false}, // year boundary
		{"25.01\n26.01\n28.01", time.Date(2026, 1, 28, 0, 0, 0, 0, loc), false},
		{"2026-01-20", time.Date(2026, 1, 20, 0, 0, 0, 0, loc), false},
	}
	for _, tc := range cases {
		got, ok := parseDate(tc.in, ref, loc)
		require.True(t, ok, tc.in)
		assert.True(t, tc.want.Equal(got.t), "%q: want %v, got %v", tc.in, tc.want, got.t)
		assert.Equal(t, tc.hasTime, got.hasTime, tc.in)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	loc := DefaultLocation()
	ref := time.Date(2026, time.January, 28, 10, 30, 0, 0, loc)

	for _, in := range []string{"", "stabil", "159", "31.02.2026", "28 xyz 2026", "28.13.2026"} {
		_, ok := parseDate(in, ref, loc)
		assert.False(t, ok, in)
	}
}

func TestMonthTableHasTwelveEntries(t *testing.T) {
	assert.Len(t, monthAbbreviations, 12)
	seen := map[time.Month]bool{}
	for _, m := range monthAbbreviations {
		seen[m] = true
	}
	assert.Len(t, seen, 12)
}
