package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		raw  string
		want Period
		ok   bool
	}{
		{"day", PeriodDay, true},
		{"month", PeriodMonth, true},
		{"all", PeriodAll, true},
		{"", PeriodAll, true},
		{"week", "", false},
		{"DAY", "", false},
	}
	for _, tc := range cases {
		got, ok := ParsePeriod(tc.raw)
		assert.Equal(t, tc.ok, ok, "raw=%q", tc.raw)
		if ok {
			assert.Equal(t, tc.want, got, "raw=%q", tc.raw)
		}
	}
}

func TestPeriodStartUsesReferenceTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tashkent")
	require.NoError(t, err)

	// 20:30 UTC on March 10 is already 01:30 on March 11 in Tashkent.
	now := time.Date(2025, 3, 10, 20, 30, 0, 0, time.UTC)

	day := PeriodStart(PeriodDay, now, loc)
	require.NotNil(t, day)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, loc), *day)

	month := PeriodStart(PeriodMonth, now, loc)
	require.NotNil(t, month)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, loc), *month)

	assert.Nil(t, PeriodStart(PeriodAll, now, loc))
}

func TestPeriodStartMidMonth(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tashkent")
	require.NoError(t, err)

	now := time.Date(2025, 7, 15, 9, 0, 0, 0, loc)

	day := PeriodStart(PeriodDay, now, loc)
	require.NotNil(t, day)
	assert.Equal(t, time.Date(2025, 7, 15, 0, 0, 0, 0, loc), *day)

	month := PeriodStart(PeriodMonth, now, loc)
	require.NotNil(t, month)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, loc), *month)
}
