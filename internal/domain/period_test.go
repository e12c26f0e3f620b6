package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodStartAndNext(t *testing.T) {
	// Wednesday afternoon in Seoul, still Wednesday in UTC.
	at := time.Date(2026, 10, 14, 15, 30, 0, 0, time.FixedZone("KST", 9*3600))

	tests := []struct {
		period Period
		start  time.Time
		next   time.Time
	}{
		{PeriodDaily, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)},
		{PeriodWeekly, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)},
		{PeriodMonthly, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			assert.Equal(t, tt.start, tt.period.Start(at))
			assert.Equal(t, tt.next, tt.period.Next(at))
			assert.True(t, tt.period.SamePeriod(at, tt.start))
			assert.False(t, tt.period.SamePeriod(at, tt.next))
		})
	}
}

func TestPeriodWeekStartsOnMonday(t *testing.T) {
	sunday := time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), PeriodWeekly.Start(sunday))
	assert.Equal(t, monday, PeriodWeekly.Start(monday))
}

func TestPeriodAgo(t *testing.T) {
	at := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 30, 12, 0, 0, 0, time.UTC), PeriodDaily.Ago(at))
	assert.Equal(t, time.Date(2026, 3, 24, 12, 0, 0, 0, time.UTC), PeriodWeekly.Ago(at))
	// AddDate normalizes February 31st to March 3rd.
	assert.Equal(t, time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC), PeriodMonthly.Ago(at))
}

func TestFrequencyFlushBoundary(t *testing.T) {
	at := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, at, FrequencyImmediate.FlushBoundary(at))
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), FrequencyDaily.FlushBoundary(at))
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), FrequencyWeekly.FlushBoundary(at))
	assert.False(t, Frequency("hourly").Valid())
}
