package domain

import "time"

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// Ago returns t moved back by one period. Monthly steps back one calendar month.
func (p Period) Ago(t time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return t.AddDate(0, 0, -7)
	case PeriodMonthly:
		return t.AddDate(0, -1, 0)
	default:
		return t.AddDate(0, 0, -1)
	}
}

// Start returns the UTC instant the period containing t began. Weeks start on Monday.
func (p Period) Start(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// Next returns the start of the period following the one containing t.
func (p Period) Next(t time.Time) time.Time {
	start := p.Start(t)
	switch p {
	case PeriodWeekly:
		return start.AddDate(0, 0, 7)
	case PeriodMonthly:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// SamePeriod reports whether a and b fall into the same period.
func (p Period) SamePeriod(a, b time.Time) bool {
	return p.Start(a).Equal(p.Start(b))
}

type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyImmediate, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// FlushBoundary returns the instant a batch opened at t is drained.
// Immediate frequency flushes at t itself.
func (f Frequency) FlushBoundary(t time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return PeriodDaily.Next(t)
	case FrequencyWeekly:
		return PeriodWeekly.Next(t)
	default:
		return t.UTC()
	}
}
