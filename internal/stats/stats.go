// Package stats contains statistics calculations and reporting.
package stats

import (
	"time"

	"github.com/verte-zerg/ghstreak/internal/calendar"
	"github.com/verte-zerg/ghstreak/internal/model"
)

// Common lookbacks.
const (
	Day      = 24 * time.Hour
	Month    = 30 * Day
	Year     = 365 * Day
	Calendar = 52 * 7 * Day
)

// StreakInfo holds current and longest streak values.
type StreakInfo struct {
	Current int
	Longest int
}

// PointSum sums the counts of all records whose date satisfies match.
func PointSum(series model.CalendarSeries, match func(date time.Time) bool) int {
	total := 0
	for _, rec := range series {
		if match(rec.Date) {
			total += rec.Count
		}
	}
	return total
}

// Streaks scans the series in ascending order. A positive count extends the
// running streak and a zero count resets it. Missing dates between two
// records are not treated as breaks: the upstream calendar supplies one
// record per day, so only explicit zero-count records end a streak.
func Streaks(series model.CalendarSeries) StreakInfo {
	var info StreakInfo
	run := 0
	for _, rec := range series {
		if rec.Count > 0 {
			run++
			if run > info.Longest {
				info.Longest = run
			}
		} else {
			run = 0
		}
	}
	info.Current = run
	return info
}

// WindowSum sums the records dated within [DateOf(ref)-lookback, DateOf(ref)].
func WindowSum(series model.CalendarSeries, lookback time.Duration, ref time.Time) int {
	end := calendar.DateOf(ref)
	start := end.Add(-lookback)
	return PointSum(series, func(date time.Time) bool {
		return !date.Before(start) && !date.After(end)
	})
}

// TodayCount sums the records dated on the calendar date of ref.
func TodayCount(series model.CalendarSeries, ref time.Time) int {
	today := calendar.DateOf(ref)
	return PointSum(series, func(date time.Time) bool {
		return date.Equal(today)
	})
}

// Compute builds a StatisticsRecord for the series as of ref.
func Compute(series model.CalendarSeries, ref time.Time, lookback time.Duration) model.StatisticsRecord {
	streak := Streaks(series)
	return model.StatisticsRecord{
		CurrentStreak: streak.Current,
		LongestStreak: streak.Longest,
		TodayCount:    TodayCount(series, ref),
		WindowCount:   WindowSum(series, lookback, ref),
		Lookback:      lookback,
	}
}
