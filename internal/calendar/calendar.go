// Package calendar turns raw upstream day lists into canonical series.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/verte-zerg/ghstreak/internal/model"
)

// DateLayout is the upstream date format.
const DateLayout = "2006-01-02"

// ErrMalformedRecord matches every *MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed day record")

// MalformedRecordError reports a raw day that cannot enter a series.
type MalformedRecordError struct {
	Index  int
	Date   string
	Count  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed day record #%d (date=%q count=%d): %s", e.Index, e.Date, e.Count, e.Reason)
}

// Is reports whether target is ErrMalformedRecord.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// Flatten concatenates the week buckets of cal in order.
func Flatten(cal model.RawCalendar) []model.RawDay {
	n := 0
	for _, w := range cal.Weeks {
		n += len(w.Days)
	}
	days := make([]model.RawDay, 0, n)
	for _, w := range cal.Weeks {
		days = append(days, w.Days...)
	}
	return days
}

// ParseDate parses a YYYY-MM-DD string into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DateOf returns the calendar date of t, as seen in t's location, at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Normalize merges duplicate dates by summing and sorts the result ascending.
// The input slice is not modified.
func Normalize(days []model.RawDay) (model.CalendarSeries, error) {
	totals := make(map[time.Time]int, len(days))
	for i, day := range days {
		if day.Count < 0 {
			return nil, &MalformedRecordError{Index: i, Date: day.Date, Count: day.Count, Reason: "negative count"}
		}
		date, err := ParseDate(day.Date)
		if err != nil {
			return nil, &MalformedRecordError{Index: i, Date: day.Date, Count: day.Count, Reason: "unparseable date"}
		}
		totals[date] += day.Count
	}

	series := make(model.CalendarSeries, 0, len(totals))
	for date, count := range totals {
		series = append(series, model.DayRecord{Date: date, Count: count})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series, nil
}
