// Package model defines shared data structures.
package model

import "time"

// Config defines the settings shared by the one-shot and watch commands.
type Config struct {
	User     string
	Token    string
	Endpoint string
	Lookback time.Duration
	Interval time.Duration
	Offline  bool
}

// RawDay is a single day as delivered by the upstream calendar.
type RawDay struct {
	Date  string `json:"date"`
	Count int    `json:"contributionCount"`
}

// RawWeek is one week bucket of the upstream calendar.
type RawWeek struct {
	Days []RawDay `json:"contributionDays"`
}

// RawCalendar is the nested weeks->days calendar before normalization.
type RawCalendar struct {
	TotalContributions int       `json:"totalContributions"`
	Weeks              []RawWeek `json:"weeks"`
}

// DayRecord is one calendar date and its activity count.
// Date is always UTC midnight.
type DayRecord struct {
	Date  time.Time
	Count int
}

// CalendarSeries is ordered ascending by date with unique dates.
// Dates absent from the series count as zero.
type CalendarSeries []DayRecord

// StatisticsRecord is the result of one computation.
type StatisticsRecord struct {
	CurrentStreak int           `json:"currentStreak"`
	LongestStreak int           `json:"longestStreak"`
	TodayCount    int           `json:"todayCount"`
	WindowCount   int           `json:"windowCount"`
	Lookback      time.Duration `json:"-"`
}

// WindowDays returns the lookback expressed in whole days.
func (r StatisticsRecord) WindowDays() int {
	return int(r.Lookback / (24 * time.Hour))
}
