package stats

import (
	"math/rand"
	"testing"
	"time"

	"github.com/verte-zerg/ghstreak/internal/calendar"
	"github.com/verte-zerg/ghstreak/internal/model"
)

func mustSeries(t *testing.T, days ...model.RawDay) model.CalendarSeries {
	t.Helper()
	series, err := calendar.Normalize(days)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return series
}

func mustDate(s string) time.Time {
	d, err := calendar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func randomSeries(rnd *rand.Rand, n int) model.CalendarSeries {
	start := mustDate("2024-01-01")
	series := make(model.CalendarSeries, n)
	for i := range series {
		count := 0
		if rnd.Intn(3) > 0 {
			count = rnd.Intn(10)
		}
		series[i] = model.DayRecord{Date: start.AddDate(0, 0, i), Count: count}
	}
	return series
}

func TestStreaksScenarioBrokenRun(t *testing.T) {
	series := mustSeries(t,
		model.RawDay{Date: "2024-01-01", Count: 1},
		model.RawDay{Date: "2024-01-02", Count: 1},
		model.RawDay{Date: "2024-01-03", Count: 0},
		model.RawDay{Date: "2024-01-04", Count: 2},
	)
	info := Streaks(series)
	if info.Current != 1 {
		t.Errorf("current streak = %d, want 1", info.Current)
	}
	if info.Longest != 2 {
		t.Errorf("longest streak = %d, want 2", info.Longest)
	}
}

func TestStreaksScenarioFiveDays(t *testing.T) {
	var days []model.RawDay
	start := mustDate("2024-06-01")
	for i := 0; i < 5; i++ {
		days = append(days, model.RawDay{Date: start.AddDate(0, 0, i).Format(calendar.DateLayout), Count: 3})
	}
	info := Streaks(mustSeries(t, days...))
	if info.Current != 5 || info.Longest != 5 {
		t.Fatalf("expected 5,5 got %d,%d", info.Current, info.Longest)
	}
}

func TestStreaksEmpty(t *testing.T) {
	info := Streaks(nil)
	if info.Current != 0 || info.Longest != 0 {
		t.Fatalf("expected 0,0 for empty series, got %d,%d", info.Current, info.Longest)
	}
}

func TestStreaksTrailingZero(t *testing.T) {
	series := mustSeries(t,
		model.RawDay{Date: "2024-01-01", Count: 4},
		model.RawDay{Date: "2024-01-02", Count: 0},
	)
	info := Streaks(series)
	if info.Current != 0 || info.Longest != 1 {
		t.Fatalf("expected 0,1 got %d,%d", info.Current, info.Longest)
	}
}

func TestStreaksGapIsNotABreak(t *testing.T) {
	series := mustSeries(t,
		model.RawDay{Date: "2024-01-01", Count: 1},
		model.RawDay{Date: "2024-01-05", Count: 1},
	)
	info := Streaks(series)
	if info.Current != 2 || info.Longest != 2 {
		t.Fatalf("expected 2,2 got %d,%d", info.Current, info.Longest)
	}
}

func TestStreaksLongestAtLeastCurrent(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		series := randomSeries(rnd, rnd.Intn(60))
		info := Streaks(series)
		if info.Longest < info.Current {
			t.Fatalf("longest %d < current %d for %+v", info.Longest, info.Current, series)
		}
		if again := Streaks(series); again != info {
			t.Fatalf("streak analysis not idempotent: %+v vs %+v", info, again)
		}
	}
}

func TestPointSumNoMatch(t *testing.T) {
	series := mustSeries(t, model.RawDay{Date: "2024-01-01", Count: 9})
	got := PointSum(series, func(time.Time) bool { return false })
	if got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestTodayCount(t *testing.T) {
	series := mustSeries(t,
		model.RawDay{Date: "2024-03-09", Count: 2},
		model.RawDay{Date: "2024-03-10", Count: 6},
	)
	ref := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	if got := TodayCount(series, ref); got != 6 {
		t.Fatalf("expected 6, got %d", got)
	}
}

func TestWindowSumBounds(t *testing.T) {
	series := mustSeries(t,
		model.RawDay{Date: "2024-01-01", Count: 100},
		model.RawDay{Date: "2024-01-02", Count: 1},
		model.RawDay{Date: "2024-01-31", Count: 2},
		model.RawDay{Date: "2024-02-01", Count: 4},
		model.RawDay{Date: "2024-02-02", Count: 1000},
	)
	west := time.FixedZone("UTC-5", -5*60*60)
	east := time.FixedZone("UTC+9", 9*60*60)
	cases := []struct {
		name     string
		ref      time.Time
		lookback time.Duration
		want     int
	}{
		// Lower bound inclusive (2024-01-02), upper bound is the reference date.
		{"month", time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC), Month, 7},
		{"today only", time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC), 0, 4},
		{"one day", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Day, 6},
		// 2024-02-02 04:30 UTC is still 2024-02-01 in UTC-5.
		{"west before midnight", time.Date(2024, 2, 1, 23, 30, 0, 0, west), 0, 4},
		// 2024-02-01 15:30 UTC is already 2024-02-02 in UTC+9.
		{"east after midnight", time.Date(2024, 2, 2, 0, 30, 0, 0, east), 0, 1000},
		{"east after midnight month", time.Date(2024, 2, 2, 0, 30, 0, 0, east), Month, 1006},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WindowSum(series, tc.lookback, tc.ref); got != tc.want {
				t.Fatalf("WindowSum(%v, %v) = %d, want %d", tc.lookback, tc.ref, got, tc.want)
			}
		})
	}
}

func TestWindowSumMonotonic(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	series := randomSeries(rnd, 400)
	ref := mustDate("2025-01-15")
	prev := -1
	for days := 0; days <= 420; days += 7 {
		got := WindowSum(series, time.Duration(days)*Day, ref)
		if got < prev {
			t.Fatalf("window sum decreased at %d days: %d < %d", days, got, prev)
		}
		prev = got
	}
}

func TestCompute(t *testing.T) {
	series := mustSeries(t,
		model.RawDay{Date: "2024-01-01", Count: 1},
		model.RawDay{Date: "2024-01-02", Count: 1},
		model.RawDay{Date: "2024-01-03", Count: 0},
		model.RawDay{Date: "2024-01-04", Count: 2},
	)
	rec := Compute(series, mustDate("2024-01-04"), Year)
	want := model.StatisticsRecord{CurrentStreak: 1, LongestStreak: 2, TodayCount: 2, WindowCount: 4, Lookback: Year}
	if rec != want {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.WindowDays() != 365 {
		t.Fatalf("expected 365 window days, got %d", rec.WindowDays())
	}
}

func TestComputeAllZero(t *testing.T) {
	series := mustSeries(t,
		model.RawDay{Date: "2024-01-01", Count: 0},
		model.RawDay{Date: "2024-01-02", Count: 0},
	)
	rec := Compute(series, mustDate("2024-01-02"), Month)
	if rec.CurrentStreak != 0 || rec.LongestStreak != 0 || rec.TodayCount != 0 || rec.WindowCount != 0 {
		t.Fatalf("expected all-zero record, got %+v", rec)
	}
}
