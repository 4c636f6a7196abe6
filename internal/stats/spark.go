package stats

import (
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/ghstreak/internal/calendar"
	"github.com/verte-zerg/ghstreak/internal/model"
)

const sparkChars = " .:-=+*#%@"

// DailyCounts returns one count per calendar day for the days ending on
// DateOf(ref), oldest first. Dates missing from the series are zero.
func DailyCounts(series model.CalendarSeries, ref time.Time, days int) []int {
	if days <= 0 {
		return nil
	}
	end := calendar.DateOf(ref)
	start := end.AddDate(0, 0, -(days - 1))
	out := make([]int, days)
	for _, rec := range series {
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		idx := int(rec.Date.Sub(start) / Day)
		out[idx] += rec.Count
	}
	return out
}

// Sparkline renders a single-line ASCII strip scaled from zero to the max value.
// Zero renders as a blank so inactive days stand out.
func Sparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}
	maxVal := 0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		return strings.Repeat(string(sparkChars[0]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if v > 0 {
			pos := float64(v) / float64(maxVal)
			idx = int(math.Ceil(pos * float64(len(sparkChars)-1)))
		}
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
