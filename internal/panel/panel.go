// Package panel maps statistics records to label text and menu sections.
package panel

import (
	"fmt"
	"io"
	"strconv"

	"github.com/verte-zerg/ghstreak/internal/model"
)

// Icons used by the label and the menu.
const (
	IconCurrent = "🔥"
	IconLongest = "🍎"
	IconToday   = "💪"
	IconWindow  = "📊"
)

// Item is one menu entry.
type Item struct {
	Icon  string
	Label string
	Value int
}

// Text renders the item as a single menu line.
func (i Item) Text() string {
	return fmt.Sprintf("%s %s: %d", i.Icon, i.Label, i.Value)
}

// Section groups menu items under a title.
type Section struct {
	Title string
	Items []Item
}

// Label renders the compact one-line summary.
func Label(rec model.StatisticsRecord) string {
	return fmt.Sprintf("%s %d %s %d %s %d %s %d",
		IconCurrent, rec.CurrentStreak,
		IconLongest, rec.LongestStreak,
		IconToday, rec.TodayCount,
		IconWindow, rec.WindowCount,
	)
}

// WindowLabel names the trailing window, e.g. "Last 365 Days".
// A zero lookback covers the reference date alone.
func WindowLabel(rec model.StatisticsRecord) string {
	days := rec.WindowDays()
	switch {
	case days <= 0:
		return "Today Only"
	case days == 1:
		return "Last Day"
	}
	return fmt.Sprintf("Last %d Days", days)
}

// Menu returns the dropdown sections for a record.
func Menu(rec model.StatisticsRecord) []Section {
	return []Section{
		{
			Title: "Streaks",
			Items: []Item{
				{Icon: IconCurrent, Label: "Current Streak", Value: rec.CurrentStreak},
				{Icon: IconLongest, Label: "Longest Streak", Value: rec.LongestStreak},
			},
		},
		{
			Title: "Contribution Stats",
			Items: []Item{
				{Icon: IconToday, Label: "Today", Value: rec.TodayCount},
				{Icon: IconWindow, Label: WindowLabel(rec), Value: rec.WindowCount},
			},
		},
	}
}

// RenderMenu prints every section with its items, one per line.
func RenderMenu(w io.Writer, sections []Section) error {
	for i, section := range sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w, ""); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, section.Title); err != nil {
			return err
		}
		for _, item := range section.Items {
			if _, err := fmt.Fprintf(w, "  %s\n", item.Text()); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderTable prints the sections as an aligned two-column table.
func RenderTable(w io.Writer, sections []Section) error {
	headers := []string{"Stat", "Value"}
	var rows [][]string
	for _, section := range sections {
		for _, item := range section.Items {
			rows = append(rows, []string{item.Icon + " " + item.Label, strconv.Itoa(item.Value)})
		}
	}
	return WriteTable(w, headers, rows, map[int]bool{1: true})
}

// WriteTable prints rows aligned under headers using display width, so emoji
// and wide runes stay in their columns.
func WriteTable(w io.Writer, headers []string, rows [][]string, rightAlignCols map[int]bool) error {
	for _, line := range formatTable(headers, rows, rightAlignCols) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
