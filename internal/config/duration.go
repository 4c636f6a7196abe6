package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// ParseLookback parses a window such as "30d", "52w" or a Go duration like "720h".
// The result must be a non-negative whole number of days.
func ParseLookback(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("window is empty")
	}
	var d time.Duration
	switch {
	case strings.HasSuffix(s, "d"):
		n, err := parseCount(s, "d", day)
		if err != nil {
			return 0, err
		}
		d = time.Duration(n) * day
	case strings.HasSuffix(s, "w"):
		n, err := parseCount(s, "w", 7*day)
		if err != nil {
			return 0, err
		}
		d = time.Duration(n) * 7 * day
	default:
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid window %q: %w", s, err)
		}
		d = parsed
	}
	if d < 0 {
		return 0, fmt.Errorf("window %q must not be negative", s)
	}
	if d%day != 0 {
		return 0, fmt.Errorf("window %q must be a whole number of days", s)
	}
	return d, nil
}

func parseCount(s, suffix string, unit time.Duration) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSuffix(s, suffix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid window %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("window %q must not be negative", s)
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("window %q is too large", s)
	}
	return n, nil
}
