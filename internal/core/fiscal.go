package core

import (
	"fmt"
	"time"
)

// FiscalYear returns the federal fiscal year containing t
// (FY N runs Oct 1 of N-1 through Sep 30 of N).
func FiscalYear(t time.Time) int {
	t = t.UTC()
	if t.Month() >= time.October {
		return t.Year() + 1
	}
	return t.Year()
}

// FiscalYearRange returns the start and end dates of a federal fiscal
// year formatted as ISO dates, the way USASpending time_period filters
// expect them.
func FiscalYearRange(year int) (string, string) {
	start := fmt.Sprintf("%d-10-01", year-1)
	end := fmt.Sprintf("%d-09-30", year)
	return start, end
}

// ClampLimit bounds a caller-supplied page size to [1, max], applying
// def when the caller supplied nothing (zero or negative).
func ClampLimit(requested, def, max int) int {
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}
