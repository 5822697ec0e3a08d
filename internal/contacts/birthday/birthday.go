// Package birthday holds the calendar rules for matching birth dates to
// reminder days, including the Feb 29 fallback in non-leap years.
package birthday

import "time"

// MonthDay is a calendar day with the year stripped.
type MonthDay struct {
	Month time.Month
	Day   int
}

// Of extracts the month and day from a date.
func Of(t time.Time) MonthDay {
	return MonthDay{Month: t.Month(), Day: t.Day()}
}

// MatchDays returns the birth-date days that count as falling on the given
// calendar day. On Feb 28 of a non-leap year the result also includes
// Feb 29, so leap-day birthdays are not skipped three years out of four.
func MatchDays(on time.Time) []MonthDay {
	days := []MonthDay{Of(on)}
	if on.Month() == time.February && on.Day() == 28 && !isLeapYear(on.Year()) {
		days = append(days, MonthDay{Month: time.February, Day: 29})
	}
	return days
}

// Upcoming returns the match days for each of the lookahead+1 calendar days
// starting at from (inclusive). Duplicate days are preserved in order; the
// dispatcher dedupes via the notification log.
func Upcoming(from time.Time, lookaheadDays int) []MonthDay {
	if lookaheadDays < 0 {
		lookaheadDays = 0
	}
	var days []MonthDay
	for offset := 0; offset <= lookaheadDays; offset++ {
		days = append(days, MatchDays(from.AddDate(0, 0, offset))...)
	}
	return days
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
