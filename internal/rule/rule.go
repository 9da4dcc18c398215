// Package rule evaluates availability rule strings against an instant in
// time. A rule string combines up to three optional clauses, in any order,
// separated by arbitrary text:
//
//	every fri date: 1/1/2026-10/1/2026 time: 4:00 AM-7:00 PM
//	every mon time: 3:00 PM-5:00 PM
//	every weekday time: 3:00 PM-5:00 PM
//	date: 1/1/2026-10/1/2026 time: 8:00 AM-4:30 PM
//
// A clause that is absent never constrains the result; a clause that is
// present must match the instant. Dates are day/month/year and times are
// 12-hour clock with AM/PM.
package rule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clause patterns. The period token is scanned as a run of the letters that
// appear in the recognized tokens, so near-miss tokens like "monday" are
// still captured and simply fail to match any day.
var (
	periodRegex = regexp.MustCompile(`every ([montuewdhfrisayk]+)`)
	dateRegex   = regexp.MustCompile(`date: (\d{1,2}/\d{1,2}/\d{1,4})-?(\d{1,2}/\d{1,2}/\d{1,4})?`)
	timeRegex   = regexp.MustCompile(`time: (\d{1,2}:\d{1,2} [A|P]M)-?(\d{1,2}:\d{1,2} [A|P]M)?`)
)

// ParseError reports a date or time clause whose shape matched the grammar
// but whose values are not a valid calendar date or clock time.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return e.Msg }

// IsAvailable reports whether t satisfies every clause present in rule.
// Clauses are checked left to right as period, then date, then time, with
// short-circuit AND: once a clause has failed to match, later clauses are
// not parsed at all, so a malformed date or time clause after a failed
// period clause does not surface a ParseError. Callers relying on strict
// validation should check each clause on a matching instant.
func IsAvailable(t time.Time, rule string) (bool, error) {
	if !MatchesPeriod(t, rule) {
		return false, nil
	}
	if ok, err := MatchesDateRange(t, rule); err != nil || !ok {
		return false, err
	}
	return MatchesTimeRange(t, rule)
}

// MatchesPeriod reports whether t falls in the recurrence period given by an
// "every <token>" clause. Recognized tokens are the three-letter weekday
// abbreviations plus "day", "weekday" and "weekend". No clause means no
// constraint. An unrecognized token never errors: it falls through to the
// weekday comparison and fails to match.
func MatchesPeriod(t time.Time, rule string) bool {
	m := periodRegex.FindStringSubmatch(rule)
	if m == nil {
		return true
	}
	switch period := strings.ToLower(m[1]); period {
	case "day":
		return true
	case "weekend":
		return isWeekend(t)
	case "weekday":
		return !isWeekend(t)
	default:
		return period == weekdayAbbrev(t)
	}
}

// MatchesDateRange reports whether t falls in the inclusive date range given
// by a "date: <start>[-<end>]" clause. No clause means no constraint. The end
// date is compared at day granularity while the start date is compared as a
// midnight instant; with no end date the clause matches only t's own
// calendar day. A clause whose captured values are not a real date returns a
// ParseError.
func MatchesDateRange(t time.Time, rule string) (bool, error) {
	m := dateRegex.FindStringSubmatch(rule)
	if m == nil {
		return true, nil
	}

	available := true
	hasEnd := m[2] != ""
	if hasEnd {
		end, err := parseDate(m[2], t.Location())
		if err != nil {
			return false, &ParseError{Msg: fmt.Sprintf("invalid end date %q in date range", m[2])}
		}
		available = available && !end.Before(dateOf(t))
	}
	start, err := parseDate(m[1], t.Location())
	if err != nil {
		return false, &ParseError{Msg: fmt.Sprintf("invalid start date %q in date range", m[1])}
	}
	available = available && !start.After(t)
	if !hasEnd {
		available = available && start.Equal(dateOf(t))
	}
	return available, nil
}

// MatchesTimeRange reports whether t falls in the inclusive time-of-day
// range given by a "time: <start>[-<end>]" clause. No clause means no
// constraint. Both times are pinned to t's calendar day before comparing, so
// the comparison is at full precision; with no end time the clause matches
// only the exact start instant. An unparsable time, including a 12-hour
// clock hour above 12, returns a ParseError.
func MatchesTimeRange(t time.Time, rule string) (bool, error) {
	m := timeRegex.FindStringSubmatch(rule)
	if m == nil {
		return true, nil
	}

	available := true
	hasEnd := m[2] != ""
	if hasEnd {
		end, err := parseClock(m[2], t)
		if err != nil {
			return false, &ParseError{Msg: fmt.Sprintf("invalid end time %q in time range", m[2])}
		}
		available = available && !end.Before(t)
	}
	start, err := parseClock(m[1], t)
	if err != nil {
		return false, &ParseError{Msg: fmt.Sprintf("invalid start time %q in time range", m[1])}
	}
	if !hasEnd {
		available = available && start.Equal(t)
	}
	available = available && !start.After(t)
	return available, nil
}

func isWeekend(t time.Time) bool {
	day := t.Weekday()
	return day == time.Saturday || day == time.Sunday
}

// weekdayAbbrev returns the lowercased three-letter abbreviation of t's
// weekday, e.g. "fri".
func weekdayAbbrev(t time.Time) string {
	return strings.ToLower(t.Weekday().String()[:3])
}

// dateOf truncates t to midnight on its own calendar day.
func dateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// parseDate parses a day/month/year date as a midnight instant in loc. The
// year must be written with four digits. The components are validated as a
// real calendar date: time.Date normalizes out-of-range values, so the
// result must round-trip back to the same day, month and year.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("date %q: want day/month/year", s)
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, err
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, err
	}
	if len(parts[2]) != 4 {
		return time.Time{}, fmt.Errorf("date %q: year must have four digits", s)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, err
	}
	if year < 1 {
		return time.Time{}, fmt.Errorf("date %q: year out of range", s)
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, fmt.Errorf("date %q: no such calendar date", s)
	}
	return d, nil
}

// parseClock parses an "h:mm AM|PM" time of day and pins it to t's calendar
// day in t's location. time.Parse rejects hours above 12 on the 12-hour
// clock, so "15:00 PM" is an error rather than wrapping; hour 0 is rejected
// explicitly since the 12-hour clock writes midnight as 12.
func parseClock(s string, t time.Time) (time.Time, error) {
	if hh, _, ok := strings.Cut(s, ":"); ok {
		if v, err := strconv.Atoi(hh); err == nil && v == 0 {
			return time.Time{}, fmt.Errorf("time %q: hour out of range on the 12-hour clock", s)
		}
	}
	tod, err := time.Parse("3:4 PM", s)
	if err != nil {
		return time.Time{}, err
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, tod.Hour(), tod.Minute(), 0, 0, t.Location()), nil
}
