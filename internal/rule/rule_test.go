package rule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fridayAt returns Friday 2014-01-10 at the given clock time in UTC.
func fridayAt(hour, min int) time.Time {
	return time.Date(2014, time.January, 10, hour, min, 0, 0, time.UTC)
}

func TestIsAvailable(t *testing.T) {
	friday3pm := fridayAt(15, 0)

	tests := []struct {
		name    string
		rule    string
		want    bool
		wantErr bool
	}{
		{"period only", "every fri", true, false},
		{"period and time", "every fri time: 8:00 AM-5:00 PM", true, false},
		{"period date and time", "every fri date: 10/1/2014 time: 8:00 AM-5:00 PM", true, false},
		{"date range and time", "date: 1/1/2014-15/1/2014 time: 8:00 AM-5:00 PM", true, false},
		{"wrong period", "every weekend", false, false},
		{"time range over", "every day time: 8:00 AM-1:00 PM", false, false},
		{"invalid hour", "every day time: 8:00 AM-15:00 PM", false, true},
		{"no clauses", "whenever it suits", true, false},
		{"empty rule", "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsAvailable(friday3pm, tt.rule)
			if tt.wantErr {
				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// A clause that fails to match suppresses parse errors in clauses to its
// right: evaluation is a left-to-right short-circuit AND.
func TestIsAvailableShortCircuit(t *testing.T) {
	friday3pm := fridayAt(15, 0)

	// Friday is not a weekend, so the malformed time clause is never parsed.
	got, err := IsAvailable(friday3pm, "every weekend time: 8:00 AM-15:00 PM")
	require.NoError(t, err)
	assert.False(t, got)

	// The date clause fails first, so the malformed time clause is skipped.
	got, err = IsAvailable(friday3pm, "date: 1/1/2013 time: 8:00 AM-15:00 PM")
	require.NoError(t, err)
	assert.False(t, got)

	// With a matching period, the malformed date clause does surface.
	_, err = IsAvailable(friday3pm, "every fri date: 32/1/2014")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestMatchesPeriod(t *testing.T) {
	friday := fridayAt(15, 0)
	saturday := friday.AddDate(0, 0, 1)
	sunday := friday.AddDate(0, 0, 2)

	tests := []struct {
		name string
		t    time.Time
		rule string
		want bool
	}{
		{"no clause", friday, "date: 10/1/2014", true},
		{"every day", friday, "every day", true},
		{"every day on weekend", sunday, "every day", true},
		{"matching weekday", friday, "every fri", true},
		{"non-matching weekday", friday, "every mon", false},
		{"weekend on friday", friday, "every weekend", false},
		{"weekend on saturday", saturday, "every weekend", true},
		{"weekend on sunday", sunday, "every weekend", true},
		{"weekday on friday", friday, "every weekday", true},
		{"weekday on saturday", saturday, "every weekday", false},
		// "monday" is scannable but is not a recognized token, so it
		// degrades to a non-match rather than an error.
		{"unrecognized token", friday, "every monday", false},
		// An uppercase token is not scannable at all: the clause is
		// treated as absent.
		{"uppercase token not scanned", friday, "every MON", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesPeriod(tt.t, tt.rule))
		})
	}
}

func TestMatchesDateRange(t *testing.T) {
	friday3pm := fridayAt(15, 0)

	tests := []struct {
		name    string
		rule    string
		want    bool
		wantErr bool
	}{
		{"no clause", "every fri", true, false},
		{"single day match", "date: 10/1/2014", true, false},
		{"single day mismatch", "date: 11/1/2014", false, false},
		{"inside range", "date: 1/1/2014-15/1/2014", true, false},
		{"range start boundary", "date: 10/1/2014-15/1/2014", true, false},
		{"range end boundary", "date: 1/1/2014-10/1/2014", true, false},
		{"before range", "date: 11/1/2014-15/1/2014", false, false},
		{"after range", "date: 1/1/2014-9/1/2014", false, false},
		{"single digit fields", "date: 3/1/2014-20/1/2014", true, false},
		{"bad day", "date: 32/1/2014", false, true},
		{"two digit year", "date: 10/1/14", false, true},
		{"two digit year in range start", "date: 1/1/14-15/1/2014", false, true},
		{"bad month", "date: 1/13/2014", false, true},
		{"bad end date", "date: 1/1/2014-30/2/2014", false, true},
		{"not a leap day", "date: 29/2/2014", false, true},
		{"no date prefix", "on 10/1/2014", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MatchesDateRange(friday3pm, tt.rule)
			if tt.wantErr {
				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesDateRangeFullPrecisionStart(t *testing.T) {
	// The start date is compared as a midnight instant, so any time of day
	// on the start day itself is inside the range.
	got, err := MatchesDateRange(fridayAt(0, 0), "date: 10/1/2014-15/1/2014")
	require.NoError(t, err)
	assert.True(t, got)
}

func TestMatchesTimeRange(t *testing.T) {
	friday3pm := fridayAt(15, 0)

	tests := []struct {
		name    string
		t       time.Time
		rule    string
		want    bool
		wantErr bool
	}{
		{"no clause", friday3pm, "every fri", true, false},
		{"inside range", friday3pm, "time: 8:00 AM-5:00 PM", true, false},
		{"start boundary", friday3pm, "time: 3:00 PM-5:00 PM", true, false},
		{"end boundary", friday3pm, "time: 8:00 AM-3:00 PM", true, false},
		{"before range", friday3pm, "time: 4:00 PM-6:00 PM", false, false},
		{"after range", friday3pm, "time: 8:00 AM-1:00 PM", false, false},
		{"exact start only", friday3pm, "time: 3:00 PM", true, false},
		{"start only mismatch", friday3pm, "time: 3:01 PM", false, false},
		{"start only earlier", friday3pm, "time: 2:00 PM", false, false},
		{"noon", fridayAt(12, 0), "time: 12:00 PM", true, false},
		{"midnight", fridayAt(0, 0), "time: 12:00 AM", true, false},
		{"single digit minute", fridayAt(8, 5), "time: 8:5 AM", true, false},
		{"hour beyond 12-hour clock", friday3pm, "time: 8:00 AM-15:00 PM", false, true},
		{"bad start hour", friday3pm, "time: 13:00 PM-5:00 PM", false, true},
		{"hour zero", fridayAt(0, 30), "time: 0:30 AM", false, true},
		{"hour zero in range", friday3pm, "time: 0:30 AM-5:00 PM", false, true},
		{"stray pipe meridiem", fridayAt(8, 0), "time: 8:00 |M", false, true},
		{"bad minute", friday3pm, "time: 8:61 AM-5:00 PM", false, true},
		{"no time prefix", friday3pm, "at 3:00 PM", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MatchesTimeRange(tt.t, tt.rule)
			if tt.wantErr {
				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesTimeRangeSecondsPrecision(t *testing.T) {
	// Time comparison is at full precision: an instant with seconds is past
	// the parsed minute and cannot exact-match a start-only clause.
	withSeconds := time.Date(2014, time.January, 10, 15, 0, 30, 0, time.UTC)

	got, err := MatchesTimeRange(withSeconds, "time: 3:00 PM")
	require.NoError(t, err)
	assert.False(t, got)

	got, err = MatchesTimeRange(withSeconds, "time: 3:00 PM-5:00 PM")
	require.NoError(t, err)
	assert.True(t, got)
}
