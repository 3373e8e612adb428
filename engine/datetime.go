/*
datetime.go - Normalization of the export's heterogeneous date/time shapes

PURPOSE:
  Ticket exports mix three date representations: spreadsheet serial numbers,
  day/month/year strings, and bare digit-run time-of-day strings. This file
  parses all of them into time.Time instants and renders the two canonical
  textual forms used by the pipeline:

    day/month/year        raw date columns ("04/01/2024")
    MM/DD/YYYY HH:MM:SS   concatenated stamps written into derived columns

  The two orders must never be mixed: ParseDate reads day-first,
  ParseStamp reads month-first.

ERROR MODEL:
  Parse functions return (value, ok) and never fail the run. Callers apply
  the documented blank/zero default when ok is false, which keeps a single
  malformed historical record from blocking the rest of the batch.
*/
package engine

import (
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial epoch. Serial 1 is 1900-01-01, and the conversion
// subtracts two days to absorb the 1900 leap-year defect plus the
// one-based origin.
var serialEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

const serialCorrectionDays = 2

// Serial day offset of the Unix epoch, used when rendering a serial
// directly as day/month/year text.
const serialUnixEpochDays = 25569

// =============================================================================
// DATE PARSING
// =============================================================================

// ParseDate interprets a raw date cell: a numeric spreadsheet serial or a
// day/month/year string (a trailing time part after a space is ignored).
// Returns ok=false on anything unparseable; it never panics.
func ParseDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}

	if strings.Contains(s, "/") {
		datePart := strings.SplitN(s, " ", 2)[0]
		return parseDayMonthYear(datePart)
	}

	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial <= 0 {
		return time.Time{}, false
	}
	return SerialToDate(serial), true
}

// SerialToDate converts a spreadsheet serial number to a UTC calendar date.
func SerialToDate(serial float64) time.Time {
	days := int(serial) - serialCorrectionDays
	return serialEpoch.AddDate(0, 0, days)
}

func parseDayMonthYear(s string) (time.Time, bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	day, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	month, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	return civilDate(year, month, day)
}

// civilDate builds a UTC midnight instant, rejecting components that do
// not round-trip (e.g. 31/02/2024).
func civilDate(year, month, day int) (time.Time, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ToDayMonthYear normalizes a raw date cell into day/month/year text.
// Cells that already contain a slash pass through unchanged; numeric
// serials are converted; anything else collapses to "".
func ToDayMonthYear(cell string) string {
	if strings.Contains(cell, "/") {
		return cell
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return ""
	}
	t := time.Unix(int64((serial-serialUnixEpochDays)*86400), 0).UTC()
	return t.Format("02/01/2006")
}

// =============================================================================
// TIME PARSING
// =============================================================================

// FormatTime normalizes a raw time cell to "HH:MM:SS". The cell may be a
// bare digit run ("141507"), punctuated ("14:15:07"), or short ("930" is
// read as 00:09:30). Empty or non-digit input yields "00:00:00".
func FormatTime(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if len(s) < 6 {
		s = strings.Repeat("0", 6-len(s)) + s
	}
	return s[0:2] + ":" + s[2:4] + ":" + s[4:6]
}

// parseClock splits an "HH:MM:SS" string into components, rejecting
// out-of-range values.
func parseClock(s string) (hour, minute, second int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	second, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}
	if hour > 23 || minute > 59 || second > 59 || hour < 0 || minute < 0 || second < 0 {
		return 0, 0, 0, false
	}
	return hour, minute, second, true
}

// =============================================================================
// COMBINE AND STAMPS
// =============================================================================

// Combine merges a raw date cell and a raw time cell into one instant.
// Fails when the date is unparseable or the normalized time is out of
// range (a 6-digit run like "990000" is not a clock time).
func Combine(dateCell, timeCell string) (time.Time, bool) {
	date, ok := ParseDate(dateCell)
	if !ok {
		return time.Time{}, false
	}
	hour, minute, second, ok := parseClock(FormatTime(timeCell))
	if !ok {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, second, 0, time.UTC), true
}

const stampLayout = "01/02/2006 15:04:05"

// FormatStamp renders an instant in the month-first stamp form used by the
// derived concatenation columns.
func FormatStamp(t time.Time) string {
	return t.Format(stampLayout)
}

// ParseStamp reads a month-first "MM/DD/YYYY HH:MM:SS" stamp.
func ParseStamp(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(stampLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ToISODate converts a strict "DD/MM/YYYY" cell to "YYYY-MM-DD" for
// holiday-set lookups. Loose input (wrong component widths) yields "".
func ToISODate(cell string) string {
	parts := strings.Split(cell, "/")
	if len(parts) != 3 {
		return ""
	}
	if len(parts[0]) != 2 || len(parts[1]) != 2 || len(parts[2]) != 4 {
		return ""
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}
