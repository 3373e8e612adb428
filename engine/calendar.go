/*
calendar.go - Working-day arithmetic against a holiday set

PURPOSE:
  Determines whether a calendar date counts as a working day (not a
  weekend, not a configured holiday) and counts working days over a date
  range. These two primitives anchor the business-hours calculator.

HOLIDAY SET:
  Holidays are plain calendar dates keyed by ISO "YYYY-MM-DD" text, the
  interchange form used by the holiday configuration store. The set is
  read-only during a pipeline run.

WORKING WINDOW:
  Every working day shares one daily window (start/end time-of-day). The
  window's span expressed in fractional hours is the daily capacity.
  Arithmetic uses decimal.Decimal so that the 2-decimal fixed outputs of
  the pipeline stay exact.
*/
package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOLIDAY SET
// =============================================================================

const isoDateLayout = "2006-01-02"

// HolidaySet is a set of calendar dates (no time component).
type HolidaySet struct {
	days map[string]struct{}
}

// NewHolidaySet builds a set from ISO "YYYY-MM-DD" strings. Entries that
// do not parse are ignored.
func NewHolidaySet(isoDates ...string) HolidaySet {
	days := make(map[string]struct{}, len(isoDates))
	for _, d := range isoDates {
		if _, err := time.Parse(isoDateLayout, d); err != nil {
			continue
		}
		days[d] = struct{}{}
	}
	return HolidaySet{days: days}
}

// HolidaysForYears assembles the active set for a dataset from a per-year
// holiday table, covering exactly the years the dataset references.
// Years missing from the table contribute nothing.
func HolidaysForYears(byYear map[string][]string, years []string) HolidaySet {
	var all []string
	seen := make(map[string]bool)
	for _, y := range years {
		if seen[y] {
			continue
		}
		seen[y] = true
		all = append(all, byYear[y]...)
	}
	return NewHolidaySet(all...)
}

// Contains reports whether the instant's calendar date is a holiday.
func (h HolidaySet) Contains(t time.Time) bool {
	_, ok := h.days[t.Format(isoDateLayout)]
	return ok
}

// ContainsISO reports whether an ISO date string is in the set.
func (h HolidaySet) ContainsISO(iso string) bool {
	_, ok := h.days[iso]
	return ok
}

// Len returns the number of holidays in the set.
func (h HolidaySet) Len() int { return len(h.days) }

// Dates returns the holidays as sorted ISO strings.
func (h HolidaySet) Dates() []string {
	out := make([]string, 0, len(h.days))
	for d := range h.days {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// WORKING DAYS
// =============================================================================

// IsWorkingDay reports whether the date is neither a weekend day nor a
// holiday.
func IsWorkingDay(t time.Time, holidays HolidaySet) bool {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !holidays.Contains(t)
}

// CountWorkingDays returns the inclusive count of working days between
// start and end, both truncated to their calendar day. A zero start or
// end, or end before start, counts 0. Equal start and end on a working
// day count 1.
func CountWorkingDays(start, end time.Time, holidays HolidaySet) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	current := truncateDay(start)
	last := truncateDay(end)
	days := 0
	for !current.After(last) {
		if IsWorkingDay(current, holidays) {
			days++
		}
		current = current.AddDate(0, 0, 1)
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// =============================================================================
// WORKING WINDOW
// =============================================================================

// DayTime is a time of day within a working window.
type DayTime struct {
	Hour   int
	Minute int
	Second int
}

// ParseDayTime reads an "HH:MM:SS" or "HH:MM" time of day.
func ParseDayTime(s string) (DayTime, error) {
	if strings.Count(s, ":") == 1 {
		s += ":00"
	}
	hour, minute, second, ok := parseClock(s)
	if !ok {
		return DayTime{}, fmt.Errorf("invalid time of day %q", s)
	}
	return DayTime{Hour: hour, Minute: minute, Second: second}, nil
}

// Hours returns the time of day as fractional hours since midnight.
func (d DayTime) Hours() decimal.Decimal {
	seconds := int64(d.Hour)*3600 + int64(d.Minute)*60 + int64(d.Second)
	return decimal.NewFromInt(seconds).Div(decimal.NewFromInt(3600))
}

// String renders the time of day as "HH:MM:SS".
func (d DayTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", d.Hour, d.Minute, d.Second)
}

// WorkWindow is the daily working window shared by all working days.
type WorkWindow struct {
	Start DayTime
	End   DayTime
}

// DefaultWorkWindow is the stock 14:00-23:00 window of the source system.
func DefaultWorkWindow() WorkWindow {
	return WorkWindow{
		Start: DayTime{Hour: 14},
		End:   DayTime{Hour: 23},
	}
}

// DailyHours returns the window span in fractional hours.
func (w WorkWindow) DailyHours() decimal.Decimal {
	return w.End.Hours().Sub(w.Start.Hours())
}
