/*
hours.go - Elapsed business hours between two instants

PURPOSE:
  The heart of the SLA calculation: how many working hours elapsed between
  two instants, counting only the daily working window on working days.

ALGORITHM:
  1. Reversed or invalid ranges yield 0.
  2. A start on a non-working day advances day by day to the next working
     day and its time of day resets to the window start: the clock only
     begins ticking on a working day.
  3. The inclusive working-day count over [adjustedStart, end] splits the
     interval: one shared day contributes the clamped end fraction minus
     the clamped start fraction; every further working day contributes the
     full daily capacity.
  4. An endpoint on a non-working day contributes its time as the window
     end (nothing further); otherwise its time of day clamps into the
     window.
  5. Results round to 2 decimals; non-positive results collapse to 0.
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// BusinessHours computes the elapsed working hours between start and end
// against the daily window and holiday set, as a 2-decimal value.
func BusinessHours(start, end time.Time, window WorkWindow, holidays HolidaySet) decimal.Decimal {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return decimal.Zero
	}

	adjusted := advanceToWorkingDay(start, window, holidays)

	networkDays := CountWorkingDays(adjusted, end, holidays)
	if networkDays == 0 {
		return decimal.Zero
	}

	startFraction := clampedFraction(adjusted, window, holidays)
	endFraction := clampedFraction(end, window, holidays)

	var result decimal.Decimal
	if networkDays == 1 {
		if IsWorkingDay(adjusted, holidays) && IsWorkingDay(end, holidays) {
			result = endFraction.Sub(startFraction)
		}
	} else {
		fullDays := decimal.NewFromInt(int64(networkDays - 1)).Mul(window.DailyHours())
		result = fullDays.Add(endFraction.Sub(startFraction))
	}

	if !result.IsPositive() {
		return decimal.Zero
	}
	return result.Round(2)
}

// advanceToWorkingDay pushes a start instant on a weekend or holiday
// forward to the next working day at the window start. A start already on
// a working day is returned untouched, time of day included.
func advanceToWorkingDay(start time.Time, window WorkWindow, holidays HolidaySet) time.Time {
	if IsWorkingDay(start, holidays) {
		return start
	}
	day := truncateDay(start)
	for !IsWorkingDay(day, holidays) {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		window.Start.Hour, window.Start.Minute, window.Start.Second, 0, day.Location())
}

// clampedFraction returns the endpoint's time of day as fractional hours
// clamped into the window, or the window end when the endpoint's day is
// not a working day (such a day contributes nothing further).
func clampedFraction(t time.Time, window WorkWindow, holidays HolidaySet) decimal.Decimal {
	if !IsWorkingDay(t, holidays) {
		return window.End.Hours()
	}
	at := DayTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}.Hours()
	lo, hi := window.Start.Hours(), window.End.Hours()
	if at.LessThan(lo) {
		return lo
	}
	if at.GreaterThan(hi) {
		return hi
	}
	return at
}
