package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sla-engine/engine"
)

// =============================================================================
// DATE PARSING
// =============================================================================

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"DayMonthYear", "15/05/2024", day(2024, time.May, 15), true},
		{"TrailingTimeIgnored", "15/05/2024 10:30:00", day(2024, time.May, 15), true},
		{"SpreadsheetSerial", "45292", day(2024, time.January, 1), true},
		{"SerialWithFraction", "45292.75", day(2024, time.January, 1), true},
		{"ImpossibleDay", "31/02/2024", time.Time{}, false},
		{"ImpossibleMonth", "15/13/2024", time.Time{}, false},
		{"Empty", "", time.Time{}, false},
		{"Whitespace", "   ", time.Time{}, false},
		{"Garbage", "yesterday", time.Time{}, false},
		{"NegativeSerial", "-5", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := engine.ParseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
			}
		})
	}
}

func TestToDayMonthYear(t *testing.T) {
	// Cells already in slash form pass through; serials convert; junk blanks.
	assert.Equal(t, "15/05/2024", engine.ToDayMonthYear("15/05/2024"))
	assert.Equal(t, "01/01/2024", engine.ToDayMonthYear("45292"))
	assert.Equal(t, "07/05/2024", engine.ToDayMonthYear("45419"))
	assert.Equal(t, "", engine.ToDayMonthYear("soon"))
}

// =============================================================================
// TIME NORMALIZATION
// =============================================================================

func TestFormatTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"DigitRun", "141507", "14:15:07"},
		{"Punctuated", "14:15:07", "14:15:07"},
		{"Short", "930", "00:09:30"},
		{"Empty", "", "00:00:00"},
		{"NoDigits", "noon", "00:00:00"},
		{"Overlong", "14150799", "14:15:07"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.FormatTime(tt.input))
		})
	}
}

// =============================================================================
// COMBINE AND STAMPS
// =============================================================================

func TestCombine(t *testing.T) {
	t.Run("DateAndTime", func(t *testing.T) {
		got, ok := engine.Combine("15/05/2024", "141507")
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, time.May, 15, 14, 15, 7, 0, time.UTC), got)
	})

	t.Run("MissingTimeReadsMidnight", func(t *testing.T) {
		got, ok := engine.Combine("15/05/2024", "")
		require.True(t, ok)
		assert.Equal(t, day(2024, time.May, 15), got)
	})

	t.Run("BadDateFails", func(t *testing.T) {
		_, ok := engine.Combine("not a date", "141507")
		assert.False(t, ok)
	})

	t.Run("OutOfRangeTimeFails", func(t *testing.T) {
		_, ok := engine.Combine("15/05/2024", "990000")
		assert.False(t, ok)
	})
}

func TestStampRoundTrip(t *testing.T) {
	at := time.Date(2024, time.May, 15, 14, 15, 7, 0, time.UTC)
	stamp := engine.FormatStamp(at)
	assert.Equal(t, "05/15/2024 14:15:07", stamp)

	back, ok := engine.ParseStamp(stamp)
	require.True(t, ok)
	assert.True(t, at.Equal(back))

	_, ok = engine.ParseStamp(" ")
	assert.False(t, ok)
}

func TestToISODate(t *testing.T) {
	assert.Equal(t, "2024-05-15", engine.ToISODate("15/05/2024"))
	assert.Equal(t, "", engine.ToISODate("5/5/2024"), "loose widths rejected")
	assert.Equal(t, "", engine.ToISODate("2024-05-15"))
	assert.Equal(t, "", engine.ToISODate(""))
}
