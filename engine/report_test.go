package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/sla-engine/engine"
)

// summaryRow builds one enriched row with only the columns the
// aggregator reads populated.
func summaryTable(rows ...[]string) engine.Table {
	return engine.Table{
		Headers: []string{
			engine.HeaderRequestID, engine.ColRespSLA, engine.ColReqComp,
			engine.ColReqCrYM, engine.ColRollover,
			engine.ColResolRem, engine.ColRespRem,
		},
		Rows: rows,
	}
}

func TestFilterAndSummarize_PeriodWindow(t *testing.T) {
	// GIVEN: Tickets created across three months, one still open
	table := summaryTable(
		// Created and closed in April: out of a May report entirely
		[]string{"A1", "Yes", "End", "2024 04", "2024 04", "5.00", "1.00"},
		// Created in April, closed in May: worked on in May, completed in May
		[]string{"A2", "Yes", " ", "2024 04", "2000 01", "0", "2.00"},
		[]string{"A2", " ", "End", "2024 04", "2024 05", "3.00", "2.00"},
		// Created in May, still open: rolls into the current (June) month
		[]string{"A3", "Yes", " ", "2024 05", "2024 06", "80.00", "10.00"},
		// Created in May, breached both clocks, closed in May
		[]string{"A4", "Yes", "End", "2024 05", "2024 05", "-4.00", "-1.00"},
	)

	filtered, summary := engine.FilterAndSummarize(table, "2024 05")

	// THEN: Only rows whose activity window spans May survive; the
	// mid-ticket row still carrying the active sentinel does not
	assert.Len(t, filtered.Rows, 3)
	assert.Equal(t, "2024 05", summary.Period)
	assert.Equal(t, 3, summary.TicketsWorkedOn)

	// Created in May: A3 and A4; only A3 met response
	assert.Equal(t, 2, summary.TicketsCreated)
	assert.Equal(t, 1, summary.ResponseMet)
	assert.Equal(t, 50.0, summary.ResponsePct)

	// Completed in May: A2 and A4; only A2 met resolution
	assert.Equal(t, 2, summary.TicketsCompleted)
	assert.Equal(t, 1, summary.ResolutionMet)
	assert.Equal(t, 50.0, summary.ResolutionPct)
}

func TestFilterAndSummarize_EmptyPeriodKeepsEverything(t *testing.T) {
	table := summaryTable(
		[]string{"A1", "Yes", "End", "2024 04", "2024 04", "5.00", "1.00"},
		[]string{"A2", "Yes", " ", "2024 05", "2024 06", "80.00", "-1.00"},
	)

	filtered, summary := engine.FilterAndSummarize(table, "")

	assert.Len(t, filtered.Rows, 2)
	assert.Equal(t, 2, summary.TicketsWorkedOn)
	assert.Equal(t, 2, summary.TicketsCreated)
	assert.Equal(t, 1, summary.TicketsCompleted)
	assert.Equal(t, 1, summary.ResponseMet)
	assert.Equal(t, 1, summary.ResolutionMet)
	assert.Equal(t, 50.0, summary.ResponsePct)
	assert.Equal(t, 100.0, summary.ResolutionPct)
}

func TestFilterAndSummarize_ZeroDenominators(t *testing.T) {
	_, summary := engine.FilterAndSummarize(summaryTable(), "2024 05")

	assert.Zero(t, summary.TicketsCreated)
	assert.Zero(t, summary.TicketsCompleted)
	assert.Equal(t, 0.0, summary.ResponsePct)
	assert.Equal(t, 0.0, summary.ResolutionPct)
}

func TestFilterAndSummarize_SentinelsStayOutOfRealMonths(t *testing.T) {
	// A still-active row carries the "2000 01" rollover: its window is
	// empty, so no real month selects it
	table := summaryTable(
		[]string{"A1", "Yes", " ", "2024 04", "2000 01", "0", "2.00"},
		// A blank rollover pushes creation to "9999 12": never selected
		[]string{"A2", " ", " ", "9999 12", " ", "0", "0.00"},
	)

	filtered, summary := engine.FilterAndSummarize(table, "2024 04")

	assert.Empty(t, filtered.Rows)
	assert.Zero(t, summary.TicketsWorkedOn)
	assert.Zero(t, summary.TicketsCreated)
}

func TestFilterAndSummarize_ExactBoundaryMonthsIncluded(t *testing.T) {
	table := summaryTable(
		[]string{"A1", "Yes", "End", "2024 03", "2024 05", "1.00", "1.00"},
	)

	at03, _ := engine.FilterAndSummarize(table, "2024 03")
	at04, _ := engine.FilterAndSummarize(table, "2024 04")
	at05, _ := engine.FilterAndSummarize(table, "2024 05")
	at06, _ := engine.FilterAndSummarize(table, "2024 06")

	assert.Len(t, at03.Rows, 1)
	assert.Len(t, at04.Rows, 1)
	assert.Len(t, at05.Rows, 1)
	assert.Empty(t, at06.Rows)
}

func TestFilterAndSummarize_ZeroRemainderCountsAsMet(t *testing.T) {
	table := summaryTable(
		[]string{"A1", "Yes", "End", "2024 05", "2024 05", "0.00", "0.00"},
	)

	_, summary := engine.FilterAndSummarize(table, "2024 05")

	assert.Equal(t, 1, summary.ResponseMet)
	assert.Equal(t, 1, summary.ResolutionMet)
}
