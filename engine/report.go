/*
report.go - Period filtering and summary aggregation

PURPOSE:
  Given the enriched table and an optional "YYYY MM" reporting period,
  selects the rows active in that period and computes the monthly summary:
  tickets worked on, created, completed, and SLA attainment counts with
  percentages.

PERIOD MATCHING:
  A row is active in a period when creation period <= period <= rollover
  period. The tokens are fixed-width zero-padded, so plain string
  comparison orders them correctly; the "2000 01" and "9999 12" sentinels
  fall out of every real month's range on the correct side.
*/
package engine

import (
	"math"
	"strconv"
	"strings"
)

// Summary is the aggregate view of a (possibly filtered) enriched table.
type Summary struct {
	Period           string  `json:"period,omitempty"`
	TicketsWorkedOn  int     `json:"tickets_worked_on"`
	TicketsCreated   int     `json:"tickets_created"`
	TicketsCompleted int     `json:"tickets_completed"`
	ResolutionMet    int     `json:"resolution_sla_met"`
	ResolutionPct    float64 `json:"resolution_sla_pct"`
	ResponseMet      int     `json:"response_sla_met"`
	ResponsePct      float64 `json:"response_sla_pct"`
}

// reportColumns are the derived positions the aggregator reads. Any may
// be absent; missing cells read as blank/zero.
type reportColumns struct {
	respSLA  int
	reqComp  int
	reqCrYM  int
	rollover int
	resolRem int
	respRem  int
}

// FilterAndSummarize selects the rows active in the given period and
// aggregates them. An empty period keeps every row and counts
// unconditionally.
func FilterAndSummarize(t Table, period string) (Table, Summary) {
	cols := reportColumns{
		respSLA:  indexOf(t.Headers, ColRespSLA),
		reqComp:  indexOf(t.Headers, ColReqComp),
		reqCrYM:  indexOf(t.Headers, ColReqCrYM),
		rollover: indexOf(t.Headers, ColRollover),
		resolRem: indexOf(t.Headers, ColResolRem),
		respRem:  indexOf(t.Headers, ColRespRem),
	}

	period = strings.TrimSpace(period)
	summary := Summary{Period: period}

	var rows [][]string
	for _, row := range t.Rows {
		created := cellAt(row, cols.reqCrYM)
		rollover := cellAt(row, cols.rollover)
		inPeriod := period == "" || (created <= period && period <= rollover)
		if inPeriod {
			rows = append(rows, row)
		}

		responseRow := cellAt(row, cols.respSLA) == tokenYes
		completedRow := cellAt(row, cols.reqComp) == tokenEnd

		if inPeriod {
			summary.TicketsWorkedOn++
		}
		if responseRow && (period == "" || created == period) {
			summary.TicketsCreated++
			if coerceFloat(cellAt(row, cols.respRem)) >= 0 {
				summary.ResponseMet++
			}
		}
		if completedRow && (period == "" || rollover == period) {
			summary.TicketsCompleted++
			if coerceFloat(cellAt(row, cols.resolRem)) >= 0 {
				summary.ResolutionMet++
			}
		}
	}

	summary.ResolutionPct = percentage(summary.ResolutionMet, summary.TicketsCompleted)
	summary.ResponsePct = percentage(summary.ResponseMet, summary.TicketsCreated)

	return Table{Headers: t.Headers, Rows: rows}, summary
}

// percentage renders count/denominator as a 1-decimal percentage, 0 when
// the denominator is 0.
func percentage(count, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(denominator)*1000) / 10
}

// coerceFloat reads a numeric cell, treating blanks and malformed values
// as zero.
func coerceFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
