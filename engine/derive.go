/*
derive.go - The SLA field derivation pipeline

PURPOSE:
  The stateful pass that turns grouped, chronologically ordered status-
  change rows into enriched rows carrying the SLA columns. Two passes per
  run:

  Pass 1 (independent per row): applicability flags, normalized creation
  and change stamps, priority budgets.

  Pass 2 (fold): elapsed working hours since creation and since the
  previous event, attributed elapsed time, cumulative consumption,
  remaining allowances, completion flag, rollover and creation period
  tags. State from the immediately preceding row is threaded through an
  explicit accumulator, never a shared mutable outer variable.

TOKEN POLICIES:
  The derived cells use the legacy export's textual tokens ("Yes"/" ",
  "End"/"Open"/" ", "2000 01", "9999 12") so downstream spreadsheet
  consumers keep working. Elapsed values are 2-decimal fixed strings.

DETERMINISM:
  Identical input plus holiday set plus a fixed Clock yields bit-identical
  output. Only two branches read the clock: the rollover month of a
  still-open non-terminal ticket, and the end instant when a change stamp
  is missing.

SEE ALSO:
  - hours.go: The business-hours calculator invoked twice per row
  - report.go: Period filtering over the enriched table
*/
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DERIVED COLUMNS
// =============================================================================

// Derived column headers, as the legacy export spells them (including the
// historical "Cumilative" spelling, which downstream sheets key on).
const (
	ColResolSLA      = "ResolSLA"
	ColRespSLA       = "RespSLA"
	ColReqComp       = "ReqComp"
	ColReqCrDtConc   = "ReqCrDtConc"
	ColEnDtConc      = "EnDtConc"
	ColHisChDtTiConc = "HisChDtTiConc"
	ColElapsedTime   = "ElapsedTime"
	ColCalcPreDt     = "CalcPreDt"
	ColRefinedPreDt  = "RefinedPreDt"
	ColCalcStDt      = "CalcStDt"
	ColRefinedStDt   = "RefinedStDt"
	ColCumulative    = "Cumilative"
	ColResolSOW      = "ResolSOW"
	ColRespSOW       = "RespSOW"
	ColResolRem      = "ResolRem"
	ColRespRem       = "RespRem"
	ColRollover      = "Rollover"
	ColReqCrYM       = "ReqCrYM"
	ColDateRollover  = "DateRollover"
	ColDateReqCrYM   = "DateReqCrYM"
)

// DerivedColumns lists every column the pipeline appends, in the order
// they are added when absent.
var DerivedColumns = []string{
	ColResolSLA, ColRespSLA, ColReqComp, ColReqCrDtConc, ColEnDtConc,
	ColHisChDtTiConc, ColElapsedTime, ColCalcPreDt, ColRefinedPreDt,
	ColCalcStDt, ColRefinedStDt, ColCumulative, ColResolSOW, ColRespSOW,
	ColResolRem, ColRespRem, ColRollover, ColReqCrYM, ColDateRollover,
	ColDateReqCrYM,
}

// Token values shared by several derived columns.
const (
	tokenYes   = "Yes"
	tokenBlank = " "
	tokenEnd   = "End"
	tokenOpen  = "Open"

	// An open ticket's rows (all but the group's last) roll into no month.
	rolloverActive = "2000 01"
	// A blank rollover pushes the creation period past every real month.
	creationNever = "9999 12"
)

// Status sets controlling applicability and completion.
var (
	terminalStatuses = map[string]bool{"Closed": true, "Discarded": true}

	allowedStatusTo = []string{
		"work in progress", "forwarded", "assigned", "solved",
		"suspended", "pending for it check", "awaiting external provider",
	}
	excludedStatusFrom = []string{
		"suspended", "pending for it check", "awaiting external provider",
	}
)

// The request type whose rows never consume SLA time.
const excludedRequestType = "Service Request"

// =============================================================================
// DERIVER
// =============================================================================

// Deriver runs the SLA derivation pipeline over a prepared table.
type Deriver struct {
	Window   WorkWindow
	Holidays HolidaySet
	Budgets  BudgetTable
	Clock    Clock
}

// NewDeriver builds a pipeline with the system clock.
func NewDeriver(window WorkWindow, holidays HolidaySet, budgets BudgetTable) *Deriver {
	return &Deriver{Window: window, Holidays: holidays, Budgets: budgets, Clock: SystemClock}
}

func (d *Deriver) now() time.Time {
	if d.Clock == nil {
		return time.Now()
	}
	return d.Clock.Now()
}

// rowFacts is the per-row outcome of pass 1.
type rowFacts struct {
	requestID            string
	statusTo             string
	statusDescription    string // raw cell, matched verbatim against terminal statuses
	typeDescription      string
	creationDateCell     string
	changeDateCell       string
	resolutionApplicable bool
	responseApplicable   bool
	creationStamp        string // month-first stamp, or the blank token
	changeStamp          string // month-first stamp, or the blank token
	budget               Budget
}

// carry is the fold accumulator threaded through pass 2: the state the
// previous row of the pipeline leaves behind.
type carry struct {
	hasPrev           bool
	requestID         string
	cumulative        decimal.Decimal
	responseRemaining decimal.Decimal
	changeStamp       string
}

// Enrich runs both passes and returns the table extended with the derived
// columns. The input is not mutated; source cells pass through unchanged.
// Re-running Enrich over its own output reproduces the derived values.
func (d *Deriver) Enrich(t Table) Table {
	headers := append([]string(nil), t.Headers...)
	for _, name := range DerivedColumns {
		if indexOf(headers, name) == ColumnNotFound {
			headers = append(headers, name)
		}
	}
	out := make(map[string]int, len(DerivedColumns))
	for _, name := range DerivedColumns {
		out[name] = indexOf(headers, name)
	}

	if t.IsEmpty() {
		return Table{Headers: headers}
	}

	cols := ResolveColumns(headers)

	// Pass 1: independent per-row facts.
	facts := make([]rowFacts, len(t.Rows))
	rows := make([][]string, len(t.Rows))
	for i, src := range t.Rows {
		row := make([]string, len(headers))
		copy(row, src)
		rows[i] = row

		f := rowFacts{
			requestID:         cellAt(row, cols.RequestID),
			statusTo:          strings.TrimSpace(cellAt(row, cols.StatusTo)),
			statusDescription: cellAt(row, cols.StatusDescription),
			typeDescription:   strings.TrimSpace(cellAt(row, cols.TypeDescription)),
			creationDateCell:  cellAt(row, cols.CreationDate),
			changeDateCell:    cellAt(row, cols.ChangeDate),
		}
		statusFrom := strings.TrimSpace(cellAt(row, cols.StatusFrom))

		f.resolutionApplicable = containsFold(allowedStatusTo, f.statusTo) &&
			!containsFold(excludedStatusFrom, statusFrom)
		f.responseApplicable = i == 0 || f.requestID != facts[i-1].requestID
		f.budget = d.Budgets.ForPriority(cellAt(row, cols.PriorityDescription))

		creationTimeCell := cellAt(row, cols.CreationTime)
		changeTimeCell := cellAt(row, cols.ChangeTime)

		f.creationStamp = tokenBlank
		if f.responseApplicable {
			if at, ok := Combine(f.creationDateCell, creationTimeCell); ok {
				f.creationStamp = FormatStamp(at)
			}
		}
		f.changeStamp = tokenBlank
		if at, ok := Combine(f.changeDateCell, changeTimeCell); ok {
			f.changeStamp = FormatStamp(at)
		}

		row[out[ColResolSLA]] = yesOrBlank(f.resolutionApplicable)
		row[out[ColRespSLA]] = yesOrBlank(f.responseApplicable)
		row[out[ColReqCrDtConc]] = f.creationStamp
		row[out[ColEnDtConc]] = FormatTime(changeTimeCell)
		row[out[ColHisChDtTiConc]] = f.changeStamp
		row[out[ColResolSOW]] = f.budget.Resolution.String()
		row[out[ColRespSOW]] = f.budget.Response.String()

		facts[i] = f
	}

	// Pass 2: the fold.
	acc := carry{}
	for i, row := range rows {
		f := facts[i]
		sameAsPrev := acc.hasPrev && acc.requestID == f.requestID
		hasNext := i+1 < len(facts)
		sameAsNext := hasNext && facts[i+1].requestID == f.requestID

		calcStDt := d.elapsedSinceCreation(f)
		refinedStDt := d.refine(calcStDt, f)

		calcPreDt := d.elapsedSincePrevious(f, acc, sameAsPrev)
		refinedPreDt := d.refine(calcPreDt, f)

		completion := tokenBlank
		switch {
		case terminalStatuses[f.statusTo]:
			completion = tokenEnd
		case hasNext && !sameAsNext:
			completion = tokenOpen
		}

		// Attribution: the response-applicable row consumes from creation,
		// every later row consumes from the previous event.
		var elapsed decimal.Decimal
		if f.resolutionApplicable && !f.responseApplicable {
			elapsed = parseAmount(refinedPreDt)
		} else {
			elapsed = parseAmount(refinedStDt)
		}

		cumulative := elapsed
		if sameAsPrev {
			cumulative = acc.cumulative.Add(elapsed)
		}

		resolutionRemaining := "0"
		if !sameAsNext {
			resolutionRemaining = f.budget.Resolution.Sub(cumulative).StringFixed(2)
		}

		responseRemaining := acc.responseRemaining
		if f.responseApplicable {
			responseRemaining = f.budget.Response.Sub(parseAmount(calcStDt))
		}

		rollover := d.rolloverPeriod(f, sameAsNext)
		creationPeriod := creationPeriodToken(f, rollover)

		row[out[ColCalcStDt]] = calcStDt
		row[out[ColRefinedStDt]] = refinedStDt
		row[out[ColCalcPreDt]] = calcPreDt
		row[out[ColRefinedPreDt]] = refinedPreDt
		row[out[ColReqComp]] = completion
		row[out[ColElapsedTime]] = elapsed.StringFixed(2)
		row[out[ColCumulative]] = renderCumulative(cumulative)
		row[out[ColResolRem]] = resolutionRemaining
		row[out[ColRespRem]] = responseRemaining.StringFixed(2)
		row[out[ColRollover]] = rollover
		row[out[ColReqCrYM]] = creationPeriod
		row[out[ColDateRollover]] = rollover
		row[out[ColDateReqCrYM]] = creationPeriod

		acc = carry{
			hasPrev:           true,
			requestID:         f.requestID,
			cumulative:        cumulative,
			responseRemaining: responseRemaining,
			changeStamp:       f.changeStamp,
		}
	}

	return Table{Headers: headers, Rows: rows}
}

// =============================================================================
// PASS 2 PIECES
// =============================================================================

// elapsedSinceCreation computes the working hours from ticket creation to
// this event. Only resolution-applicable rows consume; rows whose
// creation stamp did not parse contribute "0.00".
func (d *Deriver) elapsedSinceCreation(f rowFacts) string {
	if !f.resolutionApplicable {
		return "0"
	}
	start, ok := ParseStamp(f.creationStamp)
	if !ok {
		return "0.00"
	}
	return BusinessHours(start, d.endInstant(f), d.Window, d.Holidays).StringFixed(2)
}

// elapsedSincePrevious computes the working hours from the previous event
// of the same ticket to this one. The response-applicable row has no
// previous event.
func (d *Deriver) elapsedSincePrevious(f rowFacts, acc carry, sameAsPrev bool) string {
	if f.responseApplicable || !sameAsPrev {
		return "0.00"
	}
	start, ok := ParseStamp(acc.changeStamp)
	if !ok {
		return "0.00"
	}
	return BusinessHours(start, d.endInstant(f), d.Window, d.Holidays).StringFixed(2)
}

// endInstant resolves the end of the measured interval: the row's change
// stamp, or the current instant when the stamp is missing.
func (d *Deriver) endInstant(f rowFacts) time.Time {
	if at, ok := ParseStamp(f.changeStamp); ok {
		return at
	}
	return d.now()
}

// refine zeroes an elapsed value when it is negative, when the ticket's
// request type is excluded from SLA accounting, or when the change lands
// on a configured holiday.
func (d *Deriver) refine(elapsed string, f rowFacts) string {
	switch {
	case parseAmount(elapsed).IsNegative():
		return "0"
	case f.typeDescription == excludedRequestType:
		return "0"
	case d.Holidays.ContainsISO(ToISODate(f.changeDateCell)):
		return "0"
	}
	return elapsed
}

// rolloverPeriod tags the monthly report this row rolls into. Rows of a
// still-active ticket carry the active sentinel; the last row of an
// unterminated ticket rolls into the current month; a terminal last row
// rolls into the month it changed.
func (d *Deriver) rolloverPeriod(f rowFacts, sameAsNext bool) string {
	if sameAsNext {
		return rolloverActive
	}
	if !terminalStatuses[f.statusDescription] {
		return periodToken(d.now())
	}
	if at, ok := ParseStamp(f.changeStamp); ok {
		return periodToken(at)
	}
	return tokenBlank
}

// creationPeriodToken buckets the row into the month its ticket was
// created, with the never sentinel when the rollover is blank.
func creationPeriodToken(f rowFacts, rollover string) string {
	if strings.TrimSpace(rollover) == "" {
		return creationNever
	}
	if f.creationDateCell == "" {
		return tokenBlank
	}
	at, ok := ParseDate(f.creationDateCell)
	if !ok {
		return tokenBlank
	}
	return periodToken(at)
}

// =============================================================================
// HELPERS
// =============================================================================

// periodToken renders a "YYYY MM" reporting period. Fixed width, so the
// tokens compare lexicographically.
func periodToken(t time.Time) string {
	return fmt.Sprintf("%d %02d", t.Year(), int(t.Month()))
}

func yesOrBlank(v bool) string {
	if v {
		return tokenYes
	}
	return tokenBlank
}

// renderCumulative renders the running consumption; zero and below show
// the flat "0.00".
func renderCumulative(v decimal.Decimal) string {
	if v.IsPositive() {
		return v.StringFixed(2)
	}
	return "0.00"
}

// parseAmount coerces a numeric cell to decimal, reading blanks and
// malformed values as zero.
func parseAmount(s string) decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return v
}

// containsFold reports membership with case-insensitive comparison.
func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
