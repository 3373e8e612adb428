/*
Package engine provides the core SLA calculation engine.

PURPOSE:
  This package contains the domain logic for turning a raw ticket-history
  export (one row per status-change event) into an enriched table carrying
  SLA fields: elapsed business hours, cumulative consumption, remaining
  allowance, completion flags, and monthly rollover tags.

KEY CONCEPTS IN THIS FILE (table.go):
  - Table: A rectangular header + rows structure, cells as strings
  - Columns: Named column positions resolved once from the header row
  - Prepare: Normalization applied to a freshly decoded export

DESIGN PRINCIPLES:
  1. Degradation over failure: a missing column or malformed cell never
     aborts a run; the dependent fields degrade to blank/zero
  2. Named addressing: downstream logic reads named fields resolved once
     at load time, never raw positional indexes
  3. Immutability: Prepare and Enrich return new tables; inputs are not
     mutated

SEE ALSO:
  - derive.go: The enrichment pipeline consuming a prepared table
  - grouping.go: Ticket grouping and chronological ordering
*/
package engine

import (
	"strings"
)

// =============================================================================
// TABLE - Rectangular cell data
// =============================================================================

// Table is a rectangular block of cells: one header row plus data rows.
// Cells are strings; numeric spreadsheet values (serial dates) arrive as
// their raw textual form and are interpreted by the datetime normalizer.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	headers := append([]string(nil), t.Headers...)
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = append([]string(nil), row...)
	}
	return Table{Headers: headers, Rows: rows}
}

// IsEmpty reports whether the table has no data rows.
func (t Table) IsEmpty() bool { return len(t.Rows) == 0 }

// =============================================================================
// SOURCE COLUMNS - Header names of the ticket export
// =============================================================================

// Header names as they appear in the ticket-history export.
const (
	HeaderCreationDate        = "Req. Creation Date"
	HeaderCreationTime        = "Creation Time"
	HeaderStatusFrom          = "Historical Status - Status From"
	HeaderRequestID           = "Request - ID"
	HeaderStatusTo            = "Historical Status - Status To"
	HeaderStatusDescription   = "Req. Status - Description"
	HeaderChangeDate          = "Historical Status - Change Date"
	HeaderChangeTime          = "Historical Status - Change Time"
	HeaderPriorityDescription = "Request - Priority Description"
	HeaderClosingDate         = "Req. Closing Date"
	HeaderTypeDescription     = "Req. Type - Description EN"
)

// ColumnNotFound marks a header that is absent from the export.
const ColumnNotFound = -1

// Columns holds the positional index of every source field, resolved once
// from the header row. Absent columns carry ColumnNotFound and the fields
// depending on them degrade to blank defaults.
type Columns struct {
	CreationDate        int
	CreationTime        int
	StatusFrom          int
	RequestID           int
	StatusTo            int
	StatusDescription   int
	ChangeDate          int
	ChangeTime          int
	PriorityDescription int
	ClosingDate         int
	TypeDescription     int
}

// ResolveColumns maps header names to positions.
func ResolveColumns(headers []string) Columns {
	return Columns{
		CreationDate:        indexOf(headers, HeaderCreationDate),
		CreationTime:        indexOf(headers, HeaderCreationTime),
		StatusFrom:          indexOf(headers, HeaderStatusFrom),
		RequestID:           indexOf(headers, HeaderRequestID),
		StatusTo:            indexOf(headers, HeaderStatusTo),
		StatusDescription:   indexOf(headers, HeaderStatusDescription),
		ChangeDate:          indexOf(headers, HeaderChangeDate),
		ChangeTime:          indexOf(headers, HeaderChangeTime),
		PriorityDescription: indexOf(headers, HeaderPriorityDescription),
		ClosingDate:         indexOf(headers, HeaderClosingDate),
		TypeDescription:     indexOf(headers, HeaderTypeDescription),
	}
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return ColumnNotFound
}

// cellAt returns the cell at idx, or "" when the column is absent or the
// row is short. Rows are right-padded conceptually, not physically.
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// =============================================================================
// PREPARE - Export normalization
// =============================================================================

// Prepare normalizes a freshly decoded export table:
//   - header cells are trimmed
//   - fully blank rows are dropped
//   - rows are right-padded to the header width
//   - the two date columns are normalized to day/month/year text
//     (spreadsheet serial numbers become calendar dates)
//   - columns with an empty header and no data are pruned
//   - rows are grouped by ticket ID and sorted chronologically per group
//
// Prepare is idempotent: preparing an already prepared table is a no-op
// beyond the grouping pass, which is itself idempotent.
func Prepare(t Table) Table {
	headers := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = strings.TrimSpace(h)
	}

	cols := ResolveColumns(headers)

	var rows [][]string
	for _, src := range t.Rows {
		if isBlankRow(src) {
			continue
		}
		row := make([]string, len(headers))
		copy(row, src)
		if cols.CreationDate != ColumnNotFound && row[cols.CreationDate] != "" {
			row[cols.CreationDate] = ToDayMonthYear(row[cols.CreationDate])
		}
		if cols.ChangeDate != ColumnNotFound && row[cols.ChangeDate] != "" {
			row[cols.ChangeDate] = ToDayMonthYear(row[cols.ChangeDate])
		}
		rows = append(rows, row)
	}

	headers, rows = pruneEmptyColumns(headers, rows)

	return GroupAndSort(Table{Headers: headers, Rows: rows})
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// pruneEmptyColumns removes columns whose header is empty and whose cells
// are all empty. Exports frequently carry trailing unnamed columns.
func pruneEmptyColumns(headers []string, rows [][]string) ([]string, [][]string) {
	keep := make([]int, 0, len(headers))
	for col, h := range headers {
		if h != "" {
			keep = append(keep, col)
			continue
		}
		empty := true
		for _, row := range rows {
			if cellAt(row, col) != "" {
				empty = false
				break
			}
		}
		if !empty {
			keep = append(keep, col)
		}
	}

	if len(keep) == len(headers) {
		return headers, rows
	}

	newHeaders := make([]string, len(keep))
	for i, col := range keep {
		newHeaders[i] = headers[col]
	}
	newRows := make([][]string, len(rows))
	for i, row := range rows {
		newRow := make([]string, len(keep))
		for j, col := range keep {
			newRow[j] = cellAt(row, col)
		}
		newRows[i] = newRow
	}
	return newHeaders, newRows
}

// =============================================================================
// YEAR DISCOVERY - Which holiday years does the dataset touch?
// =============================================================================

// Years returns the distinct 4-digit years referenced by any creation or
// change date in the table, in first-seen order. The active holiday set
// must cover every returned year.
func (t Table) Years() []string {
	cols := ResolveColumns(t.Headers)
	seen := make(map[string]bool)
	var years []string

	record := func(cell string) {
		parts := strings.Split(cell, "/")
		if len(parts) != 3 {
			return
		}
		year := strings.TrimSpace(parts[2])
		if len(year) != 4 || seen[year] {
			return
		}
		seen[year] = true
		years = append(years, year)
	}

	for _, row := range t.Rows {
		if c := cellAt(row, cols.CreationDate); c != "" {
			record(c)
		}
		if c := cellAt(row, cols.ChangeDate); c != "" {
			record(c)
		}
	}
	return years
}
