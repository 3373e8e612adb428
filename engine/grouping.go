/*
grouping.go - Ticket grouping and chronological ordering

PURPOSE:
  Multiple rows share one ticket ID, each recording one status change.
  The pipeline needs each ticket's rows contiguous and in chronological
  order (change date, then change time). Groups keep the order in which
  their ticket ID first appears in the input.

STABILITY:
  The sort is stable: rows whose sort keys do not parse keep their
  relative input order. Re-grouping an already grouped table yields the
  same result.
*/
package engine

import (
	"sort"
	"strconv"
	"strings"
)

// GroupAndSort groups rows by ticket ID (first-seen order) and sorts each
// group chronologically. A table without a ticket ID column passes
// through untouched.
func GroupAndSort(t Table) Table {
	cols := ResolveColumns(t.Headers)
	if cols.RequestID == ColumnNotFound {
		return t
	}

	groups := make(map[string][][]string)
	var order []string
	for _, row := range t.Rows {
		id := cellAt(row, cols.RequestID)
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], row)
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, id := range order {
		group := groups[id]
		sort.SliceStable(group, func(i, j int) bool {
			return chronoLess(group[i], group[j], cols)
		})
		rows = append(rows, group...)
	}

	return Table{Headers: t.Headers, Rows: rows}
}

// chronoLess orders two rows of one ticket by change date then change
// time. Unparseable keys compare equal, leaving the stable order intact.
func chronoLess(a, b []string, cols Columns) bool {
	if cols.ChangeDate == ColumnNotFound || cols.ChangeTime == ColumnNotFound {
		return false
	}

	dateA, okA := ParseDate(cellAt(a, cols.ChangeDate))
	dateB, okB := ParseDate(cellAt(b, cols.ChangeDate))
	if !okA || !okB {
		return false
	}
	if !dateA.Equal(dateB) {
		return dateA.Before(dateB)
	}

	hA, mA, sA := timeKey(cellAt(a, cols.ChangeTime))
	hB, mB, sB := timeKey(cellAt(b, cols.ChangeTime))
	if hA != hB {
		return hA < hB
	}
	if mA != mB {
		return mA < mB
	}
	return sA < sB
}

// timeKey reads a raw change-time cell as HH/MM/SS integers via the
// normalized 6-digit form.
func timeKey(cell string) (hour, minute, second int) {
	parts := strings.Split(FormatTime(cell), ":")
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	second, _ = strconv.Atoi(parts[2])
	return hour, minute, second
}
