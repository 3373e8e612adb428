package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/sla-engine/engine"
)

func historyTable(rows ...[]string) engine.Table {
	return engine.Table{
		Headers: []string{
			engine.HeaderRequestID,
			engine.HeaderChangeDate,
			engine.HeaderChangeTime,
		},
		Rows: rows,
	}
}

func TestGroupAndSort_GroupsInFirstSeenOrder(t *testing.T) {
	// GIVEN: Rows of two tickets interleaved
	input := historyTable(
		[]string{"B", "14/05/2024", "100000"},
		[]string{"A", "13/05/2024", "100000"},
		[]string{"B", "13/05/2024", "100000"},
		[]string{"A", "14/05/2024", "100000"},
	)

	// WHEN: Grouping and sorting
	got := engine.GroupAndSort(input)

	// THEN: Each ticket's rows are contiguous and chronological, with
	// ticket B first because it appeared first
	ids := make([]string, len(got.Rows))
	dates := make([]string, len(got.Rows))
	for i, row := range got.Rows {
		ids[i] = row[0]
		dates[i] = row[1]
	}
	assert.Equal(t, []string{"B", "B", "A", "A"}, ids)
	assert.Equal(t, []string{"13/05/2024", "14/05/2024", "13/05/2024", "14/05/2024"}, dates)
}

func TestGroupAndSort_TimeBreaksDateTies(t *testing.T) {
	input := historyTable(
		[]string{"A", "13/05/2024", "170000"},
		[]string{"A", "13/05/2024", "90000"},
		[]string{"A", "13/05/2024", "123000"},
	)

	got := engine.GroupAndSort(input)

	times := []string{got.Rows[0][2], got.Rows[1][2], got.Rows[2][2]}
	assert.Equal(t, []string{"90000", "123000", "170000"}, times)
}

func TestGroupAndSort_UnparseableDatesKeepInputOrder(t *testing.T) {
	// Stable sort: rows whose dates do not parse stay where they were.
	input := historyTable(
		[]string{"A", "soon", "100000"},
		[]string{"A", "later", "090000"},
		[]string{"A", "13/05/2024", "100000"},
	)

	got := engine.GroupAndSort(input)

	dates := []string{got.Rows[0][1], got.Rows[1][1], got.Rows[2][1]}
	assert.Equal(t, []string{"soon", "later", "13/05/2024"}, dates)
}

func TestGroupAndSort_NoTicketColumnPassesThrough(t *testing.T) {
	input := engine.Table{
		Headers: []string{"Something", "Else"},
		Rows: [][]string{
			{"z", "1"},
			{"a", "2"},
		},
	}

	got := engine.GroupAndSort(input)
	assert.Equal(t, input.Rows, got.Rows)
}

func TestGroupAndSort_Idempotent(t *testing.T) {
	input := historyTable(
		[]string{"B", "14/05/2024", "100000"},
		[]string{"A", "13/05/2024", "110000"},
		[]string{"B", "13/05/2024", "100000"},
	)

	once := engine.GroupAndSort(input)
	twice := engine.GroupAndSort(once)
	assert.Equal(t, once.Rows, twice.Rows)
}
