/*
sla.go - Priority budget table

PURPOSE:
  Maps a ticket's priority level to its pair of SLA budgets: the response
  budget (creation to first meaningful status change) and the resolution
  budget (cumulative working hours to closure), both in business hours.
*/
package engine

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Budget is a pair of SLA allowances in business hours.
type Budget struct {
	Response   decimal.Decimal
	Resolution decimal.Decimal
}

// BudgetTable maps a priority level token ("P1".."P4") to its budgets.
type BudgetTable map[string]Budget

// fallbackBudget covers unknown or missing priority levels.
var fallbackBudget = Budget{
	Response:   decimal.NewFromInt(18),
	Resolution: decimal.NewFromInt(90),
}

// DefaultBudgets is the stock priority table of the source system.
func DefaultBudgets() BudgetTable {
	return BudgetTable{
		"P1": {Response: decimal.NewFromFloat(0.5), Resolution: decimal.NewFromInt(4)},
		"P2": {Response: decimal.NewFromInt(2), Resolution: decimal.NewFromInt(9)},
		"P3": {Response: decimal.NewFromInt(9), Resolution: decimal.NewFromInt(45)},
		"P4": {Response: decimal.NewFromInt(18), Resolution: decimal.NewFromInt(90)},
	}
}

// ForPriority looks up the budgets for a priority description such as
// "P2 - High". The level is the text before the first space; a missing
// description or unknown level falls back to the P4 allowances.
func (bt BudgetTable) ForPriority(description string) Budget {
	desc := strings.TrimSpace(description)
	if desc == "" {
		desc = "P4 - Low"
	}
	level := strings.SplitN(desc, " ", 2)[0]
	if b, ok := bt[level]; ok {
		return b
	}
	return fallbackBudget
}
