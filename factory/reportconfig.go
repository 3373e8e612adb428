/*
Package factory provides JSON to Go report configuration conversion.

PURPOSE:
  Converts JSON report configuration definitions into engine.WorkWindow
  and engine.BudgetTable values. This enables SLA tuning without code
  changes - service managers can adjust working hours and per-priority
  budgets in JSON, and the factory creates the proper Go structs.

WHY JSON?
  - Non-developers can adjust budgets and the working window
  - Easy integration with admin UI
  - Version control for configuration definitions
  - Database storage of report configs

JSON SCHEMA:
  {
    "name": "Default SLA configuration",
    "work_window": {
      "start": "14:00",
      "end": "23:00"
    },
    "budgets": {
      "P1": {"response": 0.5, "resolution": 4},
      "P2": {"response": 2, "resolution": 9},
      "P3": {"response": 9, "resolution": 45},
      "P4": {"response": 18, "resolution": 90}
    }
  }

KEY FEATURES:
  - Validates window and budget values
  - Falls back to stock defaults for anything omitted
  - Round-trips a config back to JSON for the admin surface

USAGE:
  factory := NewConfigFactory()

  // From JSON string
  window, budgets, err := factory.ParseConfig(jsonString)

  // Use in the pipeline
  deriver := engine.NewDeriver(window, holidays, budgets)

SEE ALSO:
  - engine/calendar.go: WorkWindow and DayTime definitions
  - engine/sla.go: BudgetTable and the stock priority budgets
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/sla-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the JSON representation of a report configuration.
type ConfigJSON struct {
	Name       string                `json:"name,omitempty"`
	WorkWindow *WindowJSON           `json:"work_window,omitempty"`
	Budgets    map[string]BudgetJSON `json:"budgets,omitempty"`
}

// WindowJSON represents the daily working window.
type WindowJSON struct {
	Start string `json:"start"` // "HH:MM" or "HH:MM:SS"
	End   string `json:"end"`
}

// BudgetJSON represents one priority's SLA allowances in working hours.
type BudgetJSON struct {
	Response   float64 `json:"response"`
	Resolution float64 `json:"resolution"`
}

// =============================================================================
// CONFIG FACTORY
// =============================================================================

// ConfigFactory converts JSON report configurations to engine values.
type ConfigFactory struct{}

// NewConfigFactory creates a new config factory.
func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// ParseConfig parses a JSON string into a WorkWindow and BudgetTable.
func (f *ConfigFactory) ParseConfig(jsonStr string) (engine.WorkWindow, engine.BudgetTable, error) {
	var cj ConfigJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return engine.WorkWindow{}, nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return f.FromJSON(cj)
}

// FromJSON converts ConfigJSON to a WorkWindow and BudgetTable. Omitted
// sections fall back to the stock defaults; a partial budgets map only
// overrides the priorities it names.
func (f *ConfigFactory) FromJSON(cj ConfigJSON) (engine.WorkWindow, engine.BudgetTable, error) {
	window := engine.DefaultWorkWindow()
	if cj.WorkWindow != nil {
		var err error
		window, err = parseWindow(*cj.WorkWindow)
		if err != nil {
			return engine.WorkWindow{}, nil, err
		}
	}

	budgets := engine.DefaultBudgets()
	for level, bj := range cj.Budgets {
		if bj.Response < 0 || bj.Resolution < 0 {
			return engine.WorkWindow{}, nil, fmt.Errorf("budget for %s: allowances must not be negative", level)
		}
		budgets[level] = engine.Budget{
			Response:   decimal.NewFromFloat(bj.Response),
			Resolution: decimal.NewFromFloat(bj.Resolution),
		}
	}

	return window, budgets, nil
}

// ToJSON converts a WorkWindow and BudgetTable back to ConfigJSON.
func (f *ConfigFactory) ToJSON(window engine.WorkWindow, budgets engine.BudgetTable) ConfigJSON {
	cj := ConfigJSON{
		WorkWindow: &WindowJSON{
			Start: window.Start.String(),
			End:   window.End.String(),
		},
		Budgets: make(map[string]BudgetJSON, len(budgets)),
	}
	for level, b := range budgets {
		cj.Budgets[level] = BudgetJSON{
			Response:   b.Response.InexactFloat64(),
			Resolution: b.Resolution.InexactFloat64(),
		}
	}
	return cj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseWindow(wj WindowJSON) (engine.WorkWindow, error) {
	start, err := engine.ParseDayTime(wj.Start)
	if err != nil {
		return engine.WorkWindow{}, fmt.Errorf("work window start: %w", err)
	}
	end, err := engine.ParseDayTime(wj.End)
	if err != nil {
		return engine.WorkWindow{}, fmt.Errorf("work window end: %w", err)
	}

	window := engine.WorkWindow{Start: start, End: end}
	if !window.DailyHours().IsPositive() {
		return engine.WorkWindow{}, fmt.Errorf("work window must end after it starts (%s - %s)", wj.Start, wj.End)
	}
	return window, nil
}
