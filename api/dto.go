/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/reportconfig.go: ConfigJSON type
*/
package api

import (
	"github.com/warp/sla-engine/engine"
	"github.com/warp/sla-engine/factory"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// DatasetDTO describes the currently loaded export.
type DatasetDTO struct {
	Filename   string   `json:"filename"`
	UploadedAt string   `json:"uploaded_at"`
	Rows       int      `json:"rows"`
	Tickets    int      `json:"tickets"`
	Years      []string `json:"years"`
	Periods    []string `json:"periods"`
}

// UploadResponse is returned after a successful export upload.
type UploadResponse struct {
	Dataset        DatasetDTO       `json:"dataset"`
	SeededHolidays []HolidayDTO     `json:"seeded_holidays,omitempty"`
	Summary        engine.Summary   `json:"summary"`
}

// ReportResponse carries a period report: the aggregate summary plus,
// when requested, the matching enriched rows.
type ReportResponse struct {
	Summary engine.Summary `json:"summary"`
	Headers []string       `json:"headers,omitempty"`
	Rows    [][]string     `json:"rows,omitempty"`
}

// HolidayDTO represents a non-working date in API responses.
type HolidayDTO struct {
	ID   string `json:"id"`
	Year string `json:"year"`
	Date string `json:"date"`
	Name string `json:"name,omitempty"`
}

// CreateHolidayRequest is the request to add a holiday.
type CreateHolidayRequest struct {
	Date string `json:"date"` // ISO "YYYY-MM-DD"
	Name string `json:"name,omitempty"`
}

// SeedHolidaysRequest names the years to seed with default holidays.
// An empty list means every year the loaded dataset touches.
type SeedHolidaysRequest struct {
	Years []string `json:"years,omitempty"`
}

// ConfigDTO wraps the active report configuration.
type ConfigDTO struct {
	Config factory.ConfigJSON `json:"config"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
