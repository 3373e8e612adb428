/*
handlers.go - HTTP API handlers for the SLA compliance engine

PURPOSE:
  Exposes the SLA pipeline via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Datasets:
    POST   /api/datasets               Upload a ticket-history export
    GET    /api/datasets/current       Describe the loaded dataset

  Reports:
    GET    /api/report?period=         Monthly summary (+rows on demand)
    GET    /api/report/export          Download the enriched table

  Holidays:
    GET    /api/holidays               List holidays (?year= filter)
    POST   /api/holidays               Add a holiday
    POST   /api/holidays/defaults      Seed default holidays
    DELETE /api/holidays/{id}          Remove a holiday

  Config:
    GET    /api/config                 Active window and budgets
    PUT    /api/config                 Replace the configuration

  Admin:
    POST   /api/admin/reset            Clear stored settings (dev only)

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: holiday and config persistence
  - ConfigFactory: JSON to engine config conversion
  - The loaded dataset, held in memory and re-enriched whenever the
    holiday calendar or configuration changes

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (prepare, enrich, summarize)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found, no dataset loaded
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/warp/sla-engine/engine"
	"github.com/warp/sla-engine/factory"
	"github.com/warp/sla-engine/ingest"
	"github.com/warp/sla-engine/store/sqlite"
)

// maxUploadBytes caps export uploads at 64 MB.
const maxUploadBytes = 64 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// dataset is the in-memory state derived from the last upload.
type dataset struct {
	filename   string
	uploadedAt time.Time
	prepared   engine.Table
	enriched   engine.Table
	years      []string
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	ConfigFactory *factory.ConfigFactory
	Clock         engine.Clock

	mu      sync.RWMutex
	window  engine.WorkWindow
	budgets engine.BudgetTable
	data    *dataset
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:         store,
		ConfigFactory: factory.NewConfigFactory(),
		Clock:         engine.SystemClock,
		window:        engine.DefaultWorkWindow(),
		budgets:       engine.DefaultBudgets(),
	}
}

// LoadConfig loads the persisted report configuration, keeping the
// stock defaults when none is stored or the stored document is invalid.
func (h *Handler) LoadConfig(ctx context.Context) error {
	doc, err := h.Store.GetConfig(ctx)
	if err != nil {
		return err
	}
	if doc == "" {
		return nil
	}

	window, budgets, err := h.ConfigFactory.ParseConfig(doc)
	if err != nil {
		log.Warn().Err(err).Msg("Stored config is invalid, using defaults")
		return nil
	}

	h.mu.Lock()
	h.window = window
	h.budgets = budgets
	h.mu.Unlock()
	return nil
}

// SetWindow overrides the active working window. Used at startup for
// environment overrides.
func (h *Handler) SetWindow(w engine.WorkWindow) {
	h.mu.Lock()
	h.window = w
	h.mu.Unlock()
}

// =============================================================================
// DATASET ENDPOINTS
// =============================================================================

// UploadDataset receives a ticket-history export (multipart field
// "file", CSV or XLSX), prepares it, and runs the derivation pipeline.
func (h *Handler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse upload", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field", err)
		return
	}
	defer file.Close()

	raw, err := ingest.Decode(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to decode export", err)
		return
	}

	prepared := engine.Prepare(raw)
	if prepared.IsEmpty() {
		writeError(w, http.StatusBadRequest, "Export has no data rows", nil)
		return
	}
	years := prepared.Years()

	// Years the dataset touches but the calendar does not cover yet get
	// the default public holidays.
	seeded, err := h.Store.SeedDefaults(r.Context(), years)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed default holidays", err)
		return
	}

	h.mu.Lock()
	h.data = &dataset{
		filename:   header.Filename,
		uploadedAt: h.Clock.Now(),
		prepared:   prepared,
		years:      years,
	}
	h.mu.Unlock()

	if err := h.recompute(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to derive SLA fields", err)
		return
	}

	h.mu.RLock()
	_, summary := engine.FilterAndSummarize(h.data.enriched, "")
	resp := UploadResponse{
		Dataset:        h.datasetDTO(),
		SeededHolidays: toHolidayDTOs(seeded),
		Summary:        summary,
	}
	h.mu.RUnlock()

	log.Info().
		Str("filename", resp.Dataset.Filename).
		Int("rows", resp.Dataset.Rows).
		Int("tickets", resp.Dataset.Tickets).
		Strs("years", resp.Dataset.Years).
		Msg("Export loaded")

	writeJSON(w, http.StatusCreated, resp)
}

// GetDataset describes the currently loaded export.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.data == nil {
		writeError(w, http.StatusNotFound, "No dataset loaded", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.datasetDTO())
}

// recompute re-runs the derivation pipeline over the prepared table
// with the current holiday calendar and configuration. No-op when no
// dataset is loaded.
func (h *Handler) recompute(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.data == nil {
		return nil
	}

	byYear, err := h.Store.HolidayDatesByYear(ctx)
	if err != nil {
		return err
	}
	holidays := engine.HolidaysForYears(byYear, h.data.years)

	d := engine.NewDeriver(h.window, holidays, h.budgets)
	d.Clock = h.Clock
	h.data.enriched = d.Enrich(h.data.prepared)
	return nil
}

// datasetDTO builds the dataset description. Callers hold h.mu.
func (h *Handler) datasetDTO() DatasetDTO {
	return DatasetDTO{
		Filename:   h.data.filename,
		UploadedAt: h.data.uploadedAt.UTC().Format(time.RFC3339),
		Rows:       len(h.data.enriched.Rows),
		Tickets:    countTickets(h.data.enriched),
		Years:      h.data.years,
		Periods:    collectPeriods(h.data.enriched),
	}
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// GetReport returns the monthly summary for ?period=YYYY MM (every row
// when omitted). ?include_rows=true attaches the matching enriched rows.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.data == nil {
		writeError(w, http.StatusNotFound, "No dataset loaded", nil)
		return
	}

	period := r.URL.Query().Get("period")
	filtered, summary := engine.FilterAndSummarize(h.data.enriched, period)

	resp := ReportResponse{Summary: summary}
	if r.URL.Query().Get("include_rows") == "true" {
		resp.Headers = filtered.Headers
		resp.Rows = filtered.Rows
		if resp.Rows == nil {
			resp.Rows = [][]string{}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportReport streams the enriched table, filtered to ?period= when
// given, as ?format=xlsx (default) or csv.
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.data == nil {
		writeError(w, http.StatusNotFound, "No dataset loaded", nil)
		return
	}

	period := r.URL.Query().Get("period")
	filtered, _ := engine.FilterAndSummarize(h.data.enriched, period)

	base := ingest.SheetBaseName(h.data.filename)
	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", base+"-sla.csv"))
		if err := ingest.EncodeCSV(w, filtered); err != nil {
			log.Error().Err(err).Msg("Failed to stream CSV export")
		}
	default:
		w.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", base+"-sla.xlsx"))
		if err := ingest.EncodeXLSX(w, filtered, base, engine.DerivedColumns); err != nil {
			log.Error().Err(err).Msg("Failed to stream XLSX export")
		}
	}
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns stored holidays, filtered to ?year= when given.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context(), r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTOs(holidays))
}

// CreateHoliday adds a non-working date and re-derives the loaded
// dataset against the updated calendar.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required", nil)
		return
	}

	holiday, err := h.Store.SaveHoliday(r.Context(), req.Date, req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to save holiday", err)
		return
	}

	if err := h.recompute(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to re-derive SLA fields", err)
		return
	}

	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// DeleteHoliday removes a holiday by ID.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.Store.DeleteHoliday(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Holiday not found", nil)
		return
	}

	if err := h.recompute(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to re-derive SLA fields", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SeedDefaultHolidays seeds the default public holidays for the
// requested years (the dataset's years when none are named).
func (h *Handler) SeedDefaultHolidays(w http.ResponseWriter, r *http.Request) {
	var req SeedHolidaysRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	years := req.Years
	if len(years) == 0 {
		h.mu.RLock()
		if h.data != nil {
			years = h.data.years
		}
		h.mu.RUnlock()
	}
	if len(years) == 0 {
		writeError(w, http.StatusBadRequest, "No years to seed: name them or upload a dataset first", nil)
		return
	}

	seeded, err := h.Store.SeedDefaults(r.Context(), years)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed holidays", err)
		return
	}

	if err := h.recompute(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to re-derive SLA fields", err)
		return
	}

	writeJSON(w, http.StatusOK, toHolidayDTOs(seeded))
}

// =============================================================================
// CONFIG ENDPOINTS
// =============================================================================

// GetConfig returns the active working window and priority budgets.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	cj := h.ConfigFactory.ToJSON(h.window, h.budgets)
	h.mu.RUnlock()

	writeJSON(w, http.StatusOK, ConfigDTO{Config: cj})
}

// UpdateConfig replaces the active configuration, persists it, and
// re-derives the loaded dataset.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	window, budgets, err := h.ConfigFactory.FromJSON(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid configuration", err)
		return
	}

	doc, err := json.Marshal(req.Config)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode configuration", err)
		return
	}
	if err := h.Store.SaveConfig(r.Context(), string(doc)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to persist configuration", err)
		return
	}

	h.mu.Lock()
	h.window = window
	h.budgets = budgets
	h.mu.Unlock()

	if err := h.recompute(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to re-derive SLA fields", err)
		return
	}

	writeJSON(w, http.StatusOK, ConfigDTO{Config: h.ConfigFactory.ToJSON(window, budgets)})
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// ResetDatabase clears stored holidays and configuration and drops the
// loaded dataset. Development use only.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.window = engine.DefaultWorkWindow()
	h.budgets = engine.DefaultBudgets()
	h.data = nil
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func toHolidayDTO(h sqlite.Holiday) HolidayDTO {
	return HolidayDTO{ID: h.ID, Year: h.Year, Date: h.Date, Name: h.Name}
}

func toHolidayDTOs(holidays []sqlite.Holiday) []HolidayDTO {
	dtos := make([]HolidayDTO, len(holidays))
	for i, h := range holidays {
		dtos[i] = toHolidayDTO(h)
	}
	return dtos
}

func countTickets(t engine.Table) int {
	idx := -1
	for i, h := range t.Headers {
		if h == engine.HeaderRequestID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return 0
	}
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		if idx < len(row) {
			seen[row[idx]] = true
		}
	}
	return len(seen)
}

// collectPeriods lists the real "YYYY MM" tokens the enriched rows
// mention, sorted, skipping the sentinels and blanks.
func collectPeriods(t engine.Table) []string {
	cols := map[string]int{engine.ColReqCrYM: -1, engine.ColRollover: -1}
	for i, h := range t.Headers {
		if _, ok := cols[h]; ok {
			cols[h] = i
		}
	}

	seen := make(map[string]bool)
	for _, row := range t.Rows {
		for _, idx := range cols {
			if idx < 0 || idx >= len(row) {
				continue
			}
			token := row[idx]
			if token == "2000 01" || token == "9999 12" || len(token) != 7 {
				continue
			}
			seen[token] = true
		}
	}

	periods := make([]string, 0, len(seen))
	for token := range seen {
		periods = append(periods, token)
	}
	sort.Strings(periods)
	return periods
}
