/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Export upload and derivation
- Period reports and downloads
- Holiday management triggering re-derivation
- Configuration round-trips
*/
package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sla-engine/engine"
	"github.com/warp/sla-engine/store/sqlite"
)

// sampleCSV is a two-ticket export: one still-open P4 ticket and one P2
// ticket assigned then closed.
const sampleCSV = `Request - ID,Req. Creation Date,Creation Time,Historical Status - Status From,Historical Status - Status To,Req. Status - Description,Historical Status - Change Date,Historical Status - Change Time,Request - Priority Description,Req. Type - Description EN
A1,15/05/2024,150000,,Assigned,Work in progress,15/05/2024,170000,P4 - Low,Incident
B1,16/05/2024,150000,,Assigned,Closed,16/05/2024,160000,P2 - High,Incident
B1,16/05/2024,150000,Assigned,Closed,Closed,17/05/2024,150000,P2 - High,Incident
`

func newTestRouter(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store)
	h.Clock = engine.FixedClock{At: time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)}
	return h, NewRouter(h)
}

func uploadCSV(t *testing.T, router http.Handler, csv string) UploadResponse {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "may.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func getJSON(t *testing.T, router http.Handler, url string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestUploadDataset(t *testing.T) {
	// GIVEN: A fresh server
	_, router := newTestRouter(t)

	// WHEN: Uploading a two-ticket export
	resp := uploadCSV(t, router, sampleCSV)

	// THEN: The dataset is described and fully derived
	assert.Equal(t, "may.csv", resp.Dataset.Filename)
	assert.Equal(t, 3, resp.Dataset.Rows)
	assert.Equal(t, 2, resp.Dataset.Tickets)
	assert.Equal(t, []string{"2024"}, resp.Dataset.Years)
	assert.Contains(t, resp.Dataset.Periods, "2024 05")

	// The dataset's year had no holidays: defaults were seeded
	assert.Len(t, resp.SeededHolidays, 7)

	// The unfiltered summary counts everything
	assert.Equal(t, 3, resp.Summary.TicketsWorkedOn)
	assert.Equal(t, 2, resp.Summary.TicketsCreated)
	assert.Equal(t, 1, resp.Summary.TicketsCompleted)
}

func TestGetDataset_NoneLoaded(t *testing.T) {
	_, router := newTestRouter(t)

	code := getJSON(t, router, "/api/datasets/current", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetReport_Period(t *testing.T) {
	_, router := newTestRouter(t)
	uploadCSV(t, router, sampleCSV)

	var resp ReportResponse
	code := getJSON(t, router, "/api/report?period=2024+05", &resp)
	require.Equal(t, http.StatusOK, code)

	// The open ticket's row and the closing row are active in May; the
	// closed ticket's first row is not
	assert.Equal(t, "2024 05", resp.Summary.Period)
	assert.Equal(t, 2, resp.Summary.TicketsWorkedOn)
	assert.Equal(t, 2, resp.Summary.TicketsCreated)
	assert.Equal(t, 1, resp.Summary.TicketsCompleted)
	assert.Equal(t, 100.0, resp.Summary.ResponsePct)
	assert.Equal(t, 100.0, resp.Summary.ResolutionPct)
	assert.Empty(t, resp.Rows)

	code = getJSON(t, router, "/api/report?period=2024+05&include_rows=true", &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, resp.Headers, engine.ColResolRem)
	assert.Len(t, resp.Rows, 2)
}

func TestExportReport_CSV(t *testing.T) {
	_, router := newTestRouter(t)
	uploadCSV(t, router, sampleCSV)

	req := httptest.NewRequest(http.MethodGet, "/api/report/export?format=csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "may-sla.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Cumilative")
}

func TestExportReport_XLSX(t *testing.T) {
	_, router := newTestRouter(t)
	uploadCSV(t, router, sampleCSV)

	req := httptest.NewRequest(http.MethodGet, "/api/report/export", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "may-sla.xlsx")
	// A zip container, not an error payload
	assert.Equal(t, "PK", rec.Body.String()[:2])
}

func TestHolidayChangesRederiveDataset(t *testing.T) {
	// GIVEN: A loaded dataset whose closed ticket consumed one hour on
	// Thursday 16/05/2024
	_, router := newTestRouter(t)
	uploadCSV(t, router, sampleCSV)

	resolRem := func() string {
		var resp ReportResponse
		code := getJSON(t, router, "/api/report?include_rows=true", &resp)
		require.Equal(t, http.StatusOK, code)

		remIdx, compIdx := -1, -1
		for i, h := range resp.Headers {
			switch h {
			case engine.ColResolRem:
				remIdx = i
			case engine.ColReqComp:
				compIdx = i
			}
		}
		require.GreaterOrEqual(t, remIdx, 0)
		require.GreaterOrEqual(t, compIdx, 0)
		for _, row := range resp.Rows {
			if row[compIdx] == "End" {
				return row[remIdx]
			}
		}
		t.Fatal("no completed row found")
		return ""
	}

	assert.Equal(t, "8.00", resolRem())

	// WHEN: Declaring that Thursday a holiday
	body := `{"date": "2024-05-16", "name": "Local holiday"}`
	req := httptest.NewRequest(http.MethodPost, "/api/holidays", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: The hour consumed that day is forgiven
	assert.Equal(t, "9.00", resolRem())
}

func TestHolidayLifecycle(t *testing.T) {
	_, router := newTestRouter(t)

	// Create
	body := `{"date": "2024-05-16", "name": "Local holiday"}`
	req := httptest.NewRequest(http.MethodPost, "/api/holidays", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created HolidayDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "2024", created.Year)

	// List
	var listed []HolidayDTO
	code := getJSON(t, router, "/api/holidays?year=2024", &listed)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, listed, 1)

	// Delete
	req = httptest.NewRequest(http.MethodDelete, "/api/holidays/"+created.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Delete again: gone
	req = httptest.NewRequest(http.MethodDelete, "/api/holidays/"+created.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSeedDefaults_RequiresYears(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/holidays/defaults", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/holidays/defaults",
		strings.NewReader(`{"years": ["2023"]}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var seeded []HolidayDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seeded))
	assert.Len(t, seeded, 7)
}

func TestConfigRoundTrip(t *testing.T) {
	h, router := newTestRouter(t)

	var current ConfigDTO
	code := getJSON(t, router, "/api/config", &current)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "14:00:00", current.Config.WorkWindow.Start)

	// Update the window and one budget
	body := `{"config": {
		"work_window": {"start": "09:00", "end": "18:00"},
		"budgets": {"P1": {"response": 1, "resolution": 8}}
	}}`
	req := httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	code = getJSON(t, router, "/api/config", &current)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "09:00:00", current.Config.WorkWindow.Start)
	assert.Equal(t, 8.0, current.Config.Budgets["P1"].Resolution)
	// Unnamed priorities keep their stock budgets
	assert.Equal(t, 9.0, current.Config.Budgets["P2"].Resolution)

	// The update persisted: a fresh handler over the same store loads it
	fresh := NewHandler(h.Store)
	require.NoError(t, fresh.LoadConfig(req.Context()))
	var freshCfg ConfigDTO
	code = getJSON(t, NewRouter(fresh), "/api/config", &freshCfg)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "09:00:00", freshCfg.Config.WorkWindow.Start)
}

func TestUpdateConfig_Invalid(t *testing.T) {
	_, router := newTestRouter(t)

	body := `{"config": {"work_window": {"start": "18:00", "end": "09:00"}}}`
	req := httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetDatabase(t *testing.T) {
	_, router := newTestRouter(t)
	uploadCSV(t, router, sampleCSV)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/reset", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	code := getJSON(t, router, "/api/datasets/current", nil)
	assert.Equal(t, http.StatusNotFound, code)

	var holidays []HolidayDTO
	code = getJSON(t, router, "/api/holidays", &holidays)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, holidays)
}
