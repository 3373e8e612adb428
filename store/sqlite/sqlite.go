/*
Package sqlite provides SQLite-backed persistence for report settings.

PURPOSE:
  The enriched ticket table itself is never persisted - it is recomputed
  from the uploaded export on demand. What does persist is the operator
  configuration the pipeline runs with: the holiday calendar and the
  active report configuration (working window plus priority budgets).

KEY TABLES:
  holidays:       One row per non-working date, keyed by year for the
                  per-dataset lookups
  report_configs: The active configuration document as JSON (single row)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/sla.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  dates, err := store.HolidayDatesByYear(ctx)
  holidays := engine.HolidaysForYears(dates, table.Years())

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/calendar.go: HolidaySet consuming the stored dates
  - api/handlers.go: The holiday and config endpoints
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rickar/cal/v2"
)

// Store persists holidays and report configuration using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Holiday is a stored non-working date.
type Holiday struct {
	ID        string    `json:"id"`
	Year      string    `json:"year"`
	Date      string    `json:"date"` // ISO "YYYY-MM-DD"
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Non-working dates, one row per date
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		year TEXT NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_year
		ON holidays(year);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_date
		ON holidays(date);

	-- The active report configuration document
	CREATE TABLE IF NOT EXISTS report_configs (
		id TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

// SaveHoliday stores a non-working date. Saving an already stored date
// updates its name.
func (s *Store) SaveHoliday(ctx context.Context, date, name string) (Holiday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return Holiday{}, fmt.Errorf("invalid holiday date %q: %w", date, err)
	}

	h := Holiday{
		ID:        uuid.NewString(),
		Year:      fmt.Sprintf("%d", day.Year()),
		Date:      date,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO holidays (id, year, date, name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			name = excluded.name
	`

	if _, err := s.db.ExecContext(ctx, query,
		h.ID, h.Year, h.Date, h.Name,
		h.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return Holiday{}, fmt.Errorf("failed to save holiday: %w", err)
	}

	return s.getHolidayByDate(ctx, date)
}

func (s *Store) getHolidayByDate(ctx context.Context, date string) (Holiday, error) {
	var h Holiday
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, year, date, name, created_at FROM holidays WHERE date = ?",
		date,
	).Scan(&h.ID, &h.Year, &h.Date, &h.Name, &createdAt)
	if err != nil {
		return Holiday{}, err
	}
	h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return h, nil
}

// DeleteHoliday removes a holiday by ID. Reports whether a row existed.
func (s *Store) DeleteHoliday(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListHolidays returns stored holidays, optionally limited to one year,
// ordered by date.
func (s *Store) ListHolidays(ctx context.Context, year string) ([]Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, year, date, name, created_at FROM holidays ORDER BY date ASC"
	var args []any
	if year != "" {
		query = "SELECT id, year, date, name, created_at FROM holidays WHERE year = ? ORDER BY date ASC"
		args = []any{year}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var h Holiday
		var createdAt string
		if err := rows.Scan(&h.ID, &h.Year, &h.Date, &h.Name, &createdAt); err != nil {
			return nil, err
		}
		h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// HolidayDatesByYear returns every stored date grouped by its year, the
// shape engine.HolidaysForYears consumes.
func (s *Store) HolidayDatesByYear(ctx context.Context) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT year, date FROM holidays ORDER BY date ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byYear := make(map[string][]string)
	for rows.Next() {
		var year, date string
		if err := rows.Scan(&year, &date); err != nil {
			return nil, err
		}
		byYear[year] = append(byYear[year], date)
	}
	return byYear, rows.Err()
}

// =============================================================================
// DEFAULT HOLIDAYS
// =============================================================================

// defaultHolidays are the recurring public holidays seeded for a year
// that has none configured yet.
var defaultHolidays = []*cal.Holiday{
	{Name: "New Year's Day", Type: cal.ObservancePublic, Month: time.January, Day: 1, Func: cal.CalcDayOfMonth},
	{Name: "Makar Sankranti", Type: cal.ObservancePublic, Month: time.January, Day: 14, Func: cal.CalcDayOfMonth},
	{Name: "Republic Day", Type: cal.ObservancePublic, Month: time.January, Day: 26, Func: cal.CalcDayOfMonth},
	{Name: "May Day", Type: cal.ObservancePublic, Month: time.May, Day: 1, Func: cal.CalcDayOfMonth},
	{Name: "Independence Day", Type: cal.ObservancePublic, Month: time.August, Day: 15, Func: cal.CalcDayOfMonth},
	{Name: "Gandhi Jayanti", Type: cal.ObservancePublic, Month: time.October, Day: 2, Func: cal.CalcDayOfMonth},
	{Name: "Christmas Day", Type: cal.ObservancePublic, Month: time.December, Day: 25, Func: cal.CalcDayOfMonth},
}

// SeedDefaults inserts the recurring public holidays for each given year
// that has no holidays stored yet. Years already configured are left
// alone. Returns the holidays inserted.
func (s *Store) SeedDefaults(ctx context.Context, years []string) ([]Holiday, error) {
	var seeded []Holiday
	for _, yearStr := range years {
		existing, err := s.ListHolidays(ctx, yearStr)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			continue
		}

		var year int
		if _, err := fmt.Sscanf(yearStr, "%d", &year); err != nil || year < 1 {
			continue
		}

		for _, def := range defaultHolidays {
			actual, _ := def.Calc(year)
			h, err := s.SaveHoliday(ctx, actual.Format("2006-01-02"), def.Name)
			if err != nil {
				return nil, err
			}
			seeded = append(seeded, h)
		}
	}
	return seeded, nil
}

// =============================================================================
// REPORT CONFIG STORE
// =============================================================================

// The single-row key of the active configuration.
const activeConfigID = "active"

// SaveConfig stores the active report configuration document.
func (s *Store) SaveConfig(ctx context.Context, configJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO report_configs (id, config_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		activeConfigID, configJSON, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// GetConfig returns the active configuration document, or "" when none
// has been stored.
func (s *Store) GetConfig(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM report_configs WHERE id = ?", activeConfigID,
	).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return configJSON, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"holidays", "report_configs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
