package energy

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // Postgres driver.
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/stripes/internal/calendar"
)

// schema is portable between SQLite and Postgres. Days are stored as
// YYYY-MM-DD text so range predicates compare lexically on both.
const schema = `
CREATE TABLE IF NOT EXISTS units (
    code        TEXT PRIMARY KEY,
    facility    TEXT NOT NULL,
    fueltech    TEXT NOT NULL DEFAULT '',
    capacity_mw REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS capacity_factors (
    unit_code TEXT NOT NULL,
    day       TEXT NOT NULL,
    value     REAL,
    PRIMARY KEY (unit_code, day)
);
`

// SQLSource serves year records from a relational archive of daily capacity
// factors. DSNs starting with postgres:// use lib/pq; anything else is
// treated as a SQLite path (an optional sqlite:// prefix is stripped).
type SQLSource struct {
	db  *sqlx.DB
	log *slog.Logger
	now func() time.Time
}

type factorRow struct {
	Code       string          `db:"code"`
	Facility   string          `db:"facility"`
	Fueltech   string          `db:"fueltech"`
	CapacityMW float64         `db:"capacity_mw"`
	Day        string          `db:"day"`
	Value      sql.NullFloat64 `db:"value"`
}

// OpenSQLSource connects to dsn and creates the schema if needed.
func OpenSQLSource(ctx context.Context, dsn string, log *slog.Logger) (*SQLSource, error) {
	if log == nil {
		log = slog.Default()
	}
	driver, conn := driverFor(dsn)
	db, err := sqlx.ConnectContext(ctx, driver, conn)
	if err != nil {
		return nil, fmt.Errorf("energy: open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		// One writer connection; see PRAGMAs below.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("energy: %s: %w", pragma, err)
			}
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("energy: create schema: %w", err)
	}
	return &SQLSource{db: db, log: log.With("component", "sqlsource"), now: time.Now}, nil
}

func driverFor(dsn string) (driver, conn string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://")
	}
	return "sqlite", dsn
}

// Close releases the database handle.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// FetchYear assembles a YearRecord from every stored day of year.
func (s *SQLSource) FetchYear(ctx context.Context, year int) (*YearRecord, error) {
	query := s.db.Rebind(`
SELECT u.code, u.facility, u.fueltech, u.capacity_mw, c.day, c.value
FROM capacity_factors c
JOIN units u ON u.code = c.unit_code
WHERE c.day >= ? AND c.day <= ?
ORDER BY u.facility, u.code, c.day`)

	var rows []factorRow
	err := s.db.SelectContext(ctx, &rows, query,
		calendar.YearStart(year).String(), calendar.YearEnd(year).String())
	if err != nil {
		return nil, &FetchError{Year: year, Source: "sql", Err: err}
	}
	if len(rows) == 0 {
		return nil, &DataNotFoundError{Year: year}
	}

	days := calendar.DaysInYear(year)
	rec := &YearRecord{Year: year, FetchedAt: s.now()}
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.Code]
		if !ok {
			i = len(rec.Units)
			index[row.Code] = i
			rec.Units = append(rec.Units, Unit{
				Code:       row.Code,
				Facility:   row.Facility,
				Fueltech:   row.Fueltech,
				CapacityMW: row.CapacityMW,
				Values:     NewSeries(days),
			})
		}
		if !row.Value.Valid {
			continue
		}
		d, err := calendar.Parse(row.Day)
		if err != nil {
			return nil, fmt.Errorf("energy: unit %s: %w: %v", row.Code, ErrMalformed, err)
		}
		rec.Units[i].Values[calendar.DayIndex(d)] = row.Value.Float64
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	s.log.Debug("sqlsource: loaded year", "year", year, "units", len(rec.Units), "rows", len(rows))
	return rec, nil
}

// Span reports the first and last days that carry a value.
func (s *SQLSource) Span(ctx context.Context) (calendar.Date, calendar.Date, error) {
	var span struct {
		First sql.NullString `db:"first"`
		Last  sql.NullString `db:"last"`
	}
	err := s.db.GetContext(ctx, &span,
		`SELECT MIN(day) AS first, MAX(day) AS last FROM capacity_factors WHERE value IS NOT NULL`)
	if err != nil {
		return calendar.Date{}, calendar.Date{}, fmt.Errorf("energy: query span: %w", err)
	}
	if !span.First.Valid || !span.Last.Valid {
		return calendar.Date{}, calendar.Date{}, fmt.Errorf("energy: empty archive: %w", ErrNotFound)
	}
	first, err := calendar.Parse(span.First.String)
	if err != nil {
		return calendar.Date{}, calendar.Date{}, fmt.Errorf("energy: span first: %w: %v", ErrMalformed, err)
	}
	last, err := calendar.Parse(span.Last.String)
	if err != nil {
		return calendar.Date{}, calendar.Date{}, fmt.Errorf("energy: span last: %w: %v", ErrMalformed, err)
	}
	return first, last, nil
}

// Import upserts every unit and daily value of rec in one transaction.
func (s *SQLSource) Import(ctx context.Context, rec *YearRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("energy: begin import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	unitStmt, err := tx.PreparexContext(ctx, tx.Rebind(`
INSERT INTO units (code, facility, fueltech, capacity_mw) VALUES (?, ?, ?, ?)
ON CONFLICT (code) DO UPDATE SET facility = excluded.facility,
    fueltech = excluded.fueltech, capacity_mw = excluded.capacity_mw`))
	if err != nil {
		return fmt.Errorf("energy: prepare unit upsert: %w", err)
	}
	defer unitStmt.Close()

	valueStmt, err := tx.PreparexContext(ctx, tx.Rebind(`
INSERT INTO capacity_factors (unit_code, day, value) VALUES (?, ?, ?)
ON CONFLICT (unit_code, day) DO UPDATE SET value = excluded.value`))
	if err != nil {
		return fmt.Errorf("energy: prepare value upsert: %w", err)
	}
	defer valueStmt.Close()

	start := calendar.YearStart(rec.Year)
	for _, u := range rec.Units {
		if _, err := unitStmt.ExecContext(ctx, u.Code, u.Facility, u.Fueltech, u.CapacityMW); err != nil {
			return fmt.Errorf("energy: upsert unit %s: %w", u.Code, err)
		}
		for i, v := range u.Values {
			var value sql.NullFloat64
			if !math.IsNaN(v) {
				value = sql.NullFloat64{Float64: v, Valid: true}
			}
			if _, err := valueStmt.ExecContext(ctx, u.Code, start.AddDays(i).String(), value); err != nil {
				return fmt.Errorf("energy: upsert %s day %d: %w", u.Code, i, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("energy: commit import %d: %w", rec.Year, err)
	}
	s.log.Info("sqlsource: imported year", "year", rec.Year, "units", len(rec.Units))
	return nil
}
