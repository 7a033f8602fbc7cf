// Package state implements the backing store on SQLite (local and test
// runs) and PostgreSQL (production). Both backends share one SQL
// implementation; queries are written with ? placeholders and rebound
// for Postgres, and date columns are stored as ISO-8601 text so the two
// dialects scan identically.
package state

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// Dialect selects the backing database.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

// SQLStore implements core.Store over database/sql for both dialects.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewSQLiteStore returns an unopened SQLite-backed store.
func NewSQLiteStore(logger *slog.Logger) *SQLStore {
	return newStore(DialectSQLite, logger)
}

// NewPostgresStore returns an unopened Postgres-backed store using the
// pgx stdlib driver.
func NewPostgresStore(logger *slog.Logger) *SQLStore {
	return newStore(DialectPostgres, logger)
}

// NewStore returns an unopened store for the named driver.
func NewStore(driver string, logger *slog.Logger) (*SQLStore, error) {
	switch Dialect(driver) {
	case DialectSQLite:
		return NewSQLiteStore(logger), nil
	case DialectPostgres:
		return NewPostgresStore(logger), nil
	}
	return nil, fmt.Errorf("unsupported store driver: %q", driver)
}

// NewWithDB wraps an already-open database handle. Used by tests that
// inject a mock or a pre-seeded handle.
func NewWithDB(db *sql.DB, dialect Dialect, logger *slog.Logger) *SQLStore {
	s := newStore(dialect, logger)
	s.db = db
	return s
}

func newStore(dialect Dialect, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLStore{dialect: dialect, logger: logger}
}

// Open connects to the database. For SQLite the DSN is a file path or
// ":memory:"; for Postgres it is a connection URL.
func (s *SQLStore) Open(dsn string) error {
	switch s.dialect {
	case DialectSQLite:
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// In-memory databases exist per connection; pin the pool to one.
		if strings.Contains(dsn, ":memory:") {
			db.SetMaxOpenConns(1)
		}
		for _, pragma := range []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 5000",
		} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
		s.db = db

	case DialectPostgres:
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return fmt.Errorf("failed to open postgres database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return fmt.Errorf("failed to ping postgres database: %w", err)
		}
		s.db = db

	default:
		return fmt.Errorf("unsupported store dialect: %q", s.dialect)
	}

	s.logger.Debug("store opened", slog.String("dialect", string(s.dialect)))
	return nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind converts ? placeholders to $n for Postgres. SQLite queries pass
// through untouched. Queries never embed literal question marks.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// placeholders returns "?, ?, ..." for an IN clause of n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func fmtDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return core.Float(v.Float64)
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
