package database

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jgoulah/meterlog/internal/derive"
	"github.com/jgoulah/meterlog/pkg/models"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var (
	// ErrSchemaMismatch means the readings table was created for a different counter set
	ErrSchemaMismatch = errors.New("readings table does not match configured counters (reset required)")
	// ErrMissingValue means a reading lacks a value for a configured counter
	ErrMissingValue = errors.New("missing counter value")
)

// DB wraps the database connection and the counter set its schema was built for
type DB struct {
	conn     *sql.DB
	counters []models.Counter
	loc      *time.Location
	log      *zap.Logger

	skipSchemaCheck bool
}

// Option configures a DB
type Option func(*DB)

// WithLocation sets the time zone for the calendar fields returned by ListAll
func WithLocation(loc *time.Location) Option {
	return func(db *DB) {
		if loc != nil {
			db.loc = loc
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(db *DB) {
		if log != nil {
			db.log = log
		}
	}
}

// WithoutSchemaCheck opens a table whose columns may not match the counters.
// Only Count, Reset and Seed are safe on such a handle; Reset and Seed rebuild the table.
func WithoutSchemaCheck() Option {
	return func(db *DB) {
		db.skipSchemaCheck = true
	}
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
}

// New opens the database file and ensures the readings table exists
func New(dbPath string, counters []models.Counter, opts ...Option) (*DB, error) {
	if len(counters) == 0 {
		return nil, errors.New("at least one counter is required")
	}
	for _, c := range counters {
		if err := models.ValidateColumn(c.Column); err != nil {
			return nil, fmt.Errorf("counter %q: %w", c.Name, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One local user, one writer
	conn.SetMaxOpenConns(1)

	db := &DB{
		conn:     conn,
		counters: counters,
		loc:      time.UTC,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(db)
	}

	ensure := db.EnsureSchema
	if db.skipSchemaCheck {
		ensure = func() error { return db.createTable(db.conn) }
	}
	if err := ensure(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Counters returns the counter set the store was opened with
func (db *DB) Counters() []models.Counter {
	return db.counters
}

// EnsureSchema creates the readings table if it does not exist yet.
// An existing table with a different counter set yields ErrSchemaMismatch.
func (db *DB) EnsureSchema() error {
	return db.ensureSchema(db.conn)
}

func (db *DB) ensureSchema(ex execer) error {
	if err := db.createTable(ex); err != nil {
		return err
	}

	existing, err := tableColumns(ex)
	if err != nil {
		return err
	}

	want := models.Columns(db.counters)
	if !sameColumns(existing, want) {
		return fmt.Errorf("%w: table has %v, config has %v", ErrSchemaMismatch, existing, want)
	}
	return nil
}

func (db *DB) createTable(ex execer) error {
	if _, err := ex.Exec(db.schemaSQL()); err != nil {
		return fmt.Errorf("creating readings table: %w", err)
	}
	return nil
}

func (db *DB) schemaSQL() string {
	var cols strings.Builder
	for _, c := range db.counters {
		fmt.Fprintf(&cols, "\t\t%s REAL NOT NULL,\n", quote(c.Column))
	}

	return `
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rdate INTEGER NOT NULL,
` + cols.String() + `		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_readings_rdate ON readings(rdate);
	`
}

// tableColumns returns the counter columns of the existing readings table
func tableColumns(ex execer) ([]string, error) {
	rows, err := ex.Query(`SELECT name FROM pragma_table_info('readings')`)
	if err != nil {
		return nil, fmt.Errorf("inspecting readings table: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		switch name {
		case "id", "rdate", "created_at":
			continue
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if !set[c] {
			return false
		}
	}
	return true
}

func quote(ident string) string {
	return `"` + ident + `"`
}

// Insert stores a new reading and assigns its ID.
// Every configured counter needs a finite value; timestamps may repeat or arrive out of order.
func (db *DB) Insert(r *models.Reading) (int64, error) {
	if err := db.validate(r.Timestamp, r.Values); err != nil {
		return 0, err
	}

	id, err := db.insert(db.conn, r.Timestamp, r.Values)
	if err != nil {
		return 0, fmt.Errorf("inserting reading: %w", err)
	}
	r.ID = id

	db.log.Debug("reading inserted", zap.Int64("id", id), zap.Int64("rdate", r.Timestamp))
	return id, nil
}

func (db *DB) validate(rdate int64, values map[string]float64) error {
	for _, c := range db.counters {
		v, ok := values[c.Column]
		if !ok {
			return fmt.Errorf("%w: %s (rdate %d)", ErrMissingValue, c.Column, rdate)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid value %v for %s (rdate %d)", v, c.Column, rdate)
		}
	}
	return nil
}

func (db *DB) insert(ex execer, rdate int64, values map[string]float64) (int64, error) {
	cols := []string{"rdate"}
	args := []any{rdate}
	for _, c := range db.counters {
		cols = append(cols, quote(c.Column))
		args = append(args, values[c.Column])
	}
	cols = append(cols, "created_at")
	args = append(args, time.Now().UTC().Format(time.RFC3339))

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf(`INSERT INTO readings (%s) VALUES (%s)`, strings.Join(cols, ", "), placeholders)

	res, err := ex.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListAll retrieves all readings ordered by timestamp, ties by insertion order,
// with calendar fields and gap days filled in
func (db *DB) ListAll() ([]models.Reading, error) {
	cols := []string{"id", "rdate"}
	for _, c := range db.counters {
		cols = append(cols, quote(c.Column))
	}
	query := fmt.Sprintf(`SELECT %s FROM readings ORDER BY rdate ASC, id ASC`, strings.Join(cols, ", "))

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	results := []models.Reading{}
	for rows.Next() {
		var r models.Reading
		values := make([]sql.NullFloat64, len(db.counters))
		dest := []any{&r.ID, &r.Timestamp}
		for i := range values {
			dest = append(dest, &values[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		r.Values = make(map[string]float64, len(db.counters))
		for i, c := range db.counters {
			if values[i].Valid {
				r.Values[c.Column] = values[i].Float64
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	derive.Annotate(results, db.loc)
	return results, nil
}

// Count returns the number of stored readings
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM readings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting readings: %w", err)
	}
	return n, nil
}

// Reset drops and recreates the readings table. There is no undo.
func (db *DB) Reset() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning reset: %w", err)
	}
	defer tx.Rollback()

	if err := db.recreate(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset: %w", err)
	}

	db.log.Info("readings reset")
	return nil
}

func (db *DB) recreate(ex execer) error {
	if _, err := ex.Exec(`DROP TABLE IF EXISTS readings`); err != nil {
		return fmt.Errorf("dropping readings table: %w", err)
	}
	return db.ensureSchema(ex)
}

// Seed replaces all readings with records, inserted in timestamp order.
// Records are validated before anything is dropped, and the replacement runs
// in one transaction, so a failed seed leaves the previous content in place.
func (db *DB) Seed(records []models.Record) error {
	for _, rec := range records {
		if err := db.validate(rec.RDate, rec.Values); err != nil {
			return err
		}
	}

	sorted := make([]models.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RDate < sorted[j].RDate })

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning seed: %w", err)
	}
	defer tx.Rollback()

	if err := db.recreate(tx); err != nil {
		return err
	}
	for _, rec := range sorted {
		if _, err := db.insert(tx, rec.RDate, rec.Values); err != nil {
			return fmt.Errorf("inserting reading (rdate %d): %w", rec.RDate, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}

	db.log.Info("readings seeded", zap.Int("count", len(sorted)))
	return nil
}
