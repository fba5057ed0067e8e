// Package history journals successful generations in SQLite so past prompts
// and seeds can be listed and reproduced.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"hdi1d/pkg/types"
)

const schemaVersion = 1

// DefaultLimit caps List when the caller passes a non-positive limit.
const DefaultLimit = 50

// Store wraps the SQLite connection. SQLite serializes writers itself, so
// the store needs no application-level lock.
type Store struct {
	conn *sql.DB
}

// Open opens (and creates if missing) the journal at path. ":memory:" is
// accepted for tests.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: empty database path")
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{conn: conn}
	if err := s.init(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		schema_version INTEGER NOT NULL DEFAULT %d
	);
	INSERT OR IGNORE INTO meta (id) VALUES (1);

	CREATE TABLE IF NOT EXISTS generations (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		variant TEXT NOT NULL,
		prompt TEXT NOT NULL,
		seed INTEGER NOT NULL,
		scheduler TEXT NOT NULL,
		guidance_scale REAL NOT NULL,
		steps INTEGER NOT NULL,
		shift REAL NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		format TEXT NOT NULL,
		saved_path TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
	`, schemaVersion)
	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	_, _ = s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
	return s.conn.Close()
}

// Record inserts one entry. Entries are immutable; a duplicate id is an error.
func (s *Store) Record(ctx context.Context, e types.HistoryEntry) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO generations (id, created_at, variant, prompt, seed, scheduler, guidance_scale,
			steps, shift, width, height, format, saved_path, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAtUnix, e.Variant, e.Prompt, e.Seed, e.Scheduler, e.GuidanceScale,
		e.Steps, e.Shift, e.Width, e.Height, e.Format, e.SavedPath, e.DurationMS)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.ID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. A non-empty variant
// filters by variant id.
func (s *Store) List(ctx context.Context, variant string, limit int) ([]types.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := `SELECT id, created_at, variant, prompt, seed, scheduler, guidance_scale, steps, shift,
		width, height, format, saved_path, duration_ms FROM generations`
	args := []any{}
	if variant != "" {
		q += ` WHERE variant = ?`
		args = append(args, variant)
	}
	q += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()
	out := []types.HistoryEntry{}
	for rows.Next() {
		var e types.HistoryEntry
		if err := rows.Scan(&e.ID, &e.CreatedAtUnix, &e.Variant, &e.Prompt, &e.Seed, &e.Scheduler,
			&e.GuidanceScale, &e.Steps, &e.Shift, &e.Width, &e.Height, &e.Format, &e.SavedPath, &e.DurationMS); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns one entry by id.
func (s *Store) Get(ctx context.Context, id string) (types.HistoryEntry, bool, error) {
	var e types.HistoryEntry
	err := s.conn.QueryRowContext(ctx, `SELECT id, created_at, variant, prompt, seed, scheduler, guidance_scale,
		steps, shift, width, height, format, saved_path, duration_ms FROM generations WHERE id = ?`, id).
		Scan(&e.ID, &e.CreatedAtUnix, &e.Variant, &e.Prompt, &e.Seed, &e.Scheduler,
			&e.GuidanceScale, &e.Steps, &e.Shift, &e.Width, &e.Height, &e.Format, &e.SavedPath, &e.DurationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return types.HistoryEntry{}, false, nil
	}
	if err != nil {
		return types.HistoryEntry{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	return e, true, nil
}

// Count returns the number of journaled generations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&n)
	return n, err
}
