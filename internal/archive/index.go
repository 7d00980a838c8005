package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"voxeldestruct/internal/destruction"
)

// ErrNotIndexed is returned by Lookup for unknown event ids.
var ErrNotIndexed = errors.New("archive: event not indexed")

// Index is a SQLite table of completed events and their phase timelines.
type Index struct {
	db *sql.DB
}

func OpenIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty index path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			world_id TEXT NOT NULL,
			type TEXT NOT NULL,
			force REAL NOT NULL,
			radius REAL NOT NULL,
			epicenter_x REAL NOT NULL,
			epicenter_y REAL NOT NULL,
			epicenter_z REAL NOT NULL,
			affected INTEGER NOT NULL,
			debris INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS events_world ON events(world_id, started_at);`,
		`CREATE TABLE IF NOT EXISTS event_phases (
			event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			phase TEXT NOT NULL,
			at TEXT NOT NULL,
			PRIMARY KEY(event_id, seq)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts or replaces an event and its phase history.
func (x *Index) Record(ctx context.Context, rec destruction.EventRecord) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_phases WHERE event_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("clear phases %s: %w", rec.ID, err)
	}
	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO events
		(id, world_id, type, force, radius, epicenter_x, epicenter_y, epicenter_z, affected, debris, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WorldID, rec.Type.String(), rec.Force, rec.Radius,
		rec.Epicenter[0], rec.Epicenter[1], rec.Epicenter[2],
		rec.Affected, rec.Debris, formatTime(rec.StartedAt), formatTime(rec.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert event %s: %w", rec.ID, err)
	}
	for seq, tr := range rec.Phases {
		if _, err := tx.ExecContext(ctx, `INSERT INTO event_phases(event_id, seq, phase, at) VALUES (?, ?, ?, ?)`,
			rec.ID, seq, tr.Phase.String(), formatTime(tr.At)); err != nil {
			return fmt.Errorf("insert phase %s/%d: %w", rec.ID, seq, err)
		}
	}
	return tx.Commit()
}

const eventColumns = `id, world_id, type, force, radius, epicenter_x, epicenter_y, epicenter_z, affected, debris, started_at, completed_at`

func (x *Index) Lookup(ctx context.Context, id string) (destruction.EventRecord, error) {
	row := x.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	rec, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return destruction.EventRecord{}, fmt.Errorf("%s: %w", id, ErrNotIndexed)
	}
	if err != nil {
		return destruction.EventRecord{}, err
	}
	rec.Phases, err = x.phases(ctx, id)
	return rec, err
}

// ListByWorld returns a world's events ordered by start time, then id.
func (x *Index) ListByWorld(ctx context.Context, worldID string) ([]destruction.EventRecord, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE world_id = ? ORDER BY started_at, id`, worldID)
	if err != nil {
		return nil, err
	}
	var out []destruction.EventRecord
	for rows.Next() {
		rec, err := scanEvent(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Phases, err = x.phases(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Count reports how many events are indexed.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

func (x *Index) phases(ctx context.Context, id string) ([]destruction.PhaseTransition, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT phase, at FROM event_phases WHERE event_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []destruction.PhaseTransition
	for rows.Next() {
		var phase, at string
		if err := rows.Scan(&phase, &at); err != nil {
			return nil, err
		}
		var tr destruction.PhaseTransition
		if err := tr.Phase.UnmarshalText([]byte(phase)); err != nil {
			return nil, fmt.Errorf("event %s: %w", id, err)
		}
		if tr.At, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("event %s: %w", id, err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (destruction.EventRecord, error) {
	var (
		rec                destruction.EventRecord
		kind               string
		force, radius      float64
		ex, ey, ez         float64
		started, completed string
	)
	if err := row.Scan(&rec.ID, &rec.WorldID, &kind, &force, &radius, &ex, &ey, &ez,
		&rec.Affected, &rec.Debris, &started, &completed); err != nil {
		return rec, err
	}
	var err error
	if rec.Type, err = destruction.ParseDestructionType(kind); err != nil {
		return rec, fmt.Errorf("event %s: %w", rec.ID, err)
	}
	rec.Force = float32(force)
	rec.Radius = float32(radius)
	rec.Epicenter = [3]float32{float32(ex), float32(ey), float32(ez)}
	if rec.StartedAt, err = parseTime(started); err != nil {
		return rec, fmt.Errorf("event %s: %w", rec.ID, err)
	}
	if rec.CompletedAt, err = parseTime(completed); err != nil {
		return rec, fmt.Errorf("event %s: %w", rec.ID, err)
	}
	return rec, nil
}

// timeLayout keeps every fraction digit so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func (x *Index) Close() error {
	return x.db.Close()
}
