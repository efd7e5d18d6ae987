// Package store archives pipeline runs in SQLite.
//
// Each run gets one row in runs, one row per failed tile in merge_failures
// and one row per measured object in objects. Child rows are removed with
// their run.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	created_at      INTEGER NOT NULL,
	tiles_dir       TEXT NOT NULL,
	canvas_width    INTEGER NOT NULL,
	canvas_height   INTEGER NOT NULL,
	tile_count      INTEGER NOT NULL,
	merged_count    INTEGER NOT NULL,
	source_crs      TEXT NOT NULL,
	transform_json  TEXT,
	object_count    INTEGER NOT NULL DEFAULT 0,
	total_real_area REAL NOT NULL DEFAULT 0,
	status          TEXT NOT NULL,
	error           TEXT
);

CREATE TABLE IF NOT EXISTS merge_failures (
	run_id  TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	seq     INTEGER NOT NULL,
	tile_id TEXT NOT NULL,
	reason  TEXT NOT NULL,
	message TEXT,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS objects (
	run_id      TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	label       INTEGER NOT NULL,
	pixel_area  REAL NOT NULL,
	real_area   REAL NOT NULL,
	center_x    INTEGER NOT NULL,
	center_y    INTEGER NOT NULL,
	center_lat  REAL NOT NULL,
	center_long REAL NOT NULL,
	min_x       INTEGER NOT NULL,
	min_y       INTEGER NOT NULL,
	max_x       INTEGER NOT NULL,
	max_y       INTEGER NOT NULL,
	PRIMARY KEY (run_id, label)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Open opens (creating if needed) the archive at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// A single connection keeps ":memory:" databases and foreign_keys
	// consistent across calls.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
