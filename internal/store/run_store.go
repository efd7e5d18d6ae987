package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/mosaic-geo/internal/report"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	// StatusGeodeticFailed marks a run whose mosaic was written but whose
	// measurements could not be georeferenced.
	StatusGeodeticFailed = "geodetic_failed"
)

// Run is one archived pipeline run.
type Run struct {
	RunID         string    `json:"run_id"`
	CreatedAt     time.Time `json:"created_at"`
	TilesDir      string    `json:"tiles_dir"`
	CanvasWidth   int       `json:"canvas_width"`
	CanvasHeight  int       `json:"canvas_height"`
	TileCount     int       `json:"tile_count"`
	MergedCount   int       `json:"merged_count"`
	SourceCRS     string    `json:"source_crs"`
	Transform     []float64 `json:"transform,omitempty"` // GDAL order
	ObjectCount   int       `json:"object_count"`
	TotalRealArea float64   `json:"total_real_area"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
}

// Failure is one tile the merge skipped.
type Failure struct {
	TileID  string `json:"tile_id"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// RunStore persists runs with their failures and objects.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore on an open archive.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Archive stores a run with its failures and objects in one transaction.
// An empty RunID is filled with a new UUID; a zero CreatedAt with the
// current time.
func (s *RunStore) Archive(ctx context.Context, run *Run, failures []Failure, objects []report.Record) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusCompleted
	}

	var transform sql.NullString
	if len(run.Transform) > 0 {
		data, err := json.Marshal(run.Transform)
		if err != nil {
			return fmt.Errorf("encode transform: %w", err)
		}
		transform = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, created_at, tiles_dir, canvas_width, canvas_height,
			tile_count, merged_count, source_crs, transform_json,
			object_count, total_real_area, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.CreatedAt.UnixNano(),
		run.TilesDir,
		run.CanvasWidth,
		run.CanvasHeight,
		run.TileCount,
		run.MergedCount,
		run.SourceCRS,
		transform,
		run.ObjectCount,
		run.TotalRealArea,
		run.Status,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, f := range failures {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO merge_failures (run_id, seq, tile_id, reason, message)
			VALUES (?, ?, ?, ?, ?)
		`, run.RunID, i, f.TileID, f.Reason, nullString(f.Message))
		if err != nil {
			return fmt.Errorf("insert failure %s: %w", f.TileID, err)
		}
	}

	for _, o := range objects {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO objects (
				run_id, label, pixel_area, real_area, center_x, center_y,
				center_lat, center_long, min_x, min_y, max_x, max_y
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.RunID, o.Label, o.PixelArea, o.RealArea, o.CenterX, o.CenterY,
			o.CenterLat, o.CenterLong,
			o.Bounds.Min.X, o.Bounds.Min.Y, o.Bounds.Max.X, o.Bounds.Max.Y,
		)
		if err != nil {
			return fmt.Errorf("insert object %d: %w", o.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	return nil
}

const runColumns = `
	run_id, created_at, tiles_dir, canvas_width, canvas_height,
	tile_count, merged_count, source_crs, transform_json,
	object_count, total_real_area, status, error`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	r := &Run{}
	var createdAt int64
	var transform, runErr sql.NullString

	err := row.Scan(
		&r.RunID, &createdAt, &r.TilesDir, &r.CanvasWidth, &r.CanvasHeight,
		&r.TileCount, &r.MergedCount, &r.SourceCRS, &transform,
		&r.ObjectCount, &r.TotalRealArea, &r.Status, &runErr,
	)
	if err != nil {
		return nil, err
	}

	r.CreatedAt = time.Unix(0, createdAt)
	if transform.Valid {
		if err := json.Unmarshal([]byte(transform.String), &r.Transform); err != nil {
			return nil, fmt.Errorf("decode transform of run %s: %w", r.RunID, err)
		}
	}
	if runErr.Valid {
		r.Error = runErr.String
	}
	return r, nil
}

// GetRun returns the run with the given ID, or sql.ErrNoRows.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// ListRuns returns up to limit runs, newest first. A limit of 0 or less
// returns every run.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListFailures returns the failures of a run in merge order.
func (s *RunStore) ListFailures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tile_id, reason, message
		FROM merge_failures
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var f Failure
		var msg sql.NullString
		if err := rows.Scan(&f.TileID, &f.Reason, &msg); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Message = msg.String
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// ListObjects returns the objects of a run ordered by label. Contours are
// not archived.
func (s *RunStore) ListObjects(ctx context.Context, runID string) ([]report.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, pixel_area, real_area, center_x, center_y,
		       center_lat, center_long, min_x, min_y, max_x, max_y
		FROM objects
		WHERE run_id = ?
		ORDER BY label
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	var records []report.Record
	for rows.Next() {
		var r report.Record
		var b image.Rectangle
		err := rows.Scan(
			&r.Label, &r.PixelArea, &r.RealArea, &r.CenterX, &r.CenterY,
			&r.CenterLat, &r.CenterLong,
			&b.Min.X, &b.Min.Y, &b.Max.X, &b.Max.Y,
		)
		if err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		r.Bounds = b
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteRun removes a run with its failures and objects. It returns
// sql.ErrNoRows when the run does not exist.
func (s *RunStore) DeleteRun(ctx context.Context, runID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
