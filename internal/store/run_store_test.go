package store

import (
	"context"
	"database/sql"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/mosaic-geo/internal/report"
)

func setupTestStore(t *testing.T) *RunStore {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunStore(db)
}

func sampleRecords() []report.Record {
	return []report.Record{
		{Label: 1, PixelArea: 4, RealArea: 16, CenterX: 2, CenterY: 2, CenterLat: 12.5, CenterLong: 77.25, Bounds: image.Rect(1, 1, 4, 4)},
		{Label: 2, PixelArea: 0, RealArea: 0, CenterX: 0, CenterY: 0, CenterLat: 13, CenterLong: 77, Bounds: image.Rect(6, 0, 7, 1)},
	}
}

func TestRunStore_ArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	run := &Run{
		TilesDir:      "/data/tiles",
		CanvasWidth:   100,
		CanvasHeight:  50,
		TileCount:     5,
		MergedCount:   3,
		SourceCRS:     "EPSG:4326",
		Transform:     []float64{77, 0.25, 0, 13, 0, -0.25},
		ObjectCount:   2,
		TotalRealArea: 16,
	}
	failures := []Failure{
		{TileID: "tile_x_0", Reason: "malformed_identifier", Message: "bad name"},
		{TileID: "tile_99_0", Reason: "geometry_mismatch"},
	}

	require.NoError(t, s.Archive(ctx, run, failures, sampleRecords()))
	require.NotEmpty(t, run.RunID, "run id should be generated")
	assert.Equal(t, StatusCompleted, run.Status)

	got, err := s.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, run.CreatedAt.UnixNano(), got.CreatedAt.UnixNano())
	assert.Equal(t, run.Transform, got.Transform)
	assert.Equal(t, 3, got.MergedCount)
	assert.Empty(t, got.Error)

	gotFailures, err := s.ListFailures(ctx, run.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(failures, gotFailures); diff != "" {
		t.Errorf("failures mismatch (-want +got):\n%s", diff)
	}

	gotObjects, err := s.ListObjects(ctx, run.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleRecords(), gotObjects); diff != "" {
		t.Errorf("objects mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStore_GeodeticFailure(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	run := &Run{
		RunID:     "run-1",
		SourceCRS: "EPSG:1234",
		Status:    StatusGeodeticFailed,
		Error:     "unsupported CRS",
	}
	require.NoError(t, s.Archive(ctx, run, nil, nil))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusGeodeticFailed, got.Status)
	assert.Equal(t, "unsupported CRS", got.Error)
	assert.Nil(t, got.Transform)

	objects, err := s.ListObjects(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestRunStore_DuplicateRunRollsBack(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	require.NoError(t, s.Archive(ctx, &Run{RunID: "dup"}, nil, nil))
	err := s.Archive(ctx, &Run{RunID: "dup"}, []Failure{{TileID: "a", Reason: "unreadable"}}, nil)
	require.Error(t, err)

	failures, err := s.ListFailures(ctx, "dup")
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestRunStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		run := &Run{RunID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, s.Archive(ctx, run, nil, sampleRecords()))
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].RunID)
	assert.Equal(t, "old", runs[2].RunID)

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	require.NoError(t, s.DeleteRun(ctx, "mid"))
	_, err = s.GetRun(ctx, "mid")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	objects, err := s.ListObjects(ctx, "mid")
	require.NoError(t, err)
	assert.Empty(t, objects, "objects are removed with their run")

	assert.ErrorIs(t, s.DeleteRun(ctx, "mid"), sql.ErrNoRows)
}
