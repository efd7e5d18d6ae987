package mosaic

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/mosaic-geo/internal/gridkey"
)

// FailureReason classifies a MergeFailure.
type FailureReason string

const (
	// ReasonGeometryMismatch means the tile window runs outside the canvas.
	ReasonGeometryMismatch FailureReason = "geometry_mismatch"

	// ReasonMalformedIdentifier means the tile name could not be parsed.
	ReasonMalformedIdentifier FailureReason = "malformed_identifier"

	// ReasonUnreadable means the tile file could not be decoded.
	ReasonUnreadable FailureReason = "unreadable"
)

// MergeFailure records a tile that was not written into the canvas.
type MergeFailure struct {
	TileID string        `json:"tile_id"`
	Reason FailureReason `json:"reason"`
	Err    error         `json:"-"`
}

// Message returns the underlying error text, or the reason when there is none.
func (f MergeFailure) Message() string {
	if f.Err != nil {
		return f.Err.Error()
	}
	return string(f.Reason)
}

// MergeResult is the outcome of a merge run.
type MergeResult struct {
	// Canvas is the merged raster. Never nil for a completed merge.
	Canvas *Canvas

	// Failures lists skipped tiles in processing order.
	Failures []MergeFailure

	// Merged counts tiles that were applied to the canvas.
	Merged int
}

// Merge folds tiles into a width×height canvas.
//
// Tiles are applied in gridkey order regardless of the order of the input
// slice. Merge never fails as a whole: tiles that do not fit the canvas are
// recorded in Failures and skipped.
//
// # Example
//
//	res := mosaic.Merge(tiles, 4849, 6937)
//	for _, f := range res.Failures {
//	    log.Printf("skipped %s: %s", f.TileID, f.Message())
//	}
func Merge(tiles []Tile, width, height int) *MergeResult {
	// A background context is never cancelled, so err is always nil.
	res, _ := MergeContext(context.Background(), tiles, width, height)
	return res
}

// MergeContext is Merge with cancellation checked between tiles.
//
// On cancellation the partially written canvas is discarded and ctx.Err() is
// returned with a nil result.
func MergeContext(ctx context.Context, tiles []Tile, width, height int) (*MergeResult, error) {
	canvas := NewCanvas(width, height)
	res := &MergeResult{Canvas: canvas}

	for _, t := range ordered(tiles) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !canvas.Fits(t.Key.X, t.Key.Y, t.Width, t.Height) {
			res.Failures = append(res.Failures, mismatch(t, canvas))
			continue
		}
		canvas.apply(t, 0, canvas.Height)
		res.Merged++
	}

	return res, nil
}

// MergeParallel produces the same canvas as Merge using up to workers
// goroutines, each owning a disjoint band of canvas rows.
//
// Failures are decided once, before any writes, in gridkey order. Every band
// then replays the fitting tiles in that same order, so first-writer-wins is
// preserved exactly. workers < 1 is treated as 1.
func MergeParallel(ctx context.Context, tiles []Tile, width, height, workers int) (*MergeResult, error) {
	canvas := NewCanvas(width, height)
	res := &MergeResult{Canvas: canvas}

	var fitting []Tile
	for _, t := range ordered(tiles) {
		if !canvas.Fits(t.Key.X, t.Key.Y, t.Width, t.Height) {
			res.Failures = append(res.Failures, mismatch(t, canvas))
			continue
		}
		fitting = append(fitting, t)
	}
	res.Merged = len(fitting)

	if workers < 1 {
		workers = 1
	}
	if workers > canvas.Height && canvas.Height > 0 {
		workers = canvas.Height
	}
	band := canvas.Height
	if workers > 1 {
		band = (canvas.Height + workers - 1) / workers
	}

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < canvas.Height; lo += band {
		lo := lo
		hi := min(lo+band, canvas.Height)
		g.Go(func() error {
			for _, t := range fitting {
				if err := gctx.Err(); err != nil {
					return err
				}
				if t.Key.Y+t.Height <= lo || t.Key.Y >= hi {
					continue
				}
				canvas.apply(t, lo, hi)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return res, nil
}

// apply writes t into rows [rowMin, rowMax) of the canvas using the overlap
// rule. The caller has already checked that t fits.
func (c *Canvas) apply(t Tile, rowMin, rowMax int) {
	r0 := max(t.Key.Y, rowMin)
	r1 := min(t.Key.Y+t.Height, rowMax)
	for row := r0; row < r1; row++ {
		srcOff := (row - t.Key.Y) * t.Width
		src := t.Pix[srcOff : srcOff+t.Width]
		dstOff := row*c.Width + t.Key.X
		dst := c.Pix[dstOff : dstOff+t.Width]
		for i, v := range src {
			if v != 0 && dst[i] == 0 {
				dst[i] = v
			}
		}
	}
}

func mismatch(t Tile, c *Canvas) MergeFailure {
	return MergeFailure{
		TileID: t.Key.ID,
		Reason: ReasonGeometryMismatch,
		Err: &GeometryMismatchError{
			TileID:       t.Key.ID,
			X:            t.Key.X,
			Y:            t.Key.Y,
			Width:        t.Width,
			Height:       t.Height,
			CanvasWidth:  c.Width,
			CanvasHeight: c.Height,
		},
	}
}

// ordered returns a copy of tiles sorted by gridkey order.
func ordered(tiles []Tile) []Tile {
	out := make([]Tile, len(tiles))
	copy(out, tiles)
	gridkey.Sort(out, tileKey)
	return out
}

func tileKey(t Tile) gridkey.Key { return t.Key }
