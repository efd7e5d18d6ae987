// Package mosaic reconstructs a full-resolution classification mask from
// overlapping tiles.
//
// Each tile is a small 2-D array of class values (0 = background, nonzero =
// foreground) positioned at a grid offset in a larger canvas. Merge folds the
// tiles into the canvas in gridkey order and reports the tiles that could not
// be placed.
//
// # Overlap Rule
//
// A tile value is written only where the canvas is still background and the
// tile value is foreground. Foreground already on the canvas is never
// overwritten, so tiles that agree on "is this pixel foreground" can be applied
// in any order with the same result. Where tiles disagree on the class value of
// a foreground pixel, the first tile in gridkey order wins.
//
// # Failures
//
// Merging never aborts because of a single tile. A tile whose window would run
// past the canvas edge is recorded as a MergeFailure and skipped; the canvas is
// left untouched at that tile's location. LoadTiles applies the same policy to
// files whose names cannot be parsed or whose contents cannot be decoded.
//
// # Concurrency
//
// Merge and MergeContext are single-threaded. MergeParallel splits the canvas
// into disjoint horizontal bands and gives each band to one goroutine; every
// band replays the full ordered tile sequence clipped to its rows, which keeps
// the result identical to Merge. A cancelled merge returns no canvas at all
// rather than a partially written one.
//
// # Coordinate System
//
// Offsets are (x, y) = (column, row) of the tile's top-left pixel. A tile of
// width w and height h covers columns [x, x+w) and rows [y, y+h).
package mosaic
