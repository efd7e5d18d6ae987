// Package imaging provides the raster helpers around the mosaic pipeline.
//
// It covers the image work that is not merging or measurement itself:
// decoding and caching rasters for the tool server, cutting a large scene into
// overlapping tiles, thresholding prediction tiles into masks, and drawing
// labeled bounding boxes for the measurement report.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive and Max is exclusive
//
// # Tile Names
//
// SplitTiles names each tile "<prefix>_<x>_<y>.png" after its origin in the
// source image. Those are the identifiers the mosaic package parses when the
// classified tiles are merged back.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Every other function is
// stateless and returns new images rather than modifying its input.
package imaging
