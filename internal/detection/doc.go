// Package detection finds and measures discrete objects in a classification
// mask.
//
// The input is a raster where any nonzero pixel is foreground. Objects are the
// outermost foreground regions: a region enclosed by the hole of another
// region is treated as part of its enclosing object and is not reported
// separately.
//
// # Algorithm Overview
//
//  1. Binarize: every pixel above zero becomes 1
//  2. Border following: Suzuki-Abe tracing with 8-connectivity, keeping only
//     borders whose parent is the image frame
//  3. Simplification: interior points of straight runs are dropped
//  4. Measurement: polygon area and centroid of each contour, then pixel size
//     and reprojection through the geo package
//
// # Degenerate Regions
//
// A single pixel or a one-pixel-wide line encloses no area. Such regions are
// still returned, with zero area and a centroid of (0, 0), so callers see every
// region the mask contains.
//
// # Tile Cleanup
//
// LabelComponents, ClearBorder and RemoveSmallObjects operate on 8-connected
// pixel components. They are used to clean individual prediction tiles before
// merging: objects cut by the tile edge are cleared and speckle below a
// minimum size is dropped.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive Min and exclusive Max
package detection
