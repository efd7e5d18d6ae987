// Package pipeline runs the whole tile-to-report workflow from a config.Config.
//
// # Stages
//
// Run executes, in order:
//
//  1. Load every tile in tiles.dir. Unparseable or undecodable files become
//     merge failures instead of aborting the run.
//  2. Optionally clean each tile (threshold, clear border, drop small
//     objects) when preprocess.enabled is set.
//  3. Merge the tiles into a tiles.width × tiles.height canvas and write the
//     mosaic PNG and the failure log.
//  4. Build the pixel-to-ground transform from the georef corners and the
//     reprojection for georef.source_crs.
//  5. Write the georeferenced raster, extract objects and write the CSV,
//     GeoJSON and labeled overview. Archive the run to SQLite when
//     output.database is set.
//
// A failure in stage 4 or a reprojection failure in stage 5 is returned as a
// *GeodeticError together with a non-nil Result: the mosaic and the failure
// log are already on disk and described by the Result.
//
// Split is the separate preparation step that cuts a large image into the
// tiles a classifier consumes.
//
// # Logging
//
// Stages log through the standard logger when MOSAIC_GEO_LOG_LEVEL=debug.
package pipeline
