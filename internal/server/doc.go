// Package server implements the MCP (Model Context Protocol) server for the
// tile mosaic and georeferencing tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load an image and count its foreground pixels
//   - image_dimensions: Get width and height
//
// Tiling and Merging:
//   - tiles_split: Cut a scene into overlapping named tiles
//   - mosaic_merge: Merge classified tiles into one mask
//
// Georeferencing:
//   - geo_affine: Build the pixel-to-ground transform from corners
//   - geo_pixel_to_geo: Convert pixels to latitude/longitude
//   - mosaic_georeference: Write a .tif with world and projection files
//
// Measurement:
//   - objects_measure: Area and centroid of every object, with optional
//     CSV, GeoJSON and labeled-image output
//
// Pipeline:
//   - pipeline_run: Merge, georeference and measure from a YAML config
//   - runs_list: Browse runs archived in SQLite
//
// # Image Caching
//
// Images are cached by path for the lifetime of the server. Tools that write
// an image evict its path so a later load sees the new file.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string as data. A pipeline run whose reference
// system cannot be built still succeeds, with the error in geodetic_error.
//
// # Usage
//
//	srv := server.New()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
