// Package geo maps raster pixels to geographic coordinates.
//
// A GeoTransform is the six-coefficient affine model that takes a (column,
// row) pixel position to a coordinate in the source reference system. A
// CRSTransform then reprojects that coordinate to WGS84 latitude/longitude.
// PixelToGeo chains the two.
//
// # Axis Convention
//
// Geographic points are orb.Point values with X = easting or longitude and
// Y = northing or latitude. The affine output follows the same order, and so
// does every reprojection. Only LatLon, the final result, names the axes
// explicitly, which keeps latitude and longitude from being swapped on the way
// through.
//
// # Supported Source Systems
//
//   - EPSG:4326 (WGS84 geographic): no reprojection, CRSTransform is nil
//   - EPSG:3857 and its legacy aliases 900913 and 3785: spherical Web Mercator
//   - EPSG:32601-32660 and 32701-32760: WGS84 / UTM north and south zones
//
// Any other descriptor fails with a *CRSInitializationError. That error stops
// measurement, but callers are expected to keep the mosaic that was produced
// before georeferencing.
//
// # Raster Artifact
//
// WriteGeoreferenced stores an image as a TIFF with an ESRI world file and a
// WGS84 .prj next to it, the sidecar layout GIS tools read without needing
// embedded GeoTIFF tags.
package geo
