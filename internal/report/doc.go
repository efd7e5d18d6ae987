// Package report turns measured objects into the artifacts users read: a CSV
// table, a GeoJSON layer, summary statistics and a labeled image.
//
// Objects are numbered 1..N in the order the detection package returned them.
// The same label is used in every artifact, so row 7 of the CSV, feature 7 of
// the GeoJSON and the box marked "7" in the labeled image describe the same
// object.
package report
