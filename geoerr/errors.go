// Package geoerr defines the error taxonomy shared by the hull builder,
// Delaunay extraction, binary codec, tiler and query engine: DegenerateInput,
// CorruptBinary, ManifestMismatch and IOError are returned as values;
// InternalInvariant violations panic, since they indicate a programmer error
// rather than a recoverable condition.
package geoerr

import "errors"

// ErrDegenerateInput is returned when a point set has fewer than four points,
// or all points are coincident, collinear, or coplanar.
var ErrDegenerateInput = errors.New("degenerate input: no non-coplanar seed found")

// ErrCorruptBinary is returned by the binary codec when a header, offset, or
// UTF-8 section fails validation.
var ErrCorruptBinary = errors.New("corrupt binary tile data")

// ErrManifestMismatch is returned when a decoded tile's hash does not match
// its manifest entry. Treated as a CorruptBinary condition by callers.
var ErrManifestMismatch = errors.New("tile hash does not match manifest entry")

// Invariant panics with a diagnostic identifying which invariant failed.
// Used for conditions that, under correct geometric invariants, can never
// occur: adjacency symmetry broken mid-insertion, a half-edge twin missing
// when one is expected, or orient3D disagreeing with BFS classification.
func Invariant(name string, detail string) {
	panic("geotiles: internal invariant violated (" + name + "): " + detail)
}
