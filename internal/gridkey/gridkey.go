// Package gridkey parses tile identifiers into grid offsets and defines the
// order in which tiles are merged.
//
// A tile identifier has the form "<prefix>_<x>_<y>", where x is the column
// offset and y the row offset of the tile's top-left pixel in the canvas.
// File names carry the same identifier followed by an extension, for example
// "tile_512_768.npy".
package gridkey

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedIdentifier is matched by every *MalformedIdentifierError.
var ErrMalformedIdentifier = errors.New("malformed tile identifier")

// MalformedIdentifierError reports an identifier that does not end in exactly
// two non-negative integer components.
type MalformedIdentifierError struct {
	ID     string
	Reason string
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("malformed tile identifier %q: %s", e.ID, e.Reason)
}

// Is lets errors.Is match ErrMalformedIdentifier.
func (e *MalformedIdentifierError) Is(target error) bool {
	return target == ErrMalformedIdentifier
}

// Key is the parsed form of a tile identifier.
type Key struct {
	// ID is the identifier exactly as parsed (no directory, no extension).
	ID string `json:"id"`

	// Prefix is everything before the two offset components.
	Prefix string `json:"prefix"`

	// X is the column offset in canvas pixels.
	X int `json:"x"`

	// Y is the row offset in canvas pixels.
	Y int `json:"y"`
}

// String returns the identifier.
func (k Key) String() string {
	return k.ID
}

// Parse extracts the grid offset from an identifier of the form
// "<prefix>_<x>_<y>".
//
// The prefix must be non-empty and its last component must not itself be an
// integer, so "tile_1_2_3" is rejected rather than silently read as offset
// (2, 3). Offsets must be plain decimal digits; signs are not accepted.
func Parse(id string) (Key, error) {
	parts := strings.Split(id, "_")
	if len(parts) < 3 {
		return Key{}, &MalformedIdentifierError{ID: id, Reason: "expected <prefix>_<x>_<y>"}
	}

	n := len(parts)
	x, ok := parseOffset(parts[n-2])
	if !ok {
		return Key{}, &MalformedIdentifierError{ID: id, Reason: fmt.Sprintf("x offset %q is not a non-negative integer", parts[n-2])}
	}
	y, ok := parseOffset(parts[n-1])
	if !ok {
		return Key{}, &MalformedIdentifierError{ID: id, Reason: fmt.Sprintf("y offset %q is not a non-negative integer", parts[n-1])}
	}

	prefix := strings.Join(parts[:n-2], "_")
	if prefix == "" {
		return Key{}, &MalformedIdentifierError{ID: id, Reason: "empty prefix"}
	}
	if _, ok := parseOffset(parts[n-3]); ok {
		return Key{}, &MalformedIdentifierError{ID: id, Reason: "more than two trailing integer components"}
	}

	return Key{ID: id, Prefix: prefix, X: x, Y: y}, nil
}

// ParseFilename strips any directory and extension from name and parses the
// remainder with Parse.
func ParseFilename(name string) (Key, error) {
	base := filepath.Base(name)
	return Parse(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Less reports whether a sorts before b: ascending X, then Y, then ID.
func Less(a, b Key) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.ID < b.ID
}

// Sort orders items in merge order by the key of each item. The sort is
// stable.
func Sort[T any](items []T, key func(T) Key) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(key(items[i]), key(items[j]))
	})
}

// parseOffset accepts only ASCII digits so that "+3" and "-3" are rejected.
func parseOffset(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
