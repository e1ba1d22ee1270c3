package pmtiles

import "errors"

// Sentinel errors returned by Archive operations. Callers should use
// errors.Is against these rather than comparing error strings; every
// wrapping call site attaches %w so the sentinel survives unwrapping.
var (
	// ErrNotFound is returned when a requested tile is absent from the
	// archive (a hole in the tileset, not a malformed archive).
	ErrNotFound = errors.New("pmtiles: tile not found")

	// ErrOutOfBoundsZoom is returned when a requested zoom level falls
	// outside [header.MinZoom, header.MaxZoom], or when z exceeds the
	// maximum addressable zoom.
	ErrOutOfBoundsZoom = errors.New("pmtiles: zoom out of bounds")

	// ErrOutOfBoundsXY is returned when x or y exceeds the tile grid for
	// the requested zoom level.
	ErrOutOfBoundsXY = errors.New("pmtiles: tile coordinates out of bounds")

	// ErrMalformed is returned when archive bytes violate the format's
	// structural invariants: bad magic, unsupported spec version, a
	// directory whose tile ids are not strictly increasing, a leaf
	// pointer whose range escapes the leaf directory region, and so on.
	ErrMalformed = errors.New("pmtiles: malformed archive")

	// ErrUnsupported is returned for recognized-but-unimplemented values,
	// such as a compression id the core has no decoder for.
	ErrUnsupported = errors.New("pmtiles: unsupported")

	// ErrIO wraps a failure from the underlying Fetcher.
	ErrIO = errors.New("pmtiles: io error")

	// ErrCacheSetFailed marks a non-fatal cache write failure. It is
	// never returned to a caller; archive.go records it via Metrics and
	// continues as if the cache were absent for that key.
	ErrCacheSetFailed = errors.New("pmtiles: cache set failed")
)
