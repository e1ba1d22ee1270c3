// Lookup-table based Hilbert encode/decode, based on a discussion in
// https://github.com/protomaps/PMTiles/issues/393. Cross-checked against
// the iterative reference implementation in hilbert.go by hilbert_test.go.
package pmtiles

import "fmt"

// FastZxyToTileID is a lookup-table variant of zxyToTileID. It trades the
// per-level rotate() branch for two small constant tables, which matters
// when an archive access path needs to convert many coordinates quickly
// (e.g. enumerating a directory's tile range).
func FastZxyToTileID(z, x, y uint64) (uint64, error) {
	if z > 31 {
		return 0, fmt.Errorf("%w: zoom %d exceeds 64-bit limit", ErrOutOfBoundsZoom, z)
	}
	if x >= uint64(1)<<z || y >= uint64(1)<<z {
		return 0, fmt.Errorf("%w: x/y (%d/%d) outside grid for zoom %d", ErrOutOfBoundsXY, x, y, z)
	}

	prefix := (uint64(1)<<(2*z) - 1) / 3

	var state, result uint64
	const lutDelta = 0x361E9CB4
	const lutState = 0x8FE65831

	for i := z; i > 0; i-- {
		shift := i - 1
		row := (state << 3) | ((x>>shift)&1)<<2 | ((y>>shift)&1)<<1
		result = (result << 2) | ((lutDelta >> row) & 3)
		state = (lutState >> row) & 3
	}

	return prefix + result, nil
}

// FastTileIDToZxy is the inverse of FastZxyToTileID.
func FastTileIDToZxy(id uint64) (z, x, y uint64, err error) {
	if id >= invalidTileID {
		return 0, 0, 0, fmt.Errorf("%w: tile id %d exceeds addressable range", ErrMalformed, id)
	}

	for z < 31 && (uint64(1)<<(2*(z+1))) <= 3*id+1 {
		z++
	}

	prefix := (uint64(1)<<(2*z) - 1) / 3
	code := id - prefix

	var state uint64
	const lutX = 0x936C
	const lutY = 0x39C6
	const lutState = 0x3E6B94C1

	for i := 2 * z; i > 0; i -= 2 {
		shift := i - 2
		codeBits := (code >> shift) & 3
		row := (state << 2) | codeBits
		x = (x << 1) | ((lutX >> row) & 1)
		y = (y << 1) | ((lutY >> row) & 1)
		state = (lutState >> (2 * row)) & 3
	}

	return z, x, y, nil
}
