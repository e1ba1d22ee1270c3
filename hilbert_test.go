package pmtiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZxyToTileIDRoundtrip(t *testing.T) {
	cases := []struct{ z, x, y uint64 }{
		{0, 0, 0},
		{1, 0, 0},
		{1, 1, 1},
		{5, 10, 3},
		{14, 9325, 4732},
		{26, (1 << 26) - 1, (1 << 26) - 1},
	}

	for _, c := range cases {
		id, err := zxyToTileID(c.z, c.x, c.y)
		require.NoError(t, err)

		z, x, y, err := tileIDToZXY(id)
		require.NoError(t, err)
		assert.Equal(t, c.z, z)
		assert.Equal(t, c.x, x)
		assert.Equal(t, c.y, y)
	}
}

func TestZxyToTileIDBounds(t *testing.T) {
	_, err := zxyToTileID(27, 0, 0)
	assert.ErrorIs(t, err, ErrOutOfBoundsZoom)

	_, err = zxyToTileID(3, 8, 0)
	assert.ErrorIs(t, err, ErrOutOfBoundsXY)

	_, err = zxyToTileID(3, 0, 8)
	assert.ErrorIs(t, err, ErrOutOfBoundsXY)
}

func TestFastMatchesReference(t *testing.T) {
	cases := []struct{ z, x, y uint64 }{
		{0, 0, 0},
		{3, 5, 2},
		{10, 205, 342},
		{18, 100000, 200000},
	}

	for _, c := range cases {
		want, err := zxyToTileID(c.z, c.x, c.y)
		require.NoError(t, err)

		got, err := FastZxyToTileID(c.z, c.x, c.y)
		require.NoError(t, err)
		assert.Equal(t, want, got, "fast/reference mismatch for %+v", c)

		wz, wx, wy, err := tileIDToZXY(want)
		require.NoError(t, err)
		fz, fx, fy, err := FastTileIDToZxy(got)
		require.NoError(t, err)
		assert.Equal(t, wz, fz)
		assert.Equal(t, wx, fx)
		assert.Equal(t, wy, fy)
	}
}

func TestZoomForTileID(t *testing.T) {
	for z := uint64(0); z <= 10; z++ {
		id := tilesPerLevel[z]
		assert.Equal(t, z, zoomForTileID(id))
	}
}
