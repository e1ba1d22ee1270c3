package pmtiles

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/segmentio/ksuid"
)

const (
	headerOffset    = 0
	headerSizeBytes = 127
)

// Header is the fixed 127-byte PMTiles v3 archive header.
type Header struct {
	// Etag is a version tag for the bytes the header was parsed from. It
	// is the Fetcher's tag when the prefix was just fetched and the
	// backend supplied one (an S3 ETag, an HTTP ETag). Otherwise,
	// including whenever the prefix came from the Cache, it is a freshly
	// generated ksuid, so it differs from one parse to the next. It is
	// never used to derive a cache key and never recomputed from content.
	Etag string

	SpecVersion         uint8
	RootOffset          uint64
	RootLength          uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64
	Clustered           bool
	InternalCompression Compression
	TileCompression     Compression
	TileType            TileType
	MinZoom             uint8
	MaxZoom             uint8
	MinLonE7            int32
	MinLatE7            int32
	MaxLonE7            int32
	MaxLatE7            int32
	CenterZoom          uint8
	CenterLonE7         int32
	CenterLatE7         int32
}

// parseHeader decodes a Header from the exact 127-byte archive prefix.
func parseHeader(d []byte) (Header, error) {
	var h Header
	if len(d) < headerSizeBytes {
		return h, fmt.Errorf("%w: header: need %d bytes, got %d", ErrMalformed, headerSizeBytes, len(d))
	}

	if string(d[0:7]) != "PMTiles" {
		return h, fmt.Errorf("%w: header: bad magic, not a PMTiles archive", ErrMalformed)
	}

	ver, err := headerVersion(d[7])
	if err != nil {
		return h, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	h.SpecVersion = ver

	h.RootOffset = binary.LittleEndian.Uint64(d[8:16])
	h.RootLength = binary.LittleEndian.Uint64(d[16:24])
	h.MetadataOffset = binary.LittleEndian.Uint64(d[24:32])
	h.MetadataLength = binary.LittleEndian.Uint64(d[32:40])
	h.LeafDirectoryOffset = binary.LittleEndian.Uint64(d[40:48])
	h.LeafDirectoryLength = binary.LittleEndian.Uint64(d[48:56])
	h.TileDataOffset = binary.LittleEndian.Uint64(d[56:64])
	h.TileDataLength = binary.LittleEndian.Uint64(d[64:72])
	h.AddressedTilesCount = binary.LittleEndian.Uint64(d[72:80])
	h.TileEntriesCount = binary.LittleEndian.Uint64(d[80:88])
	h.TileContentsCount = binary.LittleEndian.Uint64(d[88:96])

	h.Clustered = d[96] == 0x1
	h.InternalCompression = Compression(d[97])
	h.TileCompression = Compression(d[98])
	h.TileType = TileType(d[99])

	h.MinZoom = d[100]
	h.MaxZoom = d[101]
	h.MinLonE7 = int32(binary.LittleEndian.Uint32(d[102:106]))
	h.MinLatE7 = int32(binary.LittleEndian.Uint32(d[106:110]))
	h.MaxLonE7 = int32(binary.LittleEndian.Uint32(d[110:114]))
	h.MaxLatE7 = int32(binary.LittleEndian.Uint32(d[114:118]))

	h.CenterZoom = d[118]
	h.CenterLonE7 = int32(binary.LittleEndian.Uint32(d[119:123]))
	h.CenterLatE7 = int32(binary.LittleEndian.Uint32(d[123:127]))

	return h, nil
}

func headerVersion(d byte) (uint8, error) {
	switch d {
	case 1, 2:
		return 0, fmt.Errorf("spec version %d is unsupported", d)
	case 3:
		return 3, nil
	default:
		return 0, fmt.Errorf("unknown spec version %d", d)
	}
}

// serializeHeader is the encode-side counterpart of parseHeader. The core
// is read-only and never writes archives; this exists so tests can build
// fixtures in memory without checking in a binary file.
func serializeHeader(h Header) []byte {
	d := make([]byte, headerSizeBytes)
	copy(d[0:7], "PMTiles")
	d[7] = h.SpecVersion

	binary.LittleEndian.PutUint64(d[8:16], h.RootOffset)
	binary.LittleEndian.PutUint64(d[16:24], h.RootLength)
	binary.LittleEndian.PutUint64(d[24:32], h.MetadataOffset)
	binary.LittleEndian.PutUint64(d[32:40], h.MetadataLength)
	binary.LittleEndian.PutUint64(d[40:48], h.LeafDirectoryOffset)
	binary.LittleEndian.PutUint64(d[48:56], h.LeafDirectoryLength)
	binary.LittleEndian.PutUint64(d[56:64], h.TileDataOffset)
	binary.LittleEndian.PutUint64(d[64:72], h.TileDataLength)
	binary.LittleEndian.PutUint64(d[72:80], h.AddressedTilesCount)
	binary.LittleEndian.PutUint64(d[80:88], h.TileEntriesCount)
	binary.LittleEndian.PutUint64(d[88:96], h.TileContentsCount)

	if h.Clustered {
		d[96] = 0x1
	}
	d[97] = byte(h.InternalCompression)
	d[98] = byte(h.TileCompression)
	d[99] = byte(h.TileType)

	d[100] = h.MinZoom
	d[101] = h.MaxZoom
	binary.LittleEndian.PutUint32(d[102:106], uint32(h.MinLonE7))
	binary.LittleEndian.PutUint32(d[106:110], uint32(h.MinLatE7))
	binary.LittleEndian.PutUint32(d[110:114], uint32(h.MaxLonE7))
	binary.LittleEndian.PutUint32(d[114:118], uint32(h.MaxLatE7))

	d[118] = h.CenterZoom
	binary.LittleEndian.PutUint32(d[119:123], uint32(h.CenterLonE7))
	binary.LittleEndian.PutUint32(d[123:127], uint32(h.CenterLatE7))

	return d
}

// readHeader parses the header out of a prefix buffer that is
// at least headerSizeBytes long, assigning a ksuid-derived Etag when the
// fetcher did not supply one.
func readHeader(prefix []byte, tag string) (Header, error) {
	h, err := parseHeader(prefix)
	if err != nil {
		return h, err
	}
	if tag == "" {
		tag = ksuid.New().String()
	}
	h.Etag = tag
	return h, nil
}

func (h Header) String() string {
	b, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return `{"error": "failed to marshal Header"}`
	}
	return string(b)
}
