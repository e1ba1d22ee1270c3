package pmtiles

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the byte-level encoding of the metadata blob and
// of each tile's content. Unknown is a legal, intentional value: archives
// predating the compression field pass through bytes unmodified rather
// than failing.
type Compression uint8

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionGzip
	CompressionBrotli
	CompressionZstd
)

var compressionNames = map[Compression]string{
	CompressionUnknown: "unknown",
	CompressionNone:    "none",
	CompressionGzip:    "gzip",
	CompressionBrotli:  "brotli",
	CompressionZstd:    "zstd",
}

func (c Compression) String() string {
	if s, ok := compressionNames[c]; ok {
		return s
	}
	return compressionNames[CompressionUnknown]
}

func (c Compression) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// DecompressFunc decodes r according to compression. It is a function type
// rather than an interface so callers can swap in their own codec for a
// compression variant the core doesn't otherwise know about, or wrap the
// default with instrumentation.
type DecompressFunc = func(r io.Reader, compression Compression) (io.ReadCloser, error)

// Decompress is the default DecompressFunc. Unknown and None pass the
// reader through unmodified — per the format, Unknown exists for archives
// that predate the compression field and must not be rejected.
func Decompress(r io.Reader, compression Compression) (io.ReadCloser, error) {
	switch compression {
	case CompressionNone, CompressionUnknown:
		return io.NopCloser(r), nil

	case CompressionGzip:
		if _, ok := r.(io.ByteReader); !ok {
			r = bufio.NewReader(r)
		}
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrMalformed, err)
		}
		return gr, nil

	case CompressionBrotli:
		return io.NopCloser(brotli.NewReader(r)), nil

	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrMalformed, err)
		}
		return zr.IOReadCloser(), nil

	default:
		return nil, fmt.Errorf("%w: compression id %d", ErrUnsupported, compression)
	}
}

// decompressAll runs Decompress and drains the result, for the common case
// of a fully-buffered tile or metadata blob.
func decompressAll(data []byte, compression Compression, decompress DecompressFunc) ([]byte, error) {
	rc, err := decompress(bytes.NewReader(data), compression)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	out, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing: %v", ErrMalformed, err)
	}
	return out, nil
}
