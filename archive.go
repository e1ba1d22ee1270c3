package pmtiles

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/brunomvsouza/singleflight"
)

// PrefixSize is the number of leading archive bytes get_headers fetches
// and caches in one shot: large enough to contain the 127-byte header
// plus the root directory for any PMTiles v3 archive, by construction of
// the format (§4.7 step 1).
const PrefixSize = 16384

// MaxLeafDepth bounds how many leaf-directory hops get_tile will follow
// before giving up, per §4.7 step 5.
const MaxLeafDepth = 4

// ArchiveOption configures an Archive at construction time.
type ArchiveOption func(*Archive)

// WithCache attaches a Cache collaborator. The default is NoopCache.
func WithCache(c Cache) ArchiveOption {
	return func(a *Archive) { a.cache = c }
}

// WithMetrics attaches internal instrumentation. The default is nil,
// meaning no metrics are recorded.
func WithMetrics(m *Metrics) ArchiveOption {
	return func(a *Archive) { a.metrics = m }
}

// WithLogger attaches a destination for non-fatal degraded-path events
// (cache-set failures, and nothing else — no request-level access log).
// The default is nil, meaning silent.
func WithLogger(l *log.Logger) ArchiveOption {
	return func(a *Archive) { a.logger = l }
}

// WithDecompressFunc overrides the decompression strategy, mainly for
// tests that want to assert a specific codec was invoked.
func WithDecompressFunc(fn DecompressFunc) ArchiveOption {
	return func(a *Archive) { a.decompress = fn }
}

// Archive is the archive access state machine from spec.md §4.7. It is
// not bound to a single file or bucket object: every operation takes the
// archive path as a call-time argument, so one Archive can serve many
// archives sharing one Fetcher, Cache, and Metrics. It holds no
// persistent state of its own beyond what the shared Cache retains.
type Archive struct {
	fetcher    Fetcher
	cache      Cache
	metrics    *Metrics
	logger     *log.Logger
	decompress DecompressFunc

	prefixGroup singleflight.Group[prefixResult]
}

// NewArchive builds an Archive around fetcher. Pass ArchiveOptions to
// attach a Cache, Metrics, or logger.
func NewArchive(fetcher Fetcher, opts ...ArchiveOption) *Archive {
	a := &Archive{
		fetcher:    fetcher,
		cache:      NoopCache{},
		decompress: Decompress,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Archive) logf(format string, args ...any) {
	if a.logger != nil {
		a.logger.Printf(format, args...)
	}
}

type prefixResult struct {
	header Header
	root   Directory
}

// GetHeader implements get_headers(path): returns the archive's Header
// and its root Directory. The prefix blob (header + root directory) is
// served from cache when present; concurrent calls for the same uncached
// path are coalesced into one fetch via singleflight, strengthening
// §5.3's "no single-flight guarantee" baseline rather than weakening it.
func (a *Archive) GetHeader(ctx context.Context, path string) (Header, Directory, error) {
	res, err, _ := a.prefixGroup.Do(path, func() (prefixResult, error) {
		return a.loadPrefix(ctx, path)
	})
	if err != nil {
		return Header{}, Directory{}, err
	}
	return res.header, res.root, nil
}

func (a *Archive) loadPrefix(ctx context.Context, path string) (prefixResult, error) {
	prefix, cached := a.cache.Get(ctx, path)
	a.metrics.observeCache("prefix", cached)

	var tag string
	if !cached {
		done := a.metrics.trackFetch(fetchKindPrefix)
		data, fetchedTag, err := a.fetcher.FetchRange(ctx, path, 0, PrefixSize)
		done(err)
		if err != nil {
			return prefixResult{}, err
		}
		prefix = data
		tag = fetchedTag

		if err := a.cache.Set(ctx, path, prefix); err != nil {
			a.metrics.observeCacheSetFailure()
			a.logf("pmtiles: cache set failed for %q: %v", path, err)
		}
	}

	if len(prefix) < headerSizeBytes {
		return prefixResult{}, fmt.Errorf("%w: missing headers", ErrMalformed)
	}

	header, err := readHeader(prefix, tag)
	if err != nil {
		return prefixResult{}, err
	}

	rootStart := header.RootOffset
	rootEnd := header.RootOffset + header.RootLength
	if rootEnd > uint64(len(prefix)) || rootStart > rootEnd {
		return prefixResult{}, fmt.Errorf("%w: root directory outside prefix", ErrMalformed)
	}

	rootBytes, err := decompressAll(prefix[rootStart:rootEnd], header.InternalCompression, a.decompress)
	if err != nil {
		return prefixResult{}, err
	}

	root, err := decodeDirectory(rootBytes)
	if err != nil {
		return prefixResult{}, err
	}

	return prefixResult{header: header, root: root}, nil
}

// GetMetadata implements get_metadata(path): returns the archive's Header
// and its decoded JSON metadata as a generic value, since the core never
// assumes a fixed metadata schema.
func (a *Archive) GetMetadata(ctx context.Context, path string) (Header, any, error) {
	header, _, err := a.GetHeader(ctx, path)
	if err != nil {
		return Header{}, nil, err
	}

	metadataKey := path + "|metadata"
	raw, cached := a.cache.Get(ctx, metadataKey)
	a.metrics.observeCache("metadata", cached)

	if !cached {
		done := a.metrics.trackFetch(fetchKindMetadata)
		data, _, err := a.fetcher.FetchRange(ctx, path, header.MetadataOffset, header.MetadataLength)
		done(err)
		if err != nil {
			return Header{}, nil, err
		}

		decoded, err := decompressAll(data, header.InternalCompression, a.decompress)
		if err != nil {
			return Header{}, nil, err
		}
		raw = decoded

		if err := a.cache.Set(ctx, metadataKey, raw); err != nil {
			a.metrics.observeCacheSetFailure()
			a.logf("pmtiles: cache set failed for %q: %v", metadataKey, err)
		}
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return Header{}, nil, fmt.Errorf("%w: metadata json: %v", ErrMalformed, err)
	}

	return header, value, nil
}

// GetTile implements get_tile(z, x, y, path): returns the decompressed
// tile payload, or ErrNotFound/ErrOutOfBoundsZoom/ErrOutOfBoundsXY per §7.
func (a *Archive) GetTile(ctx context.Context, path string, z, x, y uint64) ([]byte, error) {
	header, directory, err := a.GetHeader(ctx, path)
	if err != nil {
		return nil, err
	}

	if z < uint64(header.MinZoom) || z > uint64(header.MaxZoom) {
		return nil, fmt.Errorf("%w: zoom %d outside [%d, %d]", ErrOutOfBoundsZoom, z, header.MinZoom, header.MaxZoom)
	}

	tileID, err := zxyToTileID(z, x, y)
	if err != nil {
		return nil, err
	}

	depth := 0
	for depth < MaxLeafDepth {
		entry, err := directory.findTile(tileID)
		if err != nil {
			return nil, err
		}

		if !entry.isLeaf() {
			done := a.metrics.trackFetch(fetchKindTile)
			data, _, err := a.fetcher.FetchRange(ctx, path, header.TileDataOffset+entry.Offset, entry.Length)
			done(err)
			if err != nil {
				return nil, err
			}

			a.metrics.observeLeafDepth(depth)
			return decompressAll(data, header.TileCompression, a.decompress)
		}

		if entry.Offset+entry.Length > header.LeafDirectoryLength {
			return nil, fmt.Errorf("%w: leaf entry outside leaf directory region", ErrMalformed)
		}

		done := a.metrics.trackFetch(fetchKindLeaf)
		data, _, err := a.fetcher.FetchRange(ctx, path, header.LeafDirectoryOffset+entry.Offset, entry.Length)
		done(err)
		if err != nil {
			return nil, err
		}

		leafBytes, err := decompressAll(data, header.InternalCompression, a.decompress)
		if err != nil {
			return nil, err
		}

		directory, err = decodeDirectory(leafBytes)
		if err != nil {
			return nil, err
		}

		depth++
	}

	return nil, fmt.Errorf("%w: leaf directory depth exceeded %d", ErrMalformed, MaxLeafDepth)
}
