package pmtiles

import (
	"context"
	"os"
	"strconv"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dustin/go-humanize"
)

const (
	DefaultRistrettoNumCounters = 10 * 500 * 1024
	DefaultRistrettoMaxCost     = 50 * 1024 * 1024
	DefaultRistrettoBufferItems = 64
)

// Cache is the capability set the archive access state machine consumes:
// a non-failing Get (absence is reported explicitly, never as an error)
// and a Set that may fail without aborting the caller. Keys follow the
// convention in spec.md §6.1: path for the archive's leading 16 KiB
// (header + root directory), "{path}|metadata" for decompressed JSON
// metadata. Leaf directories are not cached by this implementation.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error
}

// RistrettoCache wraps github.com/dgraph-io/ristretto/v2 as the Cache
// capability set, sized by the PMTILES_RISTRETTO_* environment variables
// with the teacher's getEnv fallback pattern.
type RistrettoCache struct {
	cache *ristretto.Cache[string, []byte]
}

// NewRistrettoCache builds a RistrettoCache. Cost is measured in bytes of
// cached value, so MaxCost is an approximate memory budget rather than an
// item count.
func NewRistrettoCache() (*RistrettoCache, error) {
	cfg := &ristretto.Config[string, []byte]{
		NumCounters: getEnv("PMTILES_RISTRETTO_NUM_COUNTERS", DefaultRistrettoNumCounters),
		MaxCost:     getEnv("PMTILES_RISTRETTO_MAX_COST", DefaultRistrettoMaxCost),
		BufferItems: getEnv("PMTILES_RISTRETTO_BUFFER_ITEMS", DefaultRistrettoBufferItems),
	}

	cache, err := ristretto.NewCache(cfg)
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{cache: cache}, nil
}

func (c *RistrettoCache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.cache.Get(key)
}

func (c *RistrettoCache) Set(_ context.Context, key string, value []byte) error {
	ok := c.cache.SetWithTTL(key, value, int64(len(value)), 0)
	if !ok {
		return ErrCacheSetFailed
	}
	return nil
}

// MaxCostHuman renders the cache's configured memory budget for log lines,
// in SI units, e.g. "52 MB" for the default 50 MiB budget.
func (c *RistrettoCache) MaxCostHuman() string {
	return humanize.Bytes(uint64(getEnv("PMTILES_RISTRETTO_MAX_COST", DefaultRistrettoMaxCost))) //nolint:gosec
}

// NoopCache never stores anything; every Get misses and every Set
// succeeds as a no-op. It is the Cache equivalent of passing None for the
// cache argument in the Rust reference implementation.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (NoopCache) Set(context.Context, string, []byte) error  { return nil }

func getEnv(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fallback
		}
		return i
	}
	return fallback
}
