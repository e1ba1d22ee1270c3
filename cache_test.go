package pmtiles

import (
	"context"
	"testing"
	"time"
)

func TestRistrettoCacheGetSet(t *testing.T) {
	c, err := NewRistrettoCache()
	if err != nil {
		t.Fatalf("NewRistrettoCache: %v", err)
	}

	ctx := context.Background()
	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	if err := c.Set(ctx, "archive.pmtiles", []byte("header-and-root-directory")); err != nil {
		t.Fatalf("unexpected Set error: %v", err)
	}

	// Ristretto applies writes asynchronously through its buffer; give it
	// a moment to land before asserting a hit.
	time.Sleep(50 * time.Millisecond)

	got, ok := c.Get(ctx, "archive.pmtiles")
	if !ok {
		t.Fatalf("expected hit after Set")
	}
	if string(got) != "header-and-root-directory" {
		t.Fatalf("got %q", got)
	}
}

func TestRistrettoCacheMaxCostHuman(t *testing.T) {
	c, err := NewRistrettoCache()
	if err != nil {
		t.Fatalf("NewRistrettoCache: %v", err)
	}
	if c.MaxCostHuman() == "" {
		t.Fatalf("expected non-empty human-readable size")
	}
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	var c NoopCache
	ctx := context.Background()

	if err := c.Set(ctx, "archive.pmtiles", []byte("data")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.Get(ctx, "archive.pmtiles"); ok {
		t.Fatalf("expected NoopCache to always miss")
	}
}

func TestGetEnvFallback(t *testing.T) {
	if got := getEnv("PMTILES_DOES_NOT_EXIST", 42); got != 42 {
		t.Fatalf("got %d, want 42", got)
	}

	t.Setenv("PMTILES_RISTRETTO_MAX_COST", "123")
	if got := getEnv("PMTILES_RISTRETTO_MAX_COST", 42); got != 123 {
		t.Fatalf("got %d, want 123", got)
	}

	t.Setenv("PMTILES_RISTRETTO_MAX_COST", "not-a-number")
	if got := getEnv("PMTILES_RISTRETTO_MAX_COST", 42); got != 42 {
		t.Fatalf("got %d, want fallback 42", got)
	}
}
