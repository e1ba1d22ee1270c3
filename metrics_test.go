package pmtiles

import (
	"errors"
	"testing"
)

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.observeCache("prefix", true)
	m.observeCacheSetFailure()
	m.observeLeafDepth(2)
	done := m.trackFetch(fetchKindTile)
	done(nil)
	done(errors.New("boom"))
}

func TestMetricsCollectorGathers(t *testing.T) {
	m := NewMetrics()
	m.observeCache(fetchKindPrefix, false)
	m.observeCache(fetchKindPrefix, true)
	done := m.trackFetch(fetchKindTile)
	done(nil)

	families, err := m.Collector().Gather()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected at least one metric family")
	}
}
