package store

import (
	"math"
	"testing"
)

func TestFindBucket(t *testing.T) {
	cases := []struct {
		latency int
		want    int
	}{
		{0, 100},
		{100, 100},
		{101, 500},
		{4999, 5000},
		{60001, 120000},
		{999999, 120000},
	}
	for _, c := range cases {
		if got := findBucket(c.latency); got != c.want {
			t.Errorf("findBucket(%d) = %d, want %d", c.latency, got, c.want)
		}
	}
}

func TestLatencyPercentiles(t *testing.T) {
	s := openTestStore(t)

	// 100 calls all landing in the 100ms bucket: percentiles interpolate
	// linearly between 0 and 100.
	for i := 0; i < 100; i++ {
		if err := s.RecordLatency("tb_generator", 50); err != nil {
			t.Fatalf("RecordLatency failed: %v", err)
		}
	}

	p, err := s.LatencyPercentiles("tb_generator", 60)
	if err != nil {
		t.Fatalf("LatencyPercentiles failed: %v", err)
	}
	if p.Count != 100 {
		t.Errorf("count = %d, want 100", p.Count)
	}
	if math.Abs(p.P50-50) > 0.01 {
		t.Errorf("p50 = %v, want 50", p.P50)
	}
	if math.Abs(p.P95-95) > 0.01 {
		t.Errorf("p95 = %v, want 95", p.P95)
	}
	if math.Abs(p.P99-99) > 0.01 {
		t.Errorf("p99 = %v, want 99", p.P99)
	}
}

func TestLatencyPercentilesAcrossBuckets(t *testing.T) {
	s := openTestStore(t)

	// 90 fast calls and 10 slow ones: p50 stays in the first bucket and
	// p99 lands in the slow one.
	for i := 0; i < 90; i++ {
		if err := s.RecordLatency("rtl_generator", 80); err != nil {
			t.Fatalf("RecordLatency failed: %v", err)
		}
	}
	for i := 0; i < 10; i++ {
		if err := s.RecordLatency("rtl_generator", 8000); err != nil {
			t.Fatalf("RecordLatency failed: %v", err)
		}
	}

	p, err := s.LatencyPercentiles("rtl_generator", 60)
	if err != nil {
		t.Fatalf("LatencyPercentiles failed: %v", err)
	}
	if p.P50 > 100 {
		t.Errorf("p50 = %v, want within the 100ms bucket", p.P50)
	}
	if p.P99 <= 5000 || p.P99 > 10000 {
		t.Errorf("p99 = %v, want within the 10000ms bucket", p.P99)
	}
}

func TestLatencyPercentilesNoData(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.LatencyPercentiles("missing", 60); err == nil {
		t.Fatal("expected error for tag with no data")
	}
}

func TestLatencyTagsIsolated(t *testing.T) {
	s := openTestStore(t)
	if err := s.RecordLatency("tb_generator", 50); err != nil {
		t.Fatalf("RecordLatency failed: %v", err)
	}
	if err := s.RecordLatency("rtl_generator", 50000); err != nil {
		t.Fatalf("RecordLatency failed: %v", err)
	}

	p, err := s.LatencyPercentiles("tb_generator", 60)
	if err != nil {
		t.Fatalf("LatencyPercentiles failed: %v", err)
	}
	if p.Count != 1 {
		t.Errorf("count = %d, want 1", p.Count)
	}
	if p.P99 > 100 {
		t.Errorf("p99 = %v, slow calls from another tag leaked in", p.P99)
	}
}
