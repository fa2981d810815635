package store

import (
	"fmt"
	"math"
	"time"
)

// latencyBuckets defines histogram buckets in milliseconds. LLM calls
// dominate, so the buckets skew long.
var latencyBuckets = []int{100, 500, 1000, 5000, 10000, 30000, 60000, 120000}

const latencySchema = `
CREATE TABLE IF NOT EXISTS latency_histogram (
	tag       TEXT NOT NULL,
	bucket_ms INTEGER NOT NULL,
	count     INTEGER NOT NULL DEFAULT 0,
	timestamp INTEGER NOT NULL,
	PRIMARY KEY (tag, bucket_ms, timestamp)
);
`

func findBucket(latencyMs int) int {
	for _, bucket := range latencyBuckets {
		if latencyMs <= bucket {
			return bucket
		}
	}
	return latencyBuckets[len(latencyBuckets)-1]
}

// RecordLatency records one call's latency under the component tag,
// bucketed into 1-minute windows.
func (s *Store) RecordLatency(tag string, latencyMs int) error {
	bucket := findBucket(latencyMs)
	timestamp := time.Now().Unix() / 60 * 60

	_, err := s.db.Exec(`
		INSERT INTO latency_histogram (tag, bucket_ms, count, timestamp)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(tag, bucket_ms, timestamp)
		DO UPDATE SET count = count + 1
	`, tag, bucket, timestamp)
	return err
}

// bucketData is one histogram bucket's aggregated count.
type bucketData struct {
	bucket int
	count  int
}

// Percentiles holds estimated latency percentiles for one component tag.
type Percentiles struct {
	Tag   string
	P50   float64
	P95   float64
	P99   float64
	Count int
}

// LatencyPercentiles estimates p50/p95/p99 over the trailing window.
func (s *Store) LatencyPercentiles(tag string, windowMinutes int) (*Percentiles, error) {
	windowStart := time.Now().Unix()/60*60 - int64(windowMinutes*60)

	rows, err := s.db.Query(`
		SELECT bucket_ms, SUM(count)
		FROM latency_histogram
		WHERE tag = ? AND timestamp >= ?
		GROUP BY bucket_ms
		ORDER BY bucket_ms ASC
	`, tag, windowStart)
	if err != nil {
		return nil, fmt.Errorf("query latency histogram: %w", err)
	}
	defer rows.Close()

	var buckets []bucketData
	totalCount := 0
	for rows.Next() {
		var bd bucketData
		if err := rows.Scan(&bd.bucket, &bd.count); err != nil {
			return nil, err
		}
		buckets = append(buckets, bd)
		totalCount += bd.count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if totalCount == 0 {
		return nil, fmt.Errorf("no latency data for tag %s", tag)
	}

	return &Percentiles{
		Tag:   tag,
		P50:   latencyPercentile(buckets, totalCount, 0.50),
		P95:   latencyPercentile(buckets, totalCount, 0.95),
		P99:   latencyPercentile(buckets, totalCount, 0.99),
		Count: totalCount,
	}, nil
}

// latencyPercentile interpolates linearly within the bucket that crosses
// the target rank.
func latencyPercentile(buckets []bucketData, totalCount int, percentile float64) float64 {
	if len(buckets) == 0 || totalCount == 0 {
		return 0
	}

	targetCount := int(math.Ceil(float64(totalCount) * percentile))
	cumulativeCount := 0
	for _, bd := range buckets {
		cumulativeCount += bd.count
		if cumulativeCount < targetCount {
			continue
		}
		prevCumulative := cumulativeCount - bd.count
		ratio := float64(targetCount-prevCumulative) / float64(bd.count)

		prevBucket := 0
		for i, b := range latencyBuckets {
			if b == bd.bucket && i > 0 {
				prevBucket = latencyBuckets[i-1]
				break
			}
		}
		return float64(prevBucket) + ratio*float64(bd.bucket-prevBucket)
	}
	return float64(buckets[len(buckets)-1].bucket)
}

// CleanupLatencyData removes histogram rows older than retentionDays.
func (s *Store) CleanupLatencyData(retentionDays int) (int64, error) {
	cutoff := time.Now().Unix() - int64(retentionDays*24*3600)
	result, err := s.db.Exec(`DELETE FROM latency_histogram WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
