package llm

import (
	"fmt"
	"sync"
	"time"
)

// StatsSnapshot is a point-in-time copy of the pool counters.
type StatsSnapshot struct {
	TotalRequests   int64         `json:"total_requests"` // Every Generate call: hits, successes and failures
	CacheHits       int64         `json:"cache_hits"`
	Failures        int64         `json:"failures"`
	TotalTokens     int64         `json:"total_tokens"`
	TotalCost       float64       `json:"total_cost"`
	AvgResponseTime time.Duration `json:"avg_response_time"` // Over calls answered by the generator
	CacheHitRate    float64       `json:"cache_hit_rate"`    // Percent of TotalRequests
	FailureRate     float64       `json:"failure_rate"`      // Percent of TotalRequests
	CachedItems     int           `json:"cached_items"`
}

// String renders the snapshot the way batch reports print it.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"requests=%d cache_hits=%d (%.2f%%) failures=%d (%.2f%%) tokens=%d cost=$%.4f avg=%s cached=%d",
		s.TotalRequests, s.CacheHits, s.CacheHitRate, s.Failures, s.FailureRate,
		s.TotalTokens, s.TotalCost, s.AvgResponseTime.Round(time.Millisecond), s.CachedItems,
	)
}

type stats struct {
	mu            sync.Mutex
	totalRequests int64
	cacheHits     int64
	failures      int64
	totalTokens   int64
	totalCost     float64
	generated     int64
	totalLatency  time.Duration
}

func (s *stats) recordHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests++
	s.cacheHits++
}

func (s *stats) recordSuccess(resp *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests++
	s.generated++
	s.totalTokens += int64(resp.TokensUsed)
	s.totalCost += resp.CostEstimate
	s.totalLatency += resp.ResponseTime
}

func (s *stats) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests++
	s.failures++
}

func (s *stats) snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		TotalRequests: s.totalRequests,
		CacheHits:     s.cacheHits,
		Failures:      s.failures,
		TotalTokens:   s.totalTokens,
		TotalCost:     s.totalCost,
	}
	if s.generated > 0 {
		snap.AvgResponseTime = s.totalLatency / time.Duration(s.generated)
	}
	if s.totalRequests > 0 {
		snap.CacheHitRate = float64(s.cacheHits) / float64(s.totalRequests) * 100
		snap.FailureRate = float64(s.failures) / float64(s.totalRequests) * 100
	}
	return snap
}
