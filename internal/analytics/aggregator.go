package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	topListSize       = 10
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMicros  float64      `json:"avg_latency_us"`
	P50LatencyMicros  int64        `json:"p50_latency_us"`
	P95LatencyMicros  int64        `json:"p95_latency_us"`
	P99LatencyMicros  int64        `json:"p99_latency_us"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	TopCategories     []QueryCount `json:"top_categories"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
	ChatRequests      int64        `json:"chat_requests"`
	ChatFailures      int64        `json:"chat_failures"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds analytics events into running statistics. Latency
// percentiles cover the most recent maxLatencySamples searches.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	chatRequests      int64
	chatFailures      int64
	latencies         []int64
	latencyNext       int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	categoryCounts    map[string]int64
	startTime         time.Time
	now               func() time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		categoryCounts:    make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns the Kafka message handler that feeds agg. Malformed
// messages are logged and acknowledged.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		env, err := kafka.DecodeJSON[envelope](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch env.Type {
		case EventSearch:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.RecordSearch(event)
		case EventChat:
			event, err := kafka.DecodeJSON[ChatEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode chat event", "error", err)
				return nil
			}
			agg.RecordChat(event)
		default:
			agg.logger.Debug("ignoring analytics event", "type", env.Type, "key", string(key))
		}
		return nil
	}
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.recordLatency(event.LatencyMicros)

	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}
	if event.Category != "" && event.Category != "all" {
		a.categoryCounts[event.Category]++
	}
}

func (a *Aggregator) RecordChat(event ChatEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.chatRequests++
	if !event.Success {
		a.chatFailures++
	}
}

// recordLatency keeps a ring of the latest samples. Caller holds a.mu.
func (a *Aggregator) recordLatency(v int64) {
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, v)
		return
	}
	a.latencies[a.latencyNext] = v
	a.latencyNext = (a.latencyNext + 1) % maxLatencySamples
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
		ChatRequests:    a.chatRequests,
		ChatFailures:    a.chatFailures,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMicros = float64(sum) / float64(len(sorted))
		stats.P50LatencyMicros = percentile(sorted, 50)
		stats.P95LatencyMicros = percentile(sorted, 95)
		stats.P99LatencyMicros = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, topListSize)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, topListSize)
	stats.TopCategories = topN(a.categoryCounts, topListSize)
	elapsed := a.now().Sub(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then by key so ties are stable.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
