// Package cache memoises search responses in Redis. Concurrent misses for
// the same key are collapsed into one computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/filter"
	pkgredis "github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(store Store, ttl time.Duration) *QueryCache {
	return &QueryCache{
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, query string, f filter.Filters, limit int) (*engine.SearchResult, bool) {
	key := BuildKey(query, f, limit)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result engine.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, query string, f filter.Filters, limit int, result *engine.SearchResult) {
	key := BuildKey(query, f, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for the request or computes,
// stores and returns it. The boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	f filter.Filters,
	limit int,
	computeFn func() (*engine.SearchResult, error),
) (*engine.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, query, f, limit); ok {
		return result, true, nil
	}
	key := BuildKey(query, f, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, f, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*engine.SearchResult), false, nil
}

func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey derives the cache key for a search request. The query is used
// verbatim because case and spacing change its score.
func BuildKey(query string, f filter.Filters, limit int) string {
	budget := "-"
	if f.BudgetRange != nil {
		budget = fmt.Sprintf("%g..%g", f.BudgetRange.Min, f.BudgetRange.Max)
	}
	parts := []string{
		"q=" + query,
		"category=" + normalizeChoice(f.Category),
		"status=" + normalizeChoice(f.Status),
		"budget=" + budget,
		"sort=" + string(filter.ParseSortOrder(string(f.SortBy))),
		fmt.Sprintf("limit=%d", limit),
	}
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeChoice folds the "no filter" spellings together.
func normalizeChoice(v string) string {
	if v == "" {
		return filter.All
	}
	return v
}
