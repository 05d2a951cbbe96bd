package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/your-username/click-lite-reports/internal/models"
)

// ResultStore is a backend for cached preview results
type ResultStore interface {
	GetResult(ctx context.Context, key string) (*models.QueryResult, bool, error)
	SetResult(ctx context.Context, key string, res *models.QueryResult, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// QueryCache caches preview results keyed by the final SQL and row limit.
// Only successful results are stored.
type QueryCache struct {
	store  ResultStore
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// Stats is a snapshot of cache effectiveness
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewQueryCache creates a new query result cache
func NewQueryCache(store ResultStore, ttl time.Duration) *QueryCache {
	return &QueryCache{
		store: store,
		ttl:   ttl,
	}
}

// Get returns a cached result for sql and limit
func (qc *QueryCache) Get(ctx context.Context, sql string, limit int) (*models.QueryResult, bool, error) {
	res, ok, err := qc.store.GetResult(ctx, Key(sql, limit))
	if err != nil || !ok {
		qc.misses.Add(1)
		return nil, false, err
	}
	qc.hits.Add(1)
	return res, true, nil
}

// Set stores res when it is a successful result
func (qc *QueryCache) Set(ctx context.Context, sql string, limit int, res *models.QueryResult) error {
	if res == nil || !res.Success {
		return nil
	}
	return qc.store.SetResult(ctx, Key(sql, limit), res, qc.ttl)
}

// Invalidate drops every cached result
func (qc *QueryCache) Invalidate(ctx context.Context) error {
	return qc.store.Clear(ctx)
}

// Stats returns hit and miss counters
func (qc *QueryCache) Stats() Stats {
	s := Stats{Hits: qc.hits.Load(), Misses: qc.misses.Load()}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Key creates a cache key from the query and its parameters
func Key(sql string, limit int) string {
	data := map[string]interface{}{
		"query":  sql,
		"params": map[string]interface{}{"limit": limit},
	}

	jsonData, _ := json.Marshal(data)
	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:])
}

// MemoryResults adapts a Cache to ResultStore
type MemoryResults struct {
	Cache Cache
}

// GetResult returns a copy of the columns and rows so callers cannot
// mutate the cached value. Cell values themselves are shared.
func (m MemoryResults) GetResult(_ context.Context, key string) (*models.QueryResult, bool, error) {
	v, ok := m.Cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	res, ok := v.(*models.QueryResult)
	if !ok {
		return nil, false, nil
	}
	return cloneResult(res), true, nil
}

// SetResult stores a copy of res
func (m MemoryResults) SetResult(_ context.Context, key string, res *models.QueryResult, ttl time.Duration) error {
	m.Cache.Set(key, cloneResult(res), ttl)
	return nil
}

// Clear empties the underlying cache
func (m MemoryResults) Clear(context.Context) error {
	m.Cache.Clear()
	return nil
}

func cloneResult(res *models.QueryResult) *models.QueryResult {
	cp := *res
	if res.Columns != nil {
		cp.Columns = append([]string(nil), res.Columns...)
	}
	if res.Data != nil {
		cp.Data = make([][]interface{}, len(res.Data))
		for i, row := range res.Data {
			cp.Data[i] = append([]interface{}(nil), row...)
		}
	}
	return &cp
}
