package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/your-username/click-lite-reports/internal/models"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCache(rdb), mr
}

func sampleResult() *models.QueryResult {
	return &models.QueryResult{
		Columns:   []string{"region", "total"},
		Data:      [][]interface{}{{"EU", float64(12)}},
		TotalRows: 1,
		Success:   true,
	}
}

func TestMemoryCache_TTLAndLRU(t *testing.T) {
	c := NewMemoryCache(2)
	defer c.Close()

	c.Set("expired", 1, -time.Second)
	if _, ok := c.Get("expired"); ok {
		t.Error("expired item should not be returned")
	}

	c.Set("a", 1, time.Minute)
	time.Sleep(time.Millisecond)
	c.Set("b", 2, time.Minute)
	time.Sleep(time.Millisecond)
	c.Get("a")
	c.Set("c", 3, time.Minute)

	if _, ok := c.Get("b"); ok {
		t.Error("b was least recently used and should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive eviction")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d", c.Size())
	}
}

func TestKey_DependsOnSQLAndLimit(t *testing.T) {
	if Key("SELECT 1", 10) == Key("SELECT 1", 20) {
		t.Error("limit must be part of the key")
	}
	if Key("SELECT 1", 10) != Key("SELECT 1", 10) {
		t.Error("key must be deterministic")
	}
}

func TestQueryCache_Memory(t *testing.T) {
	mem := NewMemoryCache(10)
	defer mem.Close()
	qc := NewQueryCache(MemoryResults{Cache: mem}, time.Minute)
	ctx := context.Background()

	if _, ok, _ := qc.Get(ctx, "SELECT 1", 10); ok {
		t.Fatal("empty cache should miss")
	}
	if err := qc.Set(ctx, "SELECT 1", 10, sampleResult()); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	res, ok, err := qc.Get(ctx, "SELECT 1", 10)
	if err != nil || !ok || res.TotalRows != 1 {
		t.Fatalf("Get() = %+v, %v, %v", res, ok, err)
	}

	failed := &models.QueryResult{Success: false, Message: "boom"}
	_ = qc.Set(ctx, "SELECT broken", 10, failed)
	if _, ok, _ := qc.Get(ctx, "SELECT broken", 10); ok {
		t.Error("failed results must not be cached")
	}

	stats := qc.Stats()
	if stats.Hits != 1 || stats.Misses != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestMemoryResults_CallersCannotMutateCache(t *testing.T) {
	mem := NewMemoryCache(10)
	defer mem.Close()
	store := MemoryResults{Cache: mem}
	ctx := context.Background()

	src := sampleResult()
	if err := store.SetResult(ctx, "k", src, time.Minute); err != nil {
		t.Fatalf("SetResult() error = %v", err)
	}
	src.Data[0][0] = "changed after set"

	got, ok, err := store.GetResult(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("GetResult() = %v, %v", ok, err)
	}
	got.Data[0][0] = "changed after get"
	got.Data = append(got.Data, []interface{}{"US", float64(1)})
	got.Columns[0] = "renamed"

	again, _, _ := store.GetResult(ctx, "k")
	if again.Data[0][0] != "EU" || len(again.Data) != 1 || again.Columns[0] != "region" {
		t.Errorf("cached result mutated: %+v", again)
	}
}

func TestRedisCache_RoundTripAndTTL(t *testing.T) {
	rc, mr := newTestRedis(t)
	ctx := context.Background()
	qc := NewQueryCache(rc, time.Minute)

	if err := qc.Set(ctx, "SELECT region, total FROM t", 100, sampleResult()); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	res, ok, err := qc.Get(ctx, "SELECT region, total FROM t", 100)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if res.Columns[0] != "region" || res.Data[0][0] != "EU" {
		t.Errorf("result = %+v", res)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := qc.Get(ctx, "SELECT region, total FROM t", 100); ok {
		t.Error("entry should expire after ttl")
	}
}

func TestRedisCache_ClearOnlyOwnKeys(t *testing.T) {
	rc, mr := newTestRedis(t)
	ctx := context.Background()

	if err := mr.Set("other:key", "keep"); err != nil {
		t.Fatal(err)
	}
	_ = rc.SetResult(ctx, "k1", sampleResult(), time.Minute)
	_ = rc.SetResult(ctx, "k2", sampleResult(), time.Minute)

	if err := rc.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if mr.Exists(resultPrefix+"k1") || mr.Exists(resultPrefix+"k2") {
		t.Error("cached results should be deleted")
	}
	if !mr.Exists("other:key") {
		t.Error("unrelated keys must survive Clear")
	}
}

func TestRedisCache_Unavailable(t *testing.T) {
	rc, mr := newTestRedis(t)
	mr.Close()

	if err := rc.Ping(context.Background()); err == nil {
		t.Error("expected ping error after server shutdown")
	}
	if _, _, err := rc.GetResult(context.Background(), "k"); err == nil {
		t.Error("expected get error after server shutdown")
	}
}
